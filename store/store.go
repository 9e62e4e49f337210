// Package store keeps a sqlite copy of every session's results and of the
// images shown in each trial.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gtosh4/mindwand/probe"
	"github.com/gtosh4/mindwand/session"
	"github.com/gtosh4/mindwand/trials"
)

type DB struct{ *sql.DB }

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			target TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS results (
			session_id TEXT NOT NULL,
			tnum INTEGER NOT NULL,
			bnum INTEGER NOT NULL,
			tar INTEGER NOT NULL,
			sim INTEGER NOT NULL,
			resp TEXT NOT NULL,
			rtype TEXT NOT NULL,
			rt REAL NOT NULL,
			time REAL NOT NULL,
			tutra REAL,
			tuttime REAL,
			hunger REAL,
			tired REAL,
			PRIMARY KEY (session_id, tnum)
		);`,
		`CREATE TABLE IF NOT EXISTS trial_images (
			session_id TEXT NOT NULL,
			tnum INTEGER NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			trial_type TEXT NOT NULL,
			PRIMARY KEY (session_id, tnum, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_subject ON sessions(subject);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Session is a session.Sink bound to one sessions row.
type Session struct {
	db *DB
	ID string
}

func (db *DB) StartSession(subject session.Subject) (*Session, error) {
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO sessions(id, subject, target, started_at) VALUES(?,?,?,?)`,
		id, subject.ID, subject.Target, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return &Session{db: db, ID: id}, nil
}

func (s *Session) WriteResult(r session.Result, t trials.Trial) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var tutra, tuttime sql.NullFloat64
	if r.Probe != nil {
		tutra = sql.NullFloat64{Float64: r.Probe.Rating, Valid: true}
		tuttime = sql.NullFloat64{Float64: r.Probe.Elapsed, Valid: true}
	}
	_, err = tx.Exec(`INSERT INTO results(session_id, tnum, bnum, tar, sim, resp, rtype, rt, time, tutra, tuttime, hunger, tired)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, r.TrialNum, r.BlockNum, r.TargetPresent, r.SimilarPresent, r.Key, r.RType,
		r.RTMillis, r.Time, tutra, tuttime, answer(r.Answers, 0), answer(r.Answers, 1))
	if err != nil {
		return err
	}

	for pos, img := range t.Images {
		_, err := tx.Exec(`INSERT INTO trial_images(session_id, tnum, position, name, trial_type) VALUES(?,?,?,?,?)`,
			s.ID, r.TrialNum, pos, img.Name, t.Type.String())
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// answer stores a missing or NaN answer as NULL.
func answer(answers []float64, i int) sql.NullFloat64 {
	if i < len(answers) && !math.IsNaN(answers[i]) {
		return sql.NullFloat64{Float64: answers[i], Valid: true}
	}
	return sql.NullFloat64{}
}

// nullToNaN keeps answers positional: a NULL answer reads back as NaN.
func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// Subject returns who a stored session belongs to.
func (db *DB) Subject(sessionID string) (session.Subject, error) {
	var s session.Subject
	err := db.QueryRow(`SELECT subject, target FROM sessions WHERE id = ?`, sessionID).Scan(&s.ID, &s.Target)
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("no session %s", sessionID)
	}
	return s, err
}

// Results returns a session's rows in trial order.
func (db *DB) Results(sessionID string) ([]session.Result, error) {
	rows, err := db.Query(`SELECT s.subject, s.target, r.tnum, r.bnum, r.tar, r.sim, r.resp, r.rtype, r.rt, r.time,
			r.tutra, r.tuttime, r.hunger, r.tired
		FROM results r JOIN sessions s ON s.id = r.session_id
		WHERE r.session_id = ? ORDER BY r.tnum`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.Result
	for rows.Next() {
		var (
			r                             session.Result
			tutra, tuttime, hunger, tired sql.NullFloat64
		)
		err := rows.Scan(&r.Subject, &r.Target, &r.TrialNum, &r.BlockNum, &r.TargetPresent, &r.SimilarPresent,
			&r.Key, &r.RType, &r.RTMillis, &r.Time, &tutra, &tuttime, &hunger, &tired)
		if err != nil {
			return nil, err
		}
		if tutra.Valid {
			r.Probe = &probe.Result{Rating: tutra.Float64, Elapsed: tuttime.Float64}
		}
		if hunger.Valid || tired.Valid {
			r.Answers = []float64{nullToNaN(hunger), nullToNaN(tired)}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TrialRows returns what a session actually saw, in recorder form, so it can
// be replayed for another participant.
func (db *DB) TrialRows(sessionID string) ([]trials.Row, error) {
	rows, err := db.Query(`SELECT tnum, name, position, trial_type FROM trial_images
		WHERE session_id = ? ORDER BY tnum, position`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trials.Row
	for rows.Next() {
		var (
			r   trials.Row
			typ string
		)
		if err := rows.Scan(&r.TrialNum, &r.Name, &r.Position, &typ); err != nil {
			return nil, err
		}
		if r.Type, err = trials.ParseTrialType(typ); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
