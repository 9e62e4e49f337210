package session

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/gtosh4/mindwand/probe"
	"github.com/gtosh4/mindwand/trials"
)

const NA = "NA"

var ResultsHeader = []string{
	"sub", "tcateg", "tnum", "bnum", "tar", "sim", "resp", "rtype",
	"rt", "time", "tutra", "tuttime", "hunger", "tired",
}

// Result is one row of the results file. Answers holds the intake answers in
// question order; NaN marks a missing one.
type Result struct {
	Subject        string
	Target         string
	TrialNum       int
	BlockNum       int
	TargetPresent  bool
	SimilarPresent bool
	Key            string
	RType          string
	RTMillis       float64
	Time           float64
	Probe          *probe.Result
	Answers        []float64
}

func (r Result) Values() []string {
	rating, elapsed := NA, NA
	if r.Probe != nil {
		rating = formatFloat(r.Probe.Rating)
		elapsed = formatFloat(r.Probe.Elapsed)
	}
	rtype := r.RType
	if rtype == "" {
		rtype = NA
	}
	return []string{
		r.Subject,
		r.Target,
		strconv.Itoa(r.TrialNum),
		strconv.Itoa(r.BlockNum),
		strconv.FormatBool(r.TargetPresent),
		strconv.FormatBool(r.SimilarPresent),
		r.Key,
		rtype,
		formatFloat(r.RTMillis),
		formatFloat(r.Time),
		rating,
		elapsed,
		r.answer(0),
		r.answer(1),
	}
}

func (r Result) answer(i int) string {
	if i < len(r.Answers) && !math.IsNaN(r.Answers[i]) {
		return formatFloat(r.Answers[i])
	}
	return NA
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Sink receives every completed trial.
type Sink interface {
	WriteResult(r Result, t trials.Trial) error
}

type MultiSink []Sink

func (m MultiSink) WriteResult(r Result, t trials.Trial) error {
	for _, s := range m {
		if err := s.WriteResult(r, t); err != nil {
			return err
		}
	}
	return nil
}

// ResultsLog writes results as CSV, flushing after every row so an aborted
// run keeps everything completed so far.
type ResultsLog struct {
	w *csv.Writer
}

func NewResultsLog(w io.Writer) (*ResultsLog, error) {
	l := &ResultsLog{w: csv.NewWriter(w)}
	if err := l.w.Write(ResultsHeader); err != nil {
		return nil, err
	}
	l.w.Flush()
	return l, l.w.Error()
}

func (l *ResultsLog) WriteResult(r Result, _ trials.Trial) error {
	if err := l.w.Write(r.Values()); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}
