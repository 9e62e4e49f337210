package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/gtosh4/mindwand/probe"
	"github.com/gtosh4/mindwand/trials"
)

const (
	DefaultPupilHold = time.Second
	DefaultISI       = 2 * time.Second
)

// Runner drives one participant through practice and experimental blocks.
type Runner struct {
	Subject   Subject
	Presenter Presenter
	Tracker   EyeTracker
	Sink      Sink
	Probe     *probe.Scheduler
	Clock     probe.Clock
	Rand      *rand.Rand
	Questions []Question
	PupilHold time.Duration
	ISI       time.Duration
}

// Run asks the intake questions, shows the instructions, runs practice
// trials unlogged and then every block. The tracker session is ended on
// every exit path, including ErrQuit.
func (r *Runner) Run(practice []trials.Trial, blocks [][]trials.Trial) (err error) {
	defer func() {
		if endErr := r.Tracker.EndSession(); err == nil && endErr != nil {
			err = fmt.Errorf("end tracker session: %w", endErr)
		}
	}()

	answers := make([]float64, 0, len(r.Questions))
	for _, q := range r.Questions {
		v, err := r.Presenter.AskRating(q.Text, q.Scale)
		if err != nil {
			return err
		}
		answers = append(answers, v)
	}

	if err := r.Presenter.ShowMessage(Instructions(r.Subject.Target)); err != nil {
		return err
	}

	for _, t := range practice {
		if _, err := r.present(t, len(practice), 0); err != nil {
			return err
		}
	}

	total := 0
	for _, b := range blocks {
		total += len(b)
	}
	r.Clock.Reset()
	r.Probe.Restart()

	current := 0
	for bi, b := range blocks {
		for _, t := range b {
			current++
			resp, err := r.present(t, total, current)
			if err != nil {
				return err
			}

			res := Result{
				Subject:        r.Subject.ID,
				Target:         r.Subject.Target,
				TrialNum:       current,
				BlockNum:       bi + 1,
				TargetPresent:  t.TargetPresent(),
				SimilarPresent: t.SimilarPresent(),
				Key:            resp.Key,
				RType:          Score(t.Type, resp.Key),
				RTMillis:       probe.Round2(float64(resp.RT) / float64(time.Millisecond)),
				Time:           resp.onset,
				Answers:        answers,
			}

			pr, fired, err := r.Probe.TryProbe(current == total)
			if err != nil {
				return err
			}
			if fired {
				res.Probe = &pr
			}

			values := res.Values()
			for i, col := range ResultsHeader {
				if err := r.Tracker.SendVar(col, values[i]); err != nil {
					return err
				}
			}
			if err := r.Tracker.EndTrial(); err != nil {
				return err
			}
			if err := r.Sink.WriteResult(res, t); err != nil {
				return fmt.Errorf("write trial %d: %w", current, err)
			}

			if err := r.Presenter.ShowFixation(r.isi()); err != nil {
				return err
			}
		}
	}
	return nil
}

type timedResponse struct {
	Response
	onset float64
}

// present runs the pupil-baseline hold and the search display for one trial.
// current is 0 for practice trials.
func (r *Runner) present(t trials.Trial, total, current int) (timedResponse, error) {
	tr := r.Tracker
	if err := tr.BeginTrial("Pupil Time"); err != nil {
		return timedResponse{}, err
	}
	if err := tr.MarkInterestArea(InterestArea{ID: FixationAreaID, Size: FixationSize, Name: "pfixation"}); err != nil {
		return timedResponse{}, err
	}
	if err := tr.StartRecording(); err != nil {
		return timedResponse{}, err
	}
	if err := r.Presenter.ShowFixation(r.pupilHold()); err != nil {
		return timedResponse{}, err
	}
	if err := tr.StopRecording(); err != nil {
		return timedResponse{}, err
	}
	if err := tr.EndTrial(); err != nil {
		return timedResponse{}, err
	}

	status := "Practice"
	if current > 0 {
		status = fmt.Sprintf("Experiment %s%% complete. Current Trial: %d",
			strconv.FormatFloat(probe.Round2(float64(current)/float64(total)*100), 'f', -1, 64), current)
	}
	if err := tr.BeginTrial(status); err != nil {
		return timedResponse{}, err
	}

	placements := Place(t, r.Rand)
	if err := tr.MarkInterestArea(InterestArea{ID: FixationAreaID, Size: FixationSize, Name: "fixation"}); err != nil {
		return timedResponse{}, err
	}
	for i, p := range placements {
		ia := InterestArea{ID: i + 2, Pos: p.Pos, Size: ImageSize, Name: p.Image.Label()}
		if err := tr.MarkInterestArea(ia); err != nil {
			return timedResponse{}, err
		}
	}

	if err := tr.StartRecording(); err != nil {
		return timedResponse{}, err
	}
	onset := probe.Round2(r.Clock.Elapsed().Seconds())
	resp, err := r.Presenter.Search(placements)
	if err != nil {
		return timedResponse{}, err
	}
	if err := tr.StopRecording(); err != nil {
		return timedResponse{}, err
	}
	if current == 0 {
		if err := tr.EndTrial(); err != nil {
			return timedResponse{}, err
		}
		if err := r.Presenter.ShowFixation(r.isi()); err != nil {
			return timedResponse{}, err
		}
	}
	return timedResponse{Response: resp, onset: onset}, nil
}

func (r *Runner) pupilHold() time.Duration {
	if r.PupilHold > 0 {
		return r.PupilHold
	}
	return DefaultPupilHold
}

func (r *Runner) isi() time.Duration {
	if r.ISI > 0 {
		return r.ISI
	}
	return DefaultISI
}

// IsQuit reports whether err is the participant's abort.
func IsQuit(err error) bool {
	return errors.Is(err, ErrQuit)
}
