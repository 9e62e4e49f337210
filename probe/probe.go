// Package probe schedules task-unrelated-thought (TUT) self-reports.
//
// A probe fires once the time since the previous probe reaches a threshold
// drawn uniformly from [MinInterval, MaxInterval) whole seconds, and always
// on the last trial of a run. After firing, the clock is reset and a new
// threshold is drawn.
package probe

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	MinInterval = 15
	MaxInterval = 31
)

const TUTPrompt = "On the scale below, rate the duration of task unrelated thoughts since the last probe"

// Scale describes a discrete rating scale shown under a prompt.
type Scale struct {
	Low    int
	High   int
	Anchor string
}

var TUTScale = Scale{Low: 0, High: 5, Anchor: "0 = Not at all ... 5 = The whole time"}

// Rater blocks until the participant has picked a value on scale.
type Rater interface {
	AskRating(prompt string, scale Scale) (float64, error)
}

type Clock interface {
	Elapsed() time.Duration
	Reset()
}

type wallClock struct {
	start time.Time
}

// NewClock returns a Clock backed by the monotonic wall clock.
func NewClock() Clock {
	return &wallClock{start: time.Now()}
}

func (c *wallClock) Elapsed() time.Duration { return time.Since(c.start) }
func (c *wallClock) Reset()                 { c.start = time.Now() }

// Result is a fired probe: the rating and the seconds since the previous
// probe, rounded to two decimals.
type Result struct {
	Rating  float64
	Elapsed float64
}

type Scheduler struct {
	clock Clock
	rater Rater
	rng   *rand.Rand
	next  int
}

func NewScheduler(clock Clock, rater Rater, rng *rand.Rand) *Scheduler {
	s := &Scheduler{clock: clock, rater: rater, rng: rng}
	s.redraw()
	return s
}

func (s *Scheduler) redraw() {
	s.next = MinInterval + s.rng.IntN(MaxInterval-MinInterval)
}

// Restart zeroes the clock without drawing a new threshold.
func (s *Scheduler) Restart() {
	s.clock.Reset()
}

// Threshold is the elapsed time at which the next probe becomes due.
func (s *Scheduler) Threshold() time.Duration {
	return time.Duration(s.next) * time.Second
}

// TryProbe asks for a rating when one is due. ok is false when no probe
// fired; a Rater error leaves the schedule untouched.
func (s *Scheduler) TryProbe(isLastTrial bool) (res Result, ok bool, err error) {
	elapsed := s.clock.Elapsed()
	if elapsed < s.Threshold() && !isLastTrial {
		return Result{}, false, nil
	}
	rating, err := s.rater.AskRating(TUTPrompt, TUTScale)
	if err != nil {
		return Result{}, false, err
	}
	s.clock.Reset()
	s.redraw()
	return Result{Rating: rating, Elapsed: Round2(elapsed.Seconds())}, true, nil
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
