// Package session runs the visual-search presentation loop against abstract
// display, eye-tracker and result-sink collaborators.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/gtosh4/mindwand/probe"
	"github.com/gtosh4/mindwand/trials"
)

// ErrQuit is returned by a Presenter when the participant aborts the run.
var ErrQuit = errors.New("session: quit requested")

const (
	KeyPresent = "return"
	KeyAbsent  = "space"
)

type Position struct {
	X, Y float64
}

type Placement struct {
	Image *trials.Image
	Pos   Position
}

type Response struct {
	Key string
	RT  time.Duration
}

// Presenter owns the screen and the keyboard. Every method blocks until the
// display step is over.
type Presenter interface {
	probe.Rater
	ShowMessage(text string) error
	ShowFixation(hold time.Duration) error
	Search(placements []Placement) (Response, error)
}

type InterestArea struct {
	ID   int
	Pos  Position
	Size float64
	Name string
}

type EyeTracker interface {
	BeginTrial(status string) error
	MarkInterestArea(ia InterestArea) error
	StartRecording() error
	StopRecording() error
	SendVar(name, value string) error
	EndTrial() error
	EndSession() error
}

// NopTracker is used when no eye tracker is attached.
type NopTracker struct{}

func (NopTracker) BeginTrial(string) error             { return nil }
func (NopTracker) MarkInterestArea(InterestArea) error { return nil }
func (NopTracker) StartRecording() error               { return nil }
func (NopTracker) StopRecording() error                { return nil }
func (NopTracker) SendVar(string, string) error        { return nil }
func (NopTracker) EndTrial() error                     { return nil }
func (NopTracker) EndSession() error                   { return nil }

type Subject struct {
	ID     string
	Target string
}

type Question struct {
	Text  string
	Scale probe.Scale
}

func DefaultQuestions() []Question {
	return []Question{
		{Text: "How hungry are you?", Scale: probe.Scale{Low: 1, High: 7, Anchor: "1 = Not hungry ... 7 = Very hungry"}},
		{Text: "How tired are you?", Scale: probe.Scale{Low: 1, High: 7, Anchor: "1 = Not tired ... 7 = Very tired"}},
	}
}

func Instructions(target string) string {
	text := "You are looking for " + target + "!\n\n" +
		"If one is present - press ENTER\n\n" +
		"If one is NOT present - press the SPACEBAR"
	return strings.ReplaceAll(text, "_", " ")
}

// Score maps a response key onto hi/mi (target trials) or fa/cr (others).
func Score(typ trials.TrialType, key string) string {
	switch {
	case typ == trials.TrialTarget && key == KeyPresent:
		return "hi"
	case typ == trials.TrialTarget && key == KeyAbsent:
		return "mi"
	case key == KeyPresent:
		return "fa"
	case key == KeyAbsent:
		return "cr"
	}
	return ""
}
