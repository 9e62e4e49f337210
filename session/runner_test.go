package session

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/gtosh4/mindwand/probe"
	"github.com/gtosh4/mindwand/trials"
)

type scriptedPresenter struct {
	keys      []string
	ratings   []float64
	quitAt    int
	searches  int
	messages  []string
	fixations []time.Duration
	prompts   []string
	placed    [][]Placement
}

func (p *scriptedPresenter) AskRating(prompt string, _ probe.Scale) (float64, error) {
	p.prompts = append(p.prompts, prompt)
	if len(p.ratings) == 0 {
		return 0, errors.New("no rating scripted")
	}
	v := p.ratings[0]
	p.ratings = p.ratings[1:]
	return v, nil
}

func (p *scriptedPresenter) ShowMessage(text string) error {
	p.messages = append(p.messages, text)
	return nil
}

func (p *scriptedPresenter) ShowFixation(hold time.Duration) error {
	p.fixations = append(p.fixations, hold)
	return nil
}

func (p *scriptedPresenter) Search(placements []Placement) (Response, error) {
	p.searches++
	if p.quitAt > 0 && p.searches == p.quitAt {
		return Response{}, ErrQuit
	}
	p.placed = append(p.placed, placements)
	key := p.keys[0]
	p.keys = p.keys[1:]
	return Response{Key: key, RT: 1234567 * time.Microsecond}, nil
}

type recordingTracker struct {
	calls []string
	areas []InterestArea
	vars  map[string]string
}

func (t *recordingTracker) BeginTrial(status string) error {
	t.calls = append(t.calls, "begin:"+status)
	return nil
}

func (t *recordingTracker) MarkInterestArea(ia InterestArea) error {
	t.areas = append(t.areas, ia)
	return nil
}

func (t *recordingTracker) StartRecording() error { t.calls = append(t.calls, "on"); return nil }
func (t *recordingTracker) StopRecording() error  { t.calls = append(t.calls, "off"); return nil }
func (t *recordingTracker) EndTrial() error       { t.calls = append(t.calls, "end"); return nil }
func (t *recordingTracker) EndSession() error     { t.calls = append(t.calls, "session"); return nil }

func (t *recordingTracker) SendVar(name, value string) error {
	if t.vars == nil {
		t.vars = map[string]string{}
	}
	t.vars[name] = value
	return nil
}

func (t *recordingTracker) count(call string) int {
	n := 0
	for _, c := range t.calls {
		if c == call {
			n++
		}
	}
	return n
}

type memorySink struct {
	results []Result
}

func (s *memorySink) WriteResult(r Result, _ trials.Trial) error {
	s.results = append(s.results, r)
	return nil
}

type stoppedClock struct{ now time.Duration }

func (c *stoppedClock) Elapsed() time.Duration { return c.now }
func (c *stoppedClock) Reset()                 { c.now = 0 }

func makeTrial(num int, typ trials.TrialType) trials.Trial {
	images := make([]*trials.Image, trials.TrialSize)
	for i := range images {
		images[i] = &trials.Image{
			Name:       fmt.Sprintf("img_%d_%d", num, i),
			Categories: []string{fmt.Sprintf("L0_%d", i), "L1"},
		}
	}
	t, err := trials.NewTrial(num, typ, images)
	if err != nil {
		panic(err)
	}
	return t
}

func newRunner(p *scriptedPresenter, tr *recordingTracker, sink Sink) *Runner {
	rng := rand.New(rand.NewPCG(1, 2))
	return &Runner{
		Subject:   Subject{ID: "s01", Target: "Cats"},
		Presenter: p,
		Tracker:   tr,
		Sink:      sink,
		Probe:     probe.NewScheduler(&stoppedClock{}, p, rng),
		Clock:     &stoppedClock{},
		Rand:      rng,
		Questions: DefaultQuestions(),
	}
}

func TestRunWritesOneRowPerTrial(t *testing.T) {
	p := &scriptedPresenter{
		keys:    []string{KeyPresent, KeyAbsent, KeyPresent},
		ratings: []float64{5, 2, 3},
	}
	tr := &recordingTracker{}
	sink := &memorySink{}
	r := newRunner(p, tr, sink)

	blocks := [][]trials.Trial{
		{makeTrial(1, trials.TrialTarget), makeTrial(2, trials.TrialSimilar)},
		{makeTrial(3, trials.TrialRandom)},
	}
	if err := r.Run(nil, blocks); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(sink.results))
	}
	want := []struct {
		bnum     int
		tar, sim bool
		rtype    string
	}{
		{1, true, false, "hi"},
		{1, true, true, "cr"},
		{2, false, false, "fa"},
	}
	for i, w := range want {
		res := sink.results[i]
		if res.TrialNum != i+1 || res.BlockNum != w.bnum || res.TargetPresent != w.tar ||
			res.SimilarPresent != w.sim || res.RType != w.rtype {
			t.Fatalf("row %d: unexpected %+v", i, res)
		}
		if res.RTMillis != 1234.57 {
			t.Fatalf("row %d: expected rt 1234.57, got %v", i, res.RTMillis)
		}
		if len(res.Answers) != 2 || res.Answers[0] != 5 || res.Answers[1] != 2 {
			t.Fatalf("row %d: unexpected answers %v", i, res.Answers)
		}
	}
	if sink.results[0].Probe != nil || sink.results[1].Probe != nil {
		t.Fatalf("no probe expected before the last trial")
	}
	if last := sink.results[2].Probe; last == nil || last.Rating != 3 {
		t.Fatalf("expected probe with rating 3 on last trial, got %+v", last)
	}

	if len(p.messages) != 1 || !strings.Contains(p.messages[0], "You are looking for Cats!") {
		t.Fatalf("instructions not shown: %v", p.messages)
	}
	if p.prompts[0] != "How hungry are you?" || p.prompts[2] != probe.TUTPrompt {
		t.Fatalf("unexpected prompts: %v", p.prompts)
	}
	if tr.count("session") != 1 {
		t.Fatalf("expected one session end, got %d", tr.count("session"))
	}
	if tr.vars["tnum"] != "3" || tr.vars["tutra"] != "3" || tr.vars["rtype"] != "fa" {
		t.Fatalf("unexpected tracker vars: %v", tr.vars)
	}
	// pupil hold + ISI per trial
	if len(p.fixations) != 6 || p.fixations[0] != DefaultPupilHold || p.fixations[1] != DefaultISI {
		t.Fatalf("unexpected fixations: %v", p.fixations)
	}
}

func TestRunInterestAreas(t *testing.T) {
	p := &scriptedPresenter{keys: []string{KeyAbsent}, ratings: []float64{1, 1, 0}}
	tr := &recordingTracker{}
	r := newRunner(p, tr, &memorySink{})
	trial := makeTrial(1, trials.TrialRandom)
	if err := r.Run(nil, [][]trials.Trial{{trial}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	// pupil fixation, search fixation, ten images
	if len(tr.areas) != 12 {
		t.Fatalf("expected 12 interest areas, got %d", len(tr.areas))
	}
	if tr.areas[0].Name != "pfixation" || tr.areas[1].Name != "fixation" {
		t.Fatalf("unexpected fixation areas: %+v", tr.areas[:2])
	}
	for i, ia := range tr.areas[2:] {
		if ia.ID != i+2 || ia.Name != trial.Images[i].Label() || ia.Size != ImageSize {
			t.Fatalf("area %d: unexpected %+v", i, ia)
		}
	}
	if tr.calls[0] != "begin:Pupil Time" {
		t.Fatalf("expected pupil time first, got %v", tr.calls)
	}
	if !containsCall(tr.calls, "begin:Experiment 100% complete. Current Trial: 1") {
		t.Fatalf("missing progress status: %v", tr.calls)
	}
}

func containsCall(calls []string, call string) bool {
	for _, c := range calls {
		if c == call {
			return true
		}
	}
	return false
}

func TestRunQuitEndsSessionWithoutPartialRow(t *testing.T) {
	p := &scriptedPresenter{keys: []string{KeyAbsent}, ratings: []float64{4, 4}, quitAt: 2}
	tr := &recordingTracker{}
	sink := &memorySink{}
	r := newRunner(p, tr, sink)
	blocks := [][]trials.Trial{{makeTrial(1, trials.TrialRandom), makeTrial(2, trials.TrialTarget)}}

	err := r.Run(nil, blocks)
	if !IsQuit(err) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	if len(sink.results) != 1 {
		t.Fatalf("expected only the completed trial to be logged, got %d rows", len(sink.results))
	}
	if tr.count("session") != 1 {
		t.Fatalf("tracker session not ended on quit")
	}
}

func TestRunPracticeIsNotLogged(t *testing.T) {
	p := &scriptedPresenter{keys: []string{KeyAbsent, KeyPresent}, ratings: []float64{1, 2, 3}}
	tr := &recordingTracker{}
	sink := &memorySink{}
	r := newRunner(p, tr, sink)

	practice := []trials.Trial{makeTrial(1, trials.TrialRandom)}
	if err := r.Run(practice, [][]trials.Trial{{makeTrial(1, trials.TrialTarget)}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.results) != 1 || sink.results[0].RType != "hi" || sink.results[0].TrialNum != 1 {
		t.Fatalf("unexpected results %+v", sink.results)
	}
	if p.searches != 2 {
		t.Fatalf("expected 2 search displays, got %d", p.searches)
	}
	if !containsCall(tr.calls, "begin:Practice") {
		t.Fatalf("practice trial not announced to tracker: %v", tr.calls)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		typ  trials.TrialType
		key  string
		want string
	}{
		{trials.TrialTarget, KeyPresent, "hi"},
		{trials.TrialTarget, KeyAbsent, "mi"},
		{trials.TrialSimilar, KeyPresent, "fa"},
		{trials.TrialSimilar, KeyAbsent, "cr"},
		{trials.TrialRandom, KeyPresent, "fa"},
		{trials.TrialRandom, KeyAbsent, "cr"},
		{trials.TrialRandom, "x", ""},
	}
	for _, tt := range tests {
		if got := Score(tt.typ, tt.key); got != tt.want {
			t.Fatalf("Score(%s, %s) = %q, want %q", tt.typ, tt.key, got, tt.want)
		}
	}
}

func TestSlots(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	slots := Slots(rng, SlotJitter)
	if len(slots) != trials.TrialSize {
		t.Fatalf("expected %d slots, got %d", trials.TrialSize, len(slots))
	}
	for i, s := range slots {
		if math.Abs(s.X) < 5 && math.Abs(s.Y) < 1 {
			t.Fatalf("slot %d at %+v is in the cleared centre", i, s)
		}
	}
	exact := Slots(rng, 0)
	if exact[0] != (Position{X: -10, Y: -4}) || exact[9] != (Position{X: 10, Y: 4}) {
		t.Fatalf("unexpected grid corners: %+v %+v", exact[0], exact[9])
	}
	for i := range slots {
		if math.Abs(slots[i].X-exact[i].X) > SlotJitter || math.Abs(slots[i].Y-exact[i].Y) > SlotJitter {
			t.Fatalf("slot %d jitter too large: %+v vs %+v", i, slots[i], exact[i])
		}
	}
}

func TestResultsLog(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewResultsLog(&buf)
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	rows := []Result{
		{Subject: "s01", Target: "Cats", TrialNum: 1, BlockNum: 1, Key: "space", RType: "cr", RTMillis: 812.5, Time: 3.25, Answers: []float64{4, 6}},
		{Subject: "s01", Target: "Cats", TrialNum: 2, BlockNum: 1, TargetPresent: true, Key: "return", RType: "hi", RTMillis: 400, Time: 9, Probe: &probe.Result{Rating: 2, Elapsed: 17.5}},
	}
	for _, r := range rows {
		if err := l.WriteResult(r, trials.Trial{}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	want := "sub,tcateg,tnum,bnum,tar,sim,resp,rtype,rt,time,tutra,tuttime,hunger,tired\n" +
		"s01,Cats,1,1,false,false,space,cr,812.5,3.25,NA,NA,4,6\n" +
		"s01,Cats,2,1,true,false,return,hi,400,9,2,17.5,NA,NA\n"
	if buf.String() != want {
		t.Fatalf("unexpected log:\n%s\nwant:\n%s", buf.String(), want)
	}
}
