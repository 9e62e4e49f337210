package trials

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"
)

var catsPolicy = Policy{Target: "Cats", Similar: "Dogs", Remove: "Utility_Vehicles"}

func testCatalog() *Catalog {
	layout := map[string][]string{
		"Mammals":  {"Cats", "Dogs", "Horses", "Bears"},
		"Birds":    {"Owls", "Ducks"},
		"Vehicles": {"Cars_Trucks", "Utility_Vehicles", "Boats"},
		"Plants":   {"Trees", "Flowers"},
		"Clothes":  {"Tops", "Bottoms"},
	}
	level1s := make([]string, 0, len(layout))
	for level1 := range layout {
		level1s = append(level1s, level1)
	}
	sort.Strings(level1s)
	var images []Image
	for _, level1 := range level1s {
		for _, level0 := range layout[level1] {
			for i := 1; i <= 3; i++ {
				images = append(images, Image{
					Name:       fmt.Sprintf("%s_%d", level0, i),
					Categories: []string{level0, level1},
				})
			}
		}
	}
	return NewCatalog(images)
}

func newTestRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func countLevel0(t Trial, label string) int {
	n := 0
	for _, img := range t.Images {
		if img.Level0() == label {
			n++
		}
	}
	return n
}

func TestGenerateBlockCounts(t *testing.T) {
	g := NewGenerator(testCatalog(), catsPolicy, newTestRand(1))
	ts, err := g.Generate(Block{Targets: 8, Similars: 4, Randoms: 48})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(ts) != 60 {
		t.Fatalf("expected 60 trials, got %d", len(ts))
	}
	counts := map[TrialType]int{}
	for i, tr := range ts {
		counts[tr.Type]++
		if tr.Num != i+1 {
			t.Fatalf("trial %d numbered %d", i, tr.Num)
		}
	}
	if counts[TrialTarget] != 8 || counts[TrialSimilar] != 4 || counts[TrialRandom] != 48 {
		t.Fatalf("unexpected type counts: %v", counts)
	}
}

func TestGenerateShufflesTrialsAndSlots(t *testing.T) {
	firstTypes := map[TrialType]bool{}
	targetSlots := map[int]bool{}
	similarSlots := map[int]bool{}
	for seed := uint64(0); seed < 60; seed++ {
		g := NewGenerator(testCatalog(), catsPolicy, newTestRand(seed))
		ts, err := g.Generate(Block{Targets: 8, Similars: 4, Randoms: 48})
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		firstTypes[ts[0].Type] = true
		for _, tr := range ts {
			for pos, img := range tr.Images {
				switch img.Level0() {
				case catsPolicy.Target:
					targetSlots[pos] = true
				case catsPolicy.Similar:
					if tr.Type == TrialSimilar {
						similarSlots[pos] = true
					}
				}
			}
		}
	}
	if !firstTypes[TrialRandom] || len(firstTypes) < 2 {
		t.Fatalf("trial order not shuffled: first trial types seen %v", firstTypes)
	}
	if len(targetSlots) < 2 || len(similarSlots) < 2 {
		t.Fatalf("images not shuffled across slots: target %v, similar %v", targetSlots, similarSlots)
	}
}

func TestGenerateInvariants(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		g := NewGenerator(testCatalog(), catsPolicy, newTestRand(seed))
		ts, err := g.Generate(Block{Targets: 5, Similars: 5, Randoms: 5})
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		for _, tr := range ts {
			if len(tr.Images) != TrialSize {
				t.Fatalf("seed %d trial %d: %d images", seed, tr.Num, len(tr.Images))
			}
			seen := map[string]bool{}
			for _, img := range tr.Images {
				if seen[img.Level0()] {
					t.Fatalf("seed %d trial %d: duplicate level-0 %s", seed, tr.Num, img.Level0())
				}
				seen[img.Level0()] = true
			}
			if n := countLevel0(tr, catsPolicy.Remove); n != 0 {
				t.Fatalf("seed %d trial %d: %d removed images", seed, tr.Num, n)
			}
			targets, similars := countLevel0(tr, "Cats"), countLevel0(tr, "Dogs")
			switch tr.Type {
			case TrialTarget:
				if targets != 1 {
					t.Fatalf("target trial with %d targets", targets)
				}
			case TrialSimilar:
				if targets != 1 || similars != 1 {
					t.Fatalf("similar trial with %d targets, %d similars", targets, similars)
				}
			case TrialRandom:
				if targets != 0 {
					t.Fatalf("random trial with %d targets", targets)
				}
			}
		}
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	names := func() []string {
		g := NewGenerator(testCatalog(), catsPolicy, newTestRand(42))
		ts, err := g.Generate(Block{Targets: 2, Similars: 2, Randoms: 2})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		var out []string
		for _, r := range Rows(ts) {
			out = append(out, fmt.Sprintf("%d/%s/%d", r.TrialNum, r.Name, r.Position))
		}
		return out
	}
	a, b := names(), names()
	if len(a) != len(b) {
		t.Fatalf("length mismatch %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestGenerateConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		role   string
	}{
		{"missing target", Policy{Target: "Unicorns", Similar: "Dogs"}, "target"},
		{"missing similar", Policy{Target: "Cats", Similar: "Wolves"}, "similar"},
		{"missing remove", Policy{Target: "Cats", Similar: "Dogs", Remove: "Rockets"}, "remove"},
		{"same target and similar", Policy{Target: "Cats", Similar: "Cats"}, "similar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(testCatalog(), tt.policy, newTestRand(1))
			_, err := g.Generate(Block{Targets: 1})
			var cerr *ConfigurationError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cerr.Role != tt.role {
				t.Fatalf("expected role %s, got %s", tt.role, cerr.Role)
			}
		})
	}
}

func TestGenerateTooSmallCatalogExhausts(t *testing.T) {
	catalog := NewCatalog([]Image{
		{Name: "A1", Categories: []string{"Cat", "Mammals"}},
		{Name: "A2", Categories: []string{"Cat", "Mammals"}},
		{Name: "B1", Categories: []string{"Dog", "Mammals"}},
		{Name: "B2", Categories: []string{"Dog", "Mammals"}},
		{Name: "C1", Categories: []string{"Bird", "Birds"}},
		{Name: "D1", Categories: []string{"Fish", "Fishes"}},
	})
	g := NewGenerator(catalog, Policy{Target: "Cat", Similar: "Dog", Remove: "Bird"}, newTestRand(3))
	g.MaxAttempts = 50
	_, err := g.Generate(Block{Targets: 1})
	var eerr *ExhaustedSamplingError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected ExhaustedSamplingError, got %v", err)
	}
	if eerr.Type != TrialTarget || eerr.Have != 3 || eerr.Attempts != 50 {
		t.Fatalf("unexpected error detail: %+v", eerr)
	}
}

func TestGenerateMoreGroupsThanSlots(t *testing.T) {
	var images []Image
	images = append(images,
		Image{Name: "t1", Categories: []string{"T", "Targets"}},
		Image{Name: "s1", Categories: []string{"S", "Similars"}},
	)
	for i := 0; i < 15; i++ {
		images = append(images, Image{
			Name:       fmt.Sprintf("d%d", i),
			Categories: []string{fmt.Sprintf("L0_%d", i), fmt.Sprintf("L1_%d", i)},
		})
	}
	g := NewGenerator(NewCatalog(images), Policy{Target: "T", Similar: "S"}, newTestRand(9))
	ts, err := g.Generate(Block{Targets: 3, Similars: 3, Randoms: 3})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, tr := range ts {
		if len(tr.Images) != TrialSize {
			t.Fatalf("%s trial has %d images", tr.Type, len(tr.Images))
		}
	}
}

func TestGenerateBlocksNumbersAcrossBlocks(t *testing.T) {
	g := NewGenerator(testCatalog(), catsPolicy, newTestRand(5))
	blocks, err := g.GenerateBlocks([]Block{{Targets: 1, Randoms: 2}, {Similars: 2}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(blocks) != 2 || len(blocks[0]) != 3 || len(blocks[1]) != 2 {
		t.Fatalf("unexpected block shapes")
	}
	if blocks[1][0].Num != 4 || blocks[1][1].Num != 5 {
		t.Fatalf("expected second block numbered 4..5, got %d,%d", blocks[1][0].Num, blocks[1][1].Num)
	}
}
