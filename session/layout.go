package session

import (
	"math/rand/v2"

	"github.com/gtosh4/mindwand/trials"
)

const (
	SlotJitter     = 0.5
	ImageSize      = 3.0
	FixationSize   = 2.0
	FixationAreaID = 1
)

// Slots returns the ten screen positions, in degrees from the centre: a 4x3
// grid without the two middle cells of the centre row, each nudged by up to
// jitter in x and y.
func Slots(rng *rand.Rand, jitter float64) []Position {
	xs := []float64{-10, -10.0 / 3, 10.0 / 3, 10}
	ys := []float64{-4, 0, 4}
	out := make([]Position, 0, trials.TrialSize)
	for yi, y := range ys {
		for xi, x := range xs {
			if yi == 1 && (xi == 1 || xi == 2) {
				continue
			}
			out = append(out, Position{
				X: x + (rng.Float64()*2-1)*jitter,
				Y: y + (rng.Float64()*2-1)*jitter,
			})
		}
	}
	return out
}

// Place pairs each slot of t with a position from Slots.
func Place(t trials.Trial, rng *rand.Rand) []Placement {
	slots := Slots(rng, SlotJitter)
	out := make([]Placement, len(t.Images))
	for i, img := range t.Images {
		out[i] = Placement{Image: img, Pos: slots[i%len(slots)]}
	}
	return out
}
