package trials

import (
	"fmt"
	"strconv"
	"strings"
)

const TrialSize = 10

type TrialType int

const (
	TrialTarget TrialType = iota
	TrialSimilar
	TrialRandom
)

func (t TrialType) String() string {
	switch t {
	case TrialTarget:
		return "target"
	case TrialSimilar:
		return "similar"
	case TrialRandom:
		return "random"
	}
	return "TrialType(" + strconv.Itoa(int(t)) + ")"
}

func ParseTrialType(s string) (TrialType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "target":
		return TrialTarget, nil
	case "similar":
		return TrialSimilar, nil
	case "random":
		return TrialRandom, nil
	}
	return 0, fmt.Errorf("unknown trial type: %s", s)
}

// Trial is one search display. Images are in slot order.
type Trial struct {
	Num    int
	Type   TrialType
	Images []*Image
}

func NewTrial(num int, typ TrialType, images []*Image) (Trial, error) {
	if typ < TrialTarget || typ > TrialRandom {
		return Trial{}, fmt.Errorf("trial %d: invalid type %d", num, typ)
	}
	if len(images) != TrialSize {
		return Trial{}, fmt.Errorf("trial %d: %d images, want %d", num, len(images), TrialSize)
	}
	for i, img := range images {
		if img == nil {
			return Trial{}, fmt.Errorf("trial %d: nil image in slot %d", num, i)
		}
	}
	return Trial{Num: num, Type: typ, Images: images}, nil
}

// TargetPresent is true for target and similar trials (both contain a target image).
func (t Trial) TargetPresent() bool {
	return t.Type == TrialTarget || t.Type == TrialSimilar
}

func (t Trial) SimilarPresent() bool {
	return t.Type == TrialSimilar
}

// Block is a batch of trials produced under one policy.
type Block struct {
	Targets  int
	Similars int
	Randoms  int
}

func (b Block) Total() int {
	return b.Targets + b.Similars + b.Randoms
}

// DefaultBlocks is the five-block plan used in the mind-wandering study.
func DefaultBlocks() []Block {
	blocks := make([]Block, 5)
	for i := range blocks {
		blocks[i] = Block{Targets: 8, Similars: 4, Randoms: 48}
	}
	return blocks
}

// ParseBlock reads "targets,similars,randoms".
func ParseBlock(s string) (Block, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Block{}, fmt.Errorf("block %q: want targets,similars,randoms", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return Block{}, fmt.Errorf("block %q: invalid count %q", s, p)
		}
		n[i] = v
	}
	return Block{Targets: n[0], Similars: n[1], Randoms: n[2]}, nil
}

// ParseBlocks reads blocks separated by ';'. Empty entries are skipped.
func ParseBlocks(s string) ([]Block, error) {
	var blocks []Block
	for _, part := range strings.Split(s, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		b, err := ParseBlock(part)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func FormatBlocks(blocks []Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = fmt.Sprintf("%d,%d,%d", b.Targets, b.Similars, b.Randoms)
	}
	return strings.Join(parts, ";")
}
