package trials

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strconv"
)

var RecorderHeader = []string{"tnum", "name", "position", "trial_type"}

// Row is one image slot of one recorded trial.
type Row struct {
	TrialNum int
	Name     string
	Position int
	Type     TrialType
}

// Rows projects trials onto recorder rows, one per image slot.
func Rows(trials []Trial) []Row {
	rows := make([]Row, 0, len(trials)*TrialSize)
	for _, t := range trials {
		for pos, img := range t.Images {
			rows = append(rows, Row{TrialNum: t.Num, Name: img.Name, Position: pos, Type: t.Type})
		}
	}
	return rows
}

// Record generates every block and returns the rows, numbered from 1 across blocks.
func Record(g *Generator, blocks []Block) ([]Row, error) {
	generated, err := g.GenerateBlocks(blocks)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for _, ts := range generated {
		rows = append(rows, Rows(ts)...)
	}
	return rows, nil
}

func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RecorderHeader); err != nil {
		return err
	}
	for _, r := range rows {
		err := cw.Write([]string{
			strconv.Itoa(r.TrialNum),
			r.Name,
			strconv.Itoa(r.Position),
			r.Type.String(),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(RecorderHeader)
	var rows []Row
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 {
			continue
		}
		tnum, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid tnum: %v", line, err)
		}
		pos, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid position: %v", line, err)
		}
		typ, err := ParseTrialType(record[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line, err)
		}
		rows = append(rows, Row{TrialNum: tnum, Name: record[1], Position: pos, Type: typ})
	}
	return rows, nil
}

// Replay rebuilds trials from recorder rows in recorded (trial number) order.
func Replay(rows []Row, catalog *Catalog) ([]Trial, error) {
	byNum := make(map[int][]Row)
	var nums []int
	for _, r := range rows {
		if _, ok := byNum[r.TrialNum]; !ok {
			nums = append(nums, r.TrialNum)
		}
		byNum[r.TrialNum] = append(byNum[r.TrialNum], r)
	}
	sort.Ints(nums)

	out := make([]Trial, 0, len(nums))
	for _, num := range nums {
		group := byNum[num]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Position < group[j].Position })

		typ := group[0].Type
		images := make([]*Image, 0, len(group))
		for i, r := range group {
			if r.Position != i {
				return nil, fmt.Errorf("trial %d: positions must be 0..%d exactly once, found %d at slot %d", num, TrialSize-1, r.Position, i)
			}
			if r.Type != typ {
				return nil, fmt.Errorf("trial %d: mixed trial types %s and %s", num, typ, r.Type)
			}
			img, ok := catalog.Lookup(r.Name)
			if !ok {
				return nil, &MissingImageError{Name: r.Name, Available: catalog.Names()}
			}
			images = append(images, img)
		}
		t, err := NewTrial(num, typ, images)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// SplitBlocks cuts trials into blocks by trial number: block i holds the
// numbers following the previous blocks' totals. With no plan everything is
// one block.
func SplitBlocks(trials []Trial, blocks []Block) ([][]Trial, error) {
	if len(blocks) == 0 {
		return [][]Trial{trials}, nil
	}
	out := make([][]Trial, len(blocks))
	for _, t := range trials {
		hi := 0
		idx := -1
		for i, b := range blocks {
			hi += b.Total()
			if t.Num <= hi {
				idx = i
				break
			}
		}
		if idx < 0 || t.Num < 1 {
			return nil, fmt.Errorf("trial %d outside block plan of %d trials", t.Num, hi)
		}
		out[idx] = append(out[idx], t)
	}
	return out, nil
}

func Shuffle(trials []Trial, rng *rand.Rand) {
	rng.Shuffle(len(trials), func(i, j int) { trials[i], trials[j] = trials[j], trials[i] })
}
