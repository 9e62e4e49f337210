package trials

import (
	"math/rand/v2"
	"sort"
)

// DefaultMaxAttempts caps rejection sampling per slot.
const DefaultMaxAttempts = 1000

// Generator assembles trials from a catalog under a policy. Every random
// draw goes through Rand.
type Generator struct {
	Catalog     *Catalog
	Policy      Policy
	Rand        *rand.Rand
	MaxAttempts int
}

func NewGenerator(catalog *Catalog, policy Policy, rng *rand.Rand) *Generator {
	return &Generator{
		Catalog:     catalog,
		Policy:      policy,
		Rand:        rng,
		MaxAttempts: DefaultMaxAttempts,
	}
}

type pools struct {
	targets     []*Image
	similars    []*Image
	distractors []*Image
	groups      [][]*Image
	// groups without the similar category, for similar trials
	foilGroups [][]*Image
}

func (g *Generator) pools() (*pools, error) {
	if err := g.Policy.Validate(); err != nil {
		return nil, err
	}
	p := &pools{
		targets:     g.Catalog.FilterByLevel0(g.Policy.Target),
		similars:    g.Catalog.FilterByLevel0(g.Policy.Similar),
		distractors: g.Catalog.Filter(g.Policy.IsDistractor),
	}
	if len(p.targets) == 0 {
		return nil, &ConfigurationError{Role: "target", Category: g.Policy.Target}
	}
	if len(p.similars) == 0 {
		return nil, &ConfigurationError{Role: "similar", Category: g.Policy.Similar}
	}
	if g.Policy.Remove != "" && len(g.Catalog.FilterByLevel0(g.Policy.Remove)) == 0 {
		return nil, &ConfigurationError{Role: "remove", Category: g.Policy.Remove}
	}

	p.groups = sortedGroups(g.Catalog.GroupByLevel1(g.Policy.IsDistractor))
	p.foilGroups = sortedGroups(g.Catalog.GroupByLevel1(func(img *Image) bool {
		return g.Policy.IsDistractor(img) && img.Level0() != g.Policy.Similar
	}))
	return p, nil
}

func sortedGroups(byLevel1 map[string][]*Image) [][]*Image {
	labels := make([]string, 0, len(byLevel1))
	for label := range byLevel1 {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	groups := make([][]*Image, 0, len(labels))
	for _, label := range labels {
		groups = append(groups, byLevel1[label])
	}
	return groups
}

// Generate produces b.Total() trials in shuffled order, numbered from 1.
func (g *Generator) Generate(b Block) ([]Trial, error) {
	p, err := g.pools()
	if err != nil {
		return nil, err
	}

	out := make([]Trial, 0, b.Total())
	counts := []struct {
		typ TrialType
		n   int
	}{
		{TrialTarget, b.Targets},
		{TrialSimilar, b.Similars},
		{TrialRandom, b.Randoms},
	}
	for _, c := range counts {
		for i := 0; i < c.n; i++ {
			images, err := g.fill(c.typ, p)
			if err != nil {
				return nil, err
			}
			out = append(out, Trial{Type: c.typ, Images: images})
		}
	}

	g.Rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	for i := range out {
		out[i].Num = i + 1
	}
	return out, nil
}

// GenerateBlocks runs Generate for each block and numbers the trials
// consecutively across blocks.
func (g *Generator) GenerateBlocks(blocks []Block) ([][]Trial, error) {
	out := make([][]Trial, 0, len(blocks))
	next := 1
	for _, b := range blocks {
		ts, err := g.Generate(b)
		if err != nil {
			return nil, err
		}
		for i := range ts {
			ts[i].Num = next
			next++
		}
		out = append(out, ts)
	}
	return out, nil
}

func (g *Generator) fill(typ TrialType, p *pools) ([]*Image, error) {
	images := make([]*Image, 0, TrialSize)
	switch typ {
	case TrialTarget:
		images = append(images, p.targets[g.Rand.IntN(len(p.targets))])
	case TrialSimilar:
		images = append(images,
			p.targets[g.Rand.IntN(len(p.targets))],
			p.similars[g.Rand.IntN(len(p.similars))],
		)
	}

	groups := p.groups
	if typ == TrialSimilar {
		groups = p.foilGroups
	}
	if free := TrialSize - len(images); len(groups) > free {
		groups = append([][]*Image(nil), groups...)
		g.Rand.Shuffle(len(groups), func(i, j int) { groups[i], groups[j] = groups[j], groups[i] })
		groups = groups[:free]
	}
	for _, group := range groups {
		img, err := g.draw(typ, group, images)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	for len(images) < TrialSize {
		img, err := g.draw(typ, p.distractors, images)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	g.Rand.Shuffle(len(images), func(i, j int) { images[i], images[j] = images[j], images[i] })
	return images, nil
}

// draw picks uniformly from pool until it finds an image whose level-0
// category is not yet in the trial. In similar trials the similar category
// is never drawn as a distractor.
func (g *Generator) draw(typ TrialType, pool []*Image, have []*Image) (*Image, error) {
	limit := g.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}
	if len(pool) == 0 {
		return nil, &ExhaustedSamplingError{Type: typ, Have: len(have)}
	}
	for attempt := 0; attempt < limit; attempt++ {
		img := pool[g.Rand.IntN(len(pool))]
		if typ == TrialSimilar && img.Level0() == g.Policy.Similar {
			continue
		}
		if !hasLevel0(have, img.Level0()) {
			return img, nil
		}
	}
	return nil, &ExhaustedSamplingError{Type: typ, Have: len(have), Attempts: limit}
}

func hasLevel0(images []*Image, label string) bool {
	for _, img := range images {
		if img.Level0() == label {
			return true
		}
	}
	return false
}
