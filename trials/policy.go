package trials

import "sort"

// Policy names the level-0 categories that play a special role in a run.
// Remove may be empty when nothing is excluded.
type Policy struct {
	Target  string
	Similar string
	Remove  string
}

func (p Policy) Validate() error {
	if p.Target == "" {
		return &ConfigurationError{Role: "target", Reason: "empty label"}
	}
	if p.Similar == "" {
		return &ConfigurationError{Role: "similar", Reason: "empty label"}
	}
	if p.Similar == p.Target {
		return &ConfigurationError{Role: "similar", Category: p.Similar, Reason: "same as target"}
	}
	if p.Remove != "" && (p.Remove == p.Target || p.Remove == p.Similar) {
		return &ConfigurationError{Role: "remove", Category: p.Remove, Reason: "same as target or similar"}
	}
	return nil
}

// IsDistractor reports whether img may fill a non-target slot.
func (p Policy) IsDistractor(img *Image) bool {
	l0 := img.Level0()
	return l0 != p.Target && (p.Remove == "" || l0 != p.Remove)
}

var presets = map[string]Policy{
	"Cats":             {Target: "Cats", Similar: "Dogs", Remove: "Utility_Vehicles"},
	"Canidae":          {Target: "Canidae", Similar: "Felidae"},
	"Felidae":          {Target: "Felidae", Similar: "Canidae"},
	"Cars_Trucks":      {Target: "Cars_Trucks", Similar: "Utility_Vehicles"},
	"Utility_Vehicles": {Target: "Utility_Vehicles", Similar: "Cars_Trucks"},
	"Tops":             {Target: "Tops", Similar: "Bottoms"},
}

// Preset returns the registered policy whose target is name.
func Preset(name string) (Policy, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetNames lists the registered targets, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
