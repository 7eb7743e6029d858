package daytime

import "fmt"

var defaultAssets = [...]string{
	Night:   "goldenhour.night",
	Morning: "goldenhour.morning",
	Day:     "goldenhour.day",
	Evening: "goldenhour.evening",
}

// Assets maps every phase to the opaque identifier written into the asset index.
type Assets struct {
	ids [count]string
}

// DefaultAssets returns the built-in identifiers.
func DefaultAssets() Assets {
	return Assets{ids: defaultAssets}
}

// NewAssets builds a mapping from explicit identifiers. Empty values fall back
// to the built-in identifier for that phase.
func NewAssets(night, morning, day, evening string) Assets {
	a := DefaultAssets()
	for t, id := range map[TimeOfDay]string{Night: night, Morning: morning, Day: day, Evening: evening} {
		if id != "" {
			a.ids[t] = id
		}
	}
	return a
}

// ID returns the asset identifier for t.
func (a Assets) ID(t TimeOfDay) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("no asset for invalid time of day %d", int(t))
	}
	return a.ids[t], nil
}
