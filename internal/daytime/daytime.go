// Package daytime defines the four phases of the golden-hour cycle and the
// asset identifier each phase is rendered with.
package daytime

import (
	"fmt"
	"strings"
)

// TimeOfDay is one phase of the daily cycle Night → Morning → Day → Evening → Night.
type TimeOfDay int

const (
	Night TimeOfDay = iota
	Morning
	Day
	Evening

	// count must stay last.
	count
)

// All lists every phase in cycle order.
func All() []TimeOfDay {
	return []TimeOfDay{Night, Morning, Day, Evening}
}

var names = [...]string{
	Night:   "night",
	Morning: "morning",
	Day:     "day",
	Evening: "evening",
}

// Both arrays below are indexed by TimeOfDay. Adding a phase without
// extending them fails to compile.
var (
	_ = [1]struct{}{}[len(names)-int(count)]
	_ = [1]struct{}{}[len(defaultAssets)-int(count)]
)

func (t TimeOfDay) String() string {
	if !t.Valid() {
		return fmt.Sprintf("TimeOfDay(%d)", int(t))
	}
	return names[t]
}

// Valid reports whether t is one of the declared phases.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < count
}

// Next returns the phase that follows t in the cycle.
func (t TimeOfDay) Next() TimeOfDay {
	return (t + 1) % count
}

// Dark reports whether the phase renders with a dark appearance.
func (t TimeOfDay) Dark() bool {
	return t == Evening || t == Night
}

// Parse converts a case-insensitive phase name.
func Parse(raw string) (TimeOfDay, error) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	for i, n := range names {
		if n == cleaned {
			return TimeOfDay(i), nil
		}
	}
	return 0, fmt.Errorf("unknown time of day %q (valid: night, morning, day, evening)", raw)
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid time of day %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
