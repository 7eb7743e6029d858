package events

import (
	"time"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
)

// LocationUpdated carries a raw coordinate from a location source. It has not
// been debounced yet.
type LocationUpdated struct {
	Coordinate geo.Coordinate
	Source     string
	ReceivedAt time.Time
}

// LocationFailed reports that a source could not produce a coordinate.
type LocationFailed struct {
	Source string
	Err    error
}

// Woke is emitted when the host resumed from sleep or the wall clock jumped.
type Woke struct {
	Source string
	At     time.Time
}

// ThemeChanged reports the externally observed appearance. Initial marks the
// first reading after the observer started, which is not a user flip.
type ThemeChanged struct {
	Dark    bool
	Initial bool
	At      time.Time
}

// SwitchRequested asks for a phase to be applied directly, bypassing the
// golden-hour schedule.
type SwitchRequested struct {
	TimeOfDay daytime.TimeOfDay
	Reason    string
}

// AuthorizationChanged reports that a location source may (or may no longer)
// be asked for a coordinate.
type AuthorizationChanged struct {
	Source     string
	Authorized bool
}
