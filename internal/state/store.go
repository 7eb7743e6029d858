// Package state persists the little the controller must remember across
// restarts: the last accepted location and the last applied time of day.
package state

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
)

// FileName is the state file inside the state directory.
const FileName = "goldenhour-state.json"

const schemaVersion = 1

// Snapshot is the persisted state.
type Snapshot struct {
	Version        int                `json:"version"`
	LastLocation   *geo.Coordinate    `json:"last_location,omitempty"`
	LocationSource string             `json:"location_source,omitempty"`
	LocationAt     time.Time          `json:"location_at,omitzero"`
	LastApplied    *daytime.TimeOfDay `json:"last_applied,omitempty"`
	AppliedAt      time.Time          `json:"applied_at,omitzero"`
	UpdatedAt      time.Time          `json:"updated_at,omitzero"`
}

// Store is a JSON file store. Every save rewrites the file atomically.
type Store struct {
	fs    afero.Fs
	path  string
	clock clockwork.Clock

	mu   sync.RWMutex
	snap Snapshot
}

// NewStore opens (or creates) the state file in dir. An unreadable or corrupt
// file is logged and replaced by empty state on the next save.
func NewStore(fs afero.Fs, dir string, clock clockwork.Clock) (*Store, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return nil, ferrors.StateError("failed to create state directory").WithCause(err).
			WithContext("dir", dir).
			Build()
	}

	s := &Store{
		fs:    fs,
		path:  filepath.Join(dir, FileName),
		clock: clock,
		snap:  Snapshot{Version: schemaVersion},
	}
	if err := s.load(); err != nil {
		slog.Warn("Ignoring unreadable state file", logfields.Path(s.path), logfields.Error(err))
	}
	return s, nil
}

// Path returns the state file path.
func (s *Store) Path() string { return s.path }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	if s.snap.LastLocation != nil {
		c := *s.snap.LastLocation
		out.LastLocation = &c
	}
	if s.snap.LastApplied != nil {
		t := *s.snap.LastApplied
		out.LastApplied = &t
	}
	return out
}

// SaveLocation records an accepted coordinate.
func (s *Store) SaveLocation(c geo.Coordinate, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.snap.LastLocation = &c
	s.snap.LocationSource = source
	s.snap.LocationAt = now
	s.snap.UpdatedAt = now
	return s.saveLocked()
}

// SaveApplied records a successfully applied time of day.
func (s *Store) SaveApplied(tod daytime.TimeOfDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.snap.LastApplied = &tod
	s.snap.AppliedAt = now
	s.snap.UpdatedAt = now
	return s.saveLocked()
}

func (s *Store) load() error {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ferrors.StateError("failed to read state file").WithCause(err).Build()
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ferrors.StateError("failed to decode state file").WithCause(err).Build()
	}
	if snap.LastLocation != nil && !snap.LastLocation.Valid() {
		snap.LastLocation = nil
	}
	if snap.LastApplied != nil && !snap.LastApplied.Valid() {
		snap.LastApplied = nil
	}
	snap.Version = schemaVersion
	s.snap = snap
	return nil
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.snap, "", "  ")
	if err != nil {
		return ferrors.StateError("failed to encode state").WithCause(err).Build()
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return ferrors.StateError("failed to write state file").WithCause(err).
			WithContext("path", tmp).
			Build()
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return ferrors.StateError("failed to replace state file").WithCause(err).
			WithContext("path", s.path).
			Build()
	}
	return nil
}
