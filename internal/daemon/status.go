package daemon

import (
	"time"

	"git.home.luguber.info/inful/goldenhour/internal/controller"
	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
	"git.home.luguber.info/inful/goldenhour/internal/transition"
	"git.home.luguber.info/inful/goldenhour/internal/version"
)

// Status represents the lifecycle state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// HealthStatus summarises whether the daemon can do its job.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// StatusReport is served on /status.
type StatusReport struct {
	Status    Status       `json:"status"`
	Health    HealthStatus `json:"health"`
	Version   string       `json:"version"`
	StartTime time.Time    `json:"start_time,omitzero"`
	Uptime    string       `json:"uptime,omitempty"`
	Phase     string       `json:"phase"`

	LocationSource     string          `json:"location_source"`
	LocationAuthorized bool            `json:"location_authorized"`
	Location           *geo.Coordinate `json:"location,omitempty"`
	LocationAt         time.Time       `json:"location_at,omitzero"`

	LastApplied *daytime.TimeOfDay   `json:"last_applied,omitempty"`
	AppliedAt   time.Time            `json:"applied_at,omitzero"`
	Next        map[string]time.Time `json:"next_transitions,omitempty"`
	ThemeDark   *bool                `json:"theme_dark,omitempty"`
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() Status {
	status, ok := d.status.Load().(Status)
	if !ok {
		return StatusError
	}
	return status
}

// Health derives the health from the lifecycle status and controller phase.
// A running daemon without a location is degraded: nothing is scheduled.
func (d *Daemon) Health() HealthStatus {
	if d.GetStatus() != StatusRunning {
		return HealthStatusUnhealthy
	}
	switch d.ctrl.Phase() {
	case controller.Scheduled:
		return HealthStatusHealthy
	case controller.AwaitingLocation:
		return HealthStatusDegraded
	default:
		return HealthStatusUnhealthy
	}
}

// GenerateStatus collects the status report.
func (d *Daemon) GenerateStatus() *StatusReport {
	d.mu.RLock()
	started := d.startTime
	d.mu.RUnlock()

	report := &StatusReport{
		Status:             d.GetStatus(),
		Health:             d.Health(),
		Version:            version.Version,
		Phase:              d.ctrl.Phase().String(),
		LocationSource:     d.source.Name(),
		LocationAuthorized: d.source.Authorized(),
	}
	if !started.IsZero() {
		report.StartTime = started
		report.Uptime = d.clock.Since(started).Round(time.Second).String()
	}

	snap := d.store.Snapshot()
	report.Location = snap.LastLocation
	report.LocationAt = snap.LocationAt
	report.LastApplied = snap.LastApplied
	report.AppliedAt = snap.AppliedAt

	for _, kind := range transition.Kinds() {
		if at, ok := d.ctrl.Pending(kind); ok {
			if report.Next == nil {
				report.Next = make(map[string]time.Time)
			}
			report.Next[kind.String()] = at
		}
	}

	if d.observer != nil {
		if dark, known := d.observer.Dark(); known {
			report.ThemeDark = &dark
		}
	}
	return report
}
