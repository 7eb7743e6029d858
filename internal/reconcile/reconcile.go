// Package reconcile decides whether the applied phase must be corrected after
// the host slept, restarted or otherwise missed a transition.
package reconcile

import (
	"time"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	"git.home.luguber.info/inful/goldenhour/internal/suntimes"
)

// Reconcile returns the phase to apply now, if any:
//
//   - Morning when now is inside [MorningStart, EveningStart) but the observed
//     state is still night (the morning transition was missed).
//   - Evening when now is at or past EveningStart but the observed state is
//     not night (the evening transition was missed).
//
// Otherwise nothing is corrected; before MorningStart the current state waits
// for its timer.
func Reconcile(now time.Time, gh suntimes.DailyGoldenHours, observedIsNight bool) (daytime.TimeOfDay, bool) {
	switch {
	case gh.Contains(now) && observedIsNight:
		return daytime.Morning, true
	case !now.Before(gh.EveningStart) && !observedIsNight:
		return daytime.Evening, true
	default:
		return 0, false
	}
}

// Outcome names a reconciliation result for logs and metrics.
func Outcome(tod daytime.TimeOfDay, corrected bool) string {
	if !corrected {
		return "none"
	}
	return tod.String()
}
