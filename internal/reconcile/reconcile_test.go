package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	"git.home.luguber.info/inful/goldenhour/internal/suntimes"
)

func at(h, m int) time.Time {
	return time.Date(2024, 6, 21, h, m, 0, 0, time.UTC)
}

var gh = suntimes.DailyGoldenHours{
	Date:         at(0, 0),
	MorningStart: at(5, 12),
	EveningStart: at(20, 47),
}

func TestReconcileTruthTable(t *testing.T) {
	instants := []time.Time{
		at(0, 0),
		at(5, 11),
		at(5, 12),
		at(6, 0),
		at(20, 46),
		at(20, 47),
		at(23, 59),
	}

	for _, now := range instants {
		for _, observedIsNight := range []bool{true, false} {
			t.Run(fmt.Sprintf("%s/night=%v", now.Format("15:04"), observedIsNight), func(t *testing.T) {
				got, ok := Reconcile(now, gh, observedIsNight)

				inDay := !now.Before(gh.MorningStart) && now.Before(gh.EveningStart)
				pastEvening := !now.Before(gh.EveningStart)

				switch {
				case inDay && observedIsNight:
					require.True(t, ok)
					assert.Equal(t, daytime.Morning, got)
				case pastEvening && !observedIsNight:
					require.True(t, ok)
					assert.Equal(t, daytime.Evening, got)
				default:
					assert.False(t, ok)
				}
			})
		}
	}
}

func TestReconcileWakeAfterMorning(t *testing.T) {
	got, ok := Reconcile(at(6, 0), gh, true)
	require.True(t, ok)
	assert.Equal(t, daytime.Morning, got)
}

func TestReconcileBeforeMorningWaits(t *testing.T) {
	_, ok := Reconcile(at(4, 0), gh, true)
	assert.False(t, ok)
	_, ok = Reconcile(at(4, 0), gh, false)
	assert.False(t, ok)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "none", Outcome(daytime.Morning, false))
	assert.Equal(t, "evening", Outcome(daytime.Evening, true))
}
