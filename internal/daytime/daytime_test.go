package daytime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextFollowsCycle(t *testing.T) {
	assert.Equal(t, Morning, Night.Next())
	assert.Equal(t, Day, Morning.Next())
	assert.Equal(t, Evening, Day.Next())
	assert.Equal(t, Night, Evening.Next())
}

func TestDark(t *testing.T) {
	assert.True(t, Night.Dark())
	assert.True(t, Evening.Dark())
	assert.False(t, Morning.Dark())
	assert.False(t, Day.Dark())
}

func TestParseRoundTripsNames(t *testing.T) {
	for _, tod := range All() {
		got, err := Parse(tod.String())
		require.NoError(t, err)
		assert.Equal(t, tod, got)
	}

	got, err := Parse("  EVENING ")
	require.NoError(t, err)
	assert.Equal(t, Evening, got)

	_, err = Parse("dusk")
	require.Error(t, err)
}

func TestEveryPhaseHasAnAsset(t *testing.T) {
	assets := DefaultAssets()
	seen := make(map[string]TimeOfDay)
	for _, tod := range All() {
		id, err := assets.ID(tod)
		require.NoError(t, err)
		require.NotEmpty(t, id, "phase %s", tod)
		if prev, dup := seen[id]; dup {
			t.Fatalf("asset %q shared by %s and %s", id, prev, tod)
		}
		seen[id] = tod
	}

	_, err := assets.ID(TimeOfDay(42))
	require.Error(t, err)
}

func TestNewAssetsOverridesOnlyNonEmpty(t *testing.T) {
	assets := NewAssets("", "sunrise-asset", "", "")

	id, err := assets.ID(Morning)
	require.NoError(t, err)
	assert.Equal(t, "sunrise-asset", id)

	id, err = assets.ID(Night)
	require.NoError(t, err)
	assert.Equal(t, "goldenhour.night", id)
}

func TestTextMarshalling(t *testing.T) {
	b, err := Evening.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "evening", string(b))

	var tod TimeOfDay
	require.NoError(t, tod.UnmarshalText([]byte("morning")))
	assert.Equal(t, Morning, tod)
	require.Error(t, tod.UnmarshalText([]byte("noon")))
}
