package applier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
)

const indexPath = "/srv/wallpaper/index.json"

type countingRefresher struct {
	calls int
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls++
	return r.err
}

func readIndex(t *testing.T, fs afero.Fs) map[string]any {
	t.Helper()
	data, err := afero.ReadFile(fs, indexPath)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestAssetIndexApplier_CreatesIndex(t *testing.T) {
	fs := afero.NewMemMapFs()
	refresher := &countingRefresher{}
	a := NewAssetIndexApplier(fs, indexPath, WithRefresher(refresher))

	require.NoError(t, a.Apply(context.Background(), daytime.Morning))

	index := readIndex(t, fs)
	assert.Equal(t, "goldenhour.morning", index[DefaultAssetKey])
	assert.Equal(t, 1, refresher.calls)

	exists, err := afero.Exists(fs, indexPath+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAssetIndexApplier_PreservesUnrelatedKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, indexPath, []byte(`{"display":"DP-1","wallpaper":"old"}`), 0o600))

	assets := daytime.NewAssets("n.heic", "m.heic", "d.heic", "e.heic")
	a := NewAssetIndexApplier(fs, indexPath, WithAssetKey("wallpaper"), WithAssets(assets))
	require.NoError(t, a.Apply(context.Background(), daytime.Evening))

	index := readIndex(t, fs)
	assert.Equal(t, "e.heic", index["wallpaper"])
	assert.Equal(t, "DP-1", index["display"])

	id, ok, err := a.Current()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "e.heic", id)
}

func TestAssetIndexApplier_CorruptIndex(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, indexPath, []byte(`[1,2]`), 0o600))

	err := NewAssetIndexApplier(fs, indexPath).Apply(context.Background(), daytime.Day)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryApply))
}

func TestAssetIndexApplier_ReadOnlyFs(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	err := NewAssetIndexApplier(fs, indexPath).Apply(context.Background(), daytime.Night)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryApply))
}

func TestAssetIndexApplier_RefreshFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	refresher := &countingRefresher{err: errors.New("exit status 1")}
	a := NewAssetIndexApplier(fs, indexPath, WithRefresher(refresher))

	err := a.Apply(context.Background(), daytime.Day)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryApply))
	// The index is still written; only the refresh failed.
	assert.Equal(t, "goldenhour.day", readIndex(t, fs)[DefaultAssetKey])
}

func TestAssetIndexApplier_InvalidTimeOfDay(t *testing.T) {
	err := NewAssetIndexApplier(afero.NewMemMapFs(), indexPath).Apply(context.Background(), daytime.TimeOfDay(42))
	require.Error(t, err)
}

func TestWithHooks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := Func(func(context.Context, daytime.TimeOfDay) error {
		clock.Advance(250 * time.Millisecond)
		return nil
	})

	var (
		gotTOD     daytime.TimeOfDay
		gotElapsed time.Duration
		calls      int
	)
	a := WithHooks(inner, clock, func(_ context.Context, tod daytime.TimeOfDay, elapsed time.Duration, err error) {
		calls++
		gotTOD = tod
		gotElapsed = elapsed
		assert.NoError(t, err)
	})

	require.NoError(t, a.Apply(context.Background(), daytime.Evening))
	assert.Equal(t, 1, calls)
	assert.Equal(t, daytime.Evening, gotTOD)
	assert.Equal(t, 250*time.Millisecond, gotElapsed)
}

func TestWithHooks_NoHooksReturnsInner(t *testing.T) {
	inner := Func(func(context.Context, daytime.TimeOfDay) error { return nil })
	a := WithHooks(inner, nil)
	_, isFunc := a.(Func)
	assert.True(t, isFunc)
}

func TestNewCommandRefresher_Empty(t *testing.T) {
	assert.Nil(t, NewCommandRefresher("   ", time.Second, nil))
	r := NewCommandRefresher("true", 0, nil)
	require.NotNil(t, r)
	assert.Equal(t, DefaultRefreshTimeout, r.timeout)
	assert.NotNil(t, r.clock)
}

func TestCommandRefresher_UsesInjectedClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewCommandRefresher("true", time.Second, clock)
	require.NotNil(t, r)
	assert.Same(t, clock, r.clock)
	require.NoError(t, r.Refresh(context.Background()))
}
