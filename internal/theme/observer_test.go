package theme

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/goldenhour/internal/events"
)

type recordingBus struct {
	mu      sync.Mutex
	changes []events.ThemeChanged
}

func (b *recordingBus) Publish(_ context.Context, evt any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := evt.(events.ThemeChanged); ok {
		b.changes = append(b.changes, c)
	}
	return nil
}

func (b *recordingBus) snapshot() []events.ThemeChanged {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.ThemeChanged(nil), b.changes...)
}

func TestParseAppearance(t *testing.T) {
	for raw, want := range map[string]bool{
		"dark\n":       true,
		" Prefer-Dark": true,
		"light":        false,
		"default":      false,
		"0":            false,
	} {
		got, err := ParseAppearance(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseAppearance("sepia")
	require.Error(t, err)
}

func TestObserver_DebouncesAndDeduplicates(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/run/user/1000/appearance"
	require.NoError(t, afero.WriteFile(fs, path, []byte("light"), 0o600))

	clock := clockwork.NewFakeClock()
	bus := &recordingBus{}
	o, err := NewObserver(path, fs, bus, clock, time.Second)
	require.NoError(t, err)

	ctx := context.Background()
	o.check(ctx)
	require.Len(t, bus.snapshot(), 1)
	assert.True(t, bus.snapshot()[0].Initial)

	require.NoError(t, afero.WriteFile(fs, path, []byte("dark"), 0o600))
	o.trigger(ctx)
	o.trigger(ctx)
	o.trigger(ctx)

	clock.Advance(500 * time.Millisecond)
	assert.Never(t, func() bool { return len(bus.snapshot()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(bus.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, bus.snapshot()[1].Dark)
	assert.False(t, bus.snapshot()[1].Initial)

	// Rewriting the same value publishes nothing.
	o.trigger(ctx)
	clock.Advance(time.Second)
	assert.Never(t, func() bool { return len(bus.snapshot()) > 2 }, 100*time.Millisecond, 5*time.Millisecond)

	dark, known := o.Dark()
	assert.True(t, known)
	assert.True(t, dark)
}

func TestObserver_IgnoresGarbage(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/appearance", []byte("???"), 0o600))

	bus := &recordingBus{}
	o, err := NewObserver("/appearance", fs, bus, clockwork.NewFakeClock(), 0)
	require.NoError(t, err)

	o.check(context.Background())
	assert.Empty(t, bus.snapshot())
	_, known := o.Dark()
	assert.False(t, known)
}

func TestObserver_WatchesRealFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appearance")
	require.NoError(t, os.WriteFile(path, []byte("light"), 0o600))

	bus := &recordingBus{}
	o, err := NewObserver(path, nil, bus, nil, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, o.Start(ctx))
	defer o.Stop()

	require.Len(t, bus.snapshot(), 1)
	require.NoError(t, os.WriteFile(path, []byte("dark"), 0o600))

	require.Eventually(t, func() bool {
		got := bus.snapshot()
		return len(got) == 2 && got[1].Dark
	}, 2*time.Second, 10*time.Millisecond)
}
