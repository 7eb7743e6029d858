// Package theme watches the desktop appearance setting and reports whether
// it is dark.
package theme

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/goldenhour/internal/events"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
)

// DefaultDebounce collapses bursts of writes from editors and settings daemons.
const DefaultDebounce = 500 * time.Millisecond

// Publisher is the part of the event bus the observer needs.
type Publisher interface {
	Publish(ctx context.Context, evt any) error
}

// ParseAppearance interprets the content of an appearance file.
func ParseAppearance(raw string) (dark bool, err error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "dark", "prefer-dark", "1", "true":
		return true, nil
	case "light", "prefer-light", "default", "0", "false":
		return false, nil
	default:
		return false, ferrors.ValidationError("unrecognised appearance").
			WithContext("value", strings.TrimSpace(raw)).
			Build()
	}
}

// Observer monitors an appearance file and publishes events.ThemeChanged
// whenever the parsed value changes.
type Observer struct {
	path     string
	fs       afero.Fs
	bus      Publisher
	clock    clockwork.Clock
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   clockwork.Timer
	last    *bool
	stopCh  chan struct{}
}

// NewObserver returns an observer for path. fs is used for reading only;
// change notification always watches the real directory.
func NewObserver(path string, fs afero.Fs, bus Publisher, clock clockwork.Clock, debounce time.Duration) (*Observer, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to resolve appearance path").
			WithContext("path", path).
			Build()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Observer{
		path:     absPath,
		fs:       fs,
		bus:      bus,
		clock:    clock,
		debounce: debounce,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start publishes the current appearance, if readable, and begins watching.
func (o *Observer) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create file watcher").Build()
	}
	// Watch the directory; settings tools usually replace the file.
	dir := filepath.Dir(o.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to watch appearance directory").
			WithContext("path", dir).
			Build()
	}

	o.mu.Lock()
	o.watcher = watcher
	o.mu.Unlock()

	slog.Info("Starting appearance observer", logfields.Path(o.path))
	o.check(ctx)
	go o.watchLoop(ctx, watcher)
	return nil
}

// Stop ends watching and cancels a pending check.
func (o *Observer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	select {
	case <-o.stopCh:
		return
	default:
		close(o.stopCh)
	}
	if o.timer != nil {
		o.timer.Stop()
	}
	if o.watcher != nil {
		if err := o.watcher.Close(); err != nil {
			slog.Error("Error closing appearance watcher", logfields.Error(err))
		}
	}
}

func (o *Observer) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	base := filepath.Base(o.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				o.trigger(ctx)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Appearance watcher error", logfields.Error(err))
		}
	}
}

// trigger (re)starts the debounce timer.
func (o *Observer) trigger(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = o.clock.AfterFunc(o.debounce, func() { o.check(ctx) })
}

// check reads the file and publishes a change.
func (o *Observer) check(ctx context.Context) {
	data, err := afero.ReadFile(o.fs, o.path)
	if err != nil {
		slog.Debug("Appearance file not readable", logfields.Path(o.path), logfields.Error(err))
		return
	}
	dark, err := ParseAppearance(string(data))
	if err != nil {
		slog.Warn("Ignoring appearance file", logfields.Path(o.path), logfields.Error(err))
		return
	}

	o.mu.Lock()
	initial := o.last == nil
	changed := initial || *o.last != dark
	o.last = &dark
	o.mu.Unlock()
	if !changed {
		return
	}

	slog.Info("Appearance changed", slog.Bool("dark", dark), slog.Bool("initial", initial))
	if err := o.bus.Publish(ctx, events.ThemeChanged{Dark: dark, Initial: initial, At: o.clock.Now()}); err != nil {
		slog.Warn("Dropping theme event", logfields.Error(err))
	}
}

// Dark returns the last observed appearance.
func (o *Observer) Dark() (dark, known bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return false, false
	}
	return *o.last, true
}
