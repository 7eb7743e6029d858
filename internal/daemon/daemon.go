// Package daemon assembles the goldenhour components and owns their
// lifecycle.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/goldenhour/internal/applier"
	"git.home.luguber.info/inful/goldenhour/internal/config"
	"git.home.luguber.info/inful/goldenhour/internal/controller"
	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	"git.home.luguber.info/inful/goldenhour/internal/events"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
	"git.home.luguber.info/inful/goldenhour/internal/location"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
	"git.home.luguber.info/inful/goldenhour/internal/metrics"
	"git.home.luguber.info/inful/goldenhour/internal/notify"
	"git.home.luguber.info/inful/goldenhour/internal/state"
	"git.home.luguber.info/inful/goldenhour/internal/suntimes"
	"git.home.luguber.info/inful/goldenhour/internal/theme"
	"git.home.luguber.info/inful/goldenhour/internal/version"
	"git.home.luguber.info/inful/goldenhour/internal/wake"
)

const refreshJobName = "location-refresh"

// Daemon represents the main daemon service.
type Daemon struct {
	cfg       *config.Config
	clock     clockwork.Clock
	fs        afero.Fs
	status    atomic.Value // Status
	startTime time.Time
	stopChan  chan struct{}
	mu        sync.RWMutex

	// Core components
	bus       *events.Bus
	store     *state.Store
	ctrl      *controller.Controller
	source    location.Source
	notifier  notify.Notifier
	wakers    []wake.Notifier
	observer  *theme.Observer
	scheduler *Scheduler

	registry   *prometheus.Registry
	recorder   metrics.Recorder
	httpServer *http.Server
	httpAddr   string

	cancel  context.CancelFunc
	workers sync.WaitGroup
	runErr  chan error
}

// Option customises a Daemon.
type Option func(*Daemon)

// WithClock replaces the wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(d *Daemon) { d.clock = c }
}

// WithFs replaces the filesystem used for the asset index and state.
func WithFs(fs afero.Fs) Option {
	return func(d *Daemon) { d.fs = fs }
}

// WithSource replaces the configured location source.
func WithSource(src location.Source) Option {
	return func(d *Daemon) { d.source = src }
}

// WithNotifier replaces the configured transition notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(d *Daemon) { d.notifier = n }
}

// New builds every component from cfg without starting anything.
func New(cfg *config.Config, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, ferrors.ConfigError("configuration is required").Build()
	}
	d := &Daemon{
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		fs:       afero.NewOsFs(),
		stopChan: make(chan struct{}),
		bus:      events.NewBus(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.status.Store(StatusStopped)

	zone, err := cfg.Astronomy.Zone()
	if err != nil {
		return nil, err
	}
	provider, err := suntimes.NewSunriseProvider(
		elevation(cfg.Astronomy.MorningElevation, suntimes.DefaultMorningElevation),
		elevation(cfg.Astronomy.EveningElevation, suntimes.DefaultEveningElevation),
		zone)
	if err != nil {
		return nil, err
	}

	if d.store, err = state.NewStore(d.fs, cfg.State.Dir, d.clock); err != nil {
		return nil, err
	}

	if cfg.Metrics.Listen != "" {
		d.registry = metrics.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(d.registry)
	}

	if d.notifier == nil {
		if d.notifier, err = newNotifier(cfg.NATS); err != nil {
			return nil, err
		}
	}
	if d.source == nil {
		d.source = newSource(cfg.Location, d.bus, d.clock)
	}

	if cfg.Wake.LogindEnabled() {
		d.wakers = append(d.wakers, wake.NewLogindNotifier(d.bus, d.clock))
	}
	if cfg.Wake.ClockJumpInterval > 0 {
		d.wakers = append(d.wakers, wake.NewClockJumpDetector(d.bus, d.clock, cfg.Wake.ClockJumpInterval))
	}

	if cfg.Theme.Enabled {
		if d.observer, err = theme.NewObserver(cfg.Theme.Path, d.fs, d.bus, d.clock, cfg.Theme.Debounce); err != nil {
			return nil, err
		}
	}

	index := applier.NewAssetIndexApplier(d.fs, cfg.Applier.IndexPath,
		applier.WithAssetKey(cfg.Applier.AssetKey),
		applier.WithAssets(cfg.Applier.Assets.Mapping()),
		applier.WithRefresher(applier.NewCommandRefresher(cfg.Applier.RefreshCommand, cfg.Applier.RefreshTimeout, d.clock)))

	observed := controller.ObserveApplied
	if cfg.Reconcile.ObservedState == config.ObservedTheme {
		observed = controller.ObserveTheme
	}
	d.ctrl, err = controller.New(controller.Deps{
		Clock:       d.clock,
		Zone:        zone,
		Bus:         d.bus,
		Provider:    provider,
		Applier:     applier.WithHooks(index, d.clock, d.recordApply, d.announce),
		Locator:     d.source,
		Debouncer:   geo.NewDebouncer(cfg.Location.ThresholdMeters),
		Store:       d.store,
		Recorder:    d.recorder,
		Observed:    observed,
		ThemeSwitch: cfg.Theme.Switch,
	})
	if err != nil {
		return nil, err
	}

	if d.scheduler, err = NewScheduler(d.clock); err != nil {
		return nil, err
	}
	if cfg.Location.RefreshInterval > 0 {
		if _, err := d.scheduler.ScheduleEvery(refreshJobName, cfg.Location.RefreshInterval, func() {
			d.ctrl.RequestLocation("refresh")
		}); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func elevation(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func newSource(cfg config.LocationConfig, bus *events.Bus, clock clockwork.Clock) location.Source {
	if cfg.Source == config.LocationMQTT {
		return location.NewMQTTSource(location.MQTTConfig{
			Broker:       cfg.MQTT.Broker,
			Topic:        cfg.MQTT.Topic,
			CommandTopic: cfg.MQTT.CommandTopic,
			ClientID:     cfg.MQTT.ClientID,
			Username:     cfg.MQTT.Username,
			Password:     cfg.MQTT.Password,
		}, bus, clock)
	}
	return location.NewStaticSource(cfg.Coordinate(), bus, clock)
}

func newNotifier(cfg config.NATSConfig) (notify.Notifier, error) {
	if cfg.URL == "" {
		return notify.Noop{}, nil
	}
	host, _ := os.Hostname()
	return notify.NewNATSNotifier(cfg.URL, cfg.Subject, host)
}

// recordApply feeds apply results into the metrics recorder.
func (d *Daemon) recordApply(_ context.Context, tod daytime.TimeOfDay, elapsed time.Duration, err error) {
	d.recorder.IncApply(tod.String(), metrics.Result(err == nil))
	d.recorder.ObserveApplyDuration(tod.String(), elapsed)
}

// announce publishes successful applies to the notifier.
func (d *Daemon) announce(ctx context.Context, tod daytime.TimeOfDay, _ time.Duration, err error) {
	if err != nil {
		return
	}
	t := notify.Transition{TimeOfDay: tod, Dark: tod.Dark(), At: d.clock.Now()}
	if err := d.notifier.Notify(ctx, t); err != nil {
		slog.Warn("Failed to announce transition", logfields.TimeOfDay(tod.String()), logfields.Error(err))
	}
}

// Controller exposes the controller for callers that drive it directly.
func (d *Daemon) Controller() *controller.Controller { return d.ctrl }

// Addr returns the bound admin address once started.
func (d *Daemon) Addr() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.httpAddr
}

// Start starts every component and blocks until ctx is done or Stop is
// called. Components are started so that no location event can precede the
// controller's subscription.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.GetStatus() != StatusStopped {
		d.mu.Unlock()
		return ferrors.DaemonError("daemon is not in stopped state").
			WithContext("status", string(d.GetStatus())).
			Build()
	}
	d.status.Store(StatusStarting)
	d.startTime = d.clock.Now()
	slog.Info("Starting goldenhour daemon",
		slog.String("version", version.Version),
		logfields.Source(d.source.Name()))

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.runErr = make(chan error, 1)

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		d.runErr <- d.ctrl.Run(runCtx)
	}()

	select {
	case <-d.ctrl.Ready():
	case err := <-d.runErr:
		cancel()
		d.status.Store(StatusError)
		d.mu.Unlock()
		return err
	case <-ctx.Done():
		cancel()
		d.status.Store(StatusError)
		d.mu.Unlock()
		return ctx.Err()
	}

	if err := d.startHTTP(); err != nil {
		cancel()
		d.status.Store(StatusError)
		d.mu.Unlock()
		return err
	}

	if err := d.source.Start(runCtx); err != nil {
		// The controller keeps awaiting a location.
		slog.Error("Failed to start location source", logfields.Source(d.source.Name()), logfields.Error(err))
	}

	for _, w := range d.wakers {
		d.workers.Add(1)
		go func(w wake.Notifier) {
			defer d.workers.Done()
			if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("Wake notifier stopped", logfields.Source(w.Name()), logfields.Error(err))
			}
		}(w)
	}

	if d.observer != nil {
		if err := d.observer.Start(runCtx); err != nil {
			slog.Error("Failed to start appearance observer", logfields.Error(err))
		} else {
			slog.Info("Appearance observer started", logfields.Path(d.cfg.Theme.Path))
		}
	}

	d.scheduler.Start(runCtx)

	d.status.Store(StatusRunning)
	slog.Info("Goldenhour daemon started",
		logfields.Phase(d.ctrl.Phase().String()),
		slog.Int("wake_notifiers", len(d.wakers)),
		slog.Bool("theme", d.observer != nil),
		slog.String("admin", d.httpAddr))

	d.mu.Unlock()

	var err error
	select {
	case <-runCtx.Done():
	case <-d.stopChan:
	case err = <-d.runErr:
	}
	if d.GetStatus() == StatusRunning {
		d.status.Store(StatusStopping)
	}
	slog.Info("Main loop exited, daemon stopping")
	return err
}

// Stop tears the components down in reverse start order.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.GetStatus() == StatusStopped {
		return nil
	}
	d.status.Store(StatusStopping)
	slog.Info("Stopping goldenhour daemon")

	select {
	case <-d.stopChan:
	default:
		close(d.stopChan)
	}

	var errs []error
	if err := d.scheduler.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if d.observer != nil {
		d.observer.Stop()
	}
	if err := d.source.Close(); err != nil {
		errs = append(errs, err)
	}
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ferrors.WrapError(ctx.Err(), ferrors.CategoryDaemon, "timed out waiting for workers").Build())
	}

	if err := d.stopHTTP(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := d.notifier.Close(); err != nil {
		errs = append(errs, err)
	}
	d.bus.Close()

	d.status.Store(StatusStopped)
	if !d.startTime.IsZero() {
		slog.Info("Goldenhour daemon stopped", logfields.Duration(d.clock.Since(d.startTime)))
	}
	return errors.Join(errs...)
}
