package wake

import (
	"context"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/goldenhour/internal/events"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
)

const (
	LogindName = "logind"

	login1Path      = "/org/freedesktop/login1"
	login1Interface = "org.freedesktop.login1.Manager"
	prepareForSleep = "PrepareForSleep"
)

// LogindNotifier listens for systemd-logind's PrepareForSleep signal on the
// system bus. The signal carries true before suspend and false after resume.
type LogindNotifier struct {
	bus   Publisher
	clock clockwork.Clock
	dial  func() (*dbus.Conn, error)
}

// NewLogindNotifier returns a notifier on the system bus.
func NewLogindNotifier(bus Publisher, clock clockwork.Clock) *LogindNotifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LogindNotifier{bus: bus, clock: clock, dial: func() (*dbus.Conn, error) { return dbus.ConnectSystemBus() }}
}

func (n *LogindNotifier) Name() string { return LogindName }

// Run subscribes to PrepareForSleep and publishes a Woke per resume.
func (n *LogindNotifier) Run(ctx context.Context) error {
	conn, err := n.dial()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to connect to system bus").
			WithContext("source", LogindName).
			Build()
	}
	defer func() { _ = conn.Close() }()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(login1Path),
		dbus.WithMatchInterface(login1Interface),
		dbus.WithMatchMember(prepareForSleep),
	); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to subscribe to logind").Build()
	}

	signals := make(chan *dbus.Signal, 4)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	slog.Info("Listening for resume signals", logfields.Source(LogindName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return ferrors.RuntimeError("system bus connection closed").Build()
			}
			if !resumed(sig) {
				continue
			}
			slog.Info("Host resumed from sleep", logfields.Source(LogindName))
			if err := n.bus.Publish(ctx, events.Woke{Source: LogindName, At: n.clock.Now()}); err != nil {
				slog.Warn("Dropping wake event", logfields.Source(LogindName), logfields.Error(err))
			}
		}
	}
}

// resumed reports whether sig is PrepareForSleep(false).
func resumed(sig *dbus.Signal) bool {
	if sig == nil || sig.Name != login1Interface+"."+prepareForSleep || len(sig.Body) == 0 {
		return false
	}
	sleeping, ok := sig.Body[0].(bool)
	return ok && !sleeping
}
