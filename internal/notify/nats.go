package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "goldenhour.transition"

const flushTimeout = 2 * time.Second

// conn is the part of *nats.Conn the notifier uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATSNotifier publishes each transition as JSON on a core NATS subject.
type NATSNotifier struct {
	conn    conn
	subject string
	host    string
}

// NewNATSNotifier connects to url.
func NewNATSNotifier(url, subject, host string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("goldenhour"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, ferrors.NotifyError("failed to connect to NATS").WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS notifier connected", slog.String("url", url), slog.String("subject", subject))
	return newNATSNotifier(nc, subject, host), nil
}

func newNATSNotifier(c conn, subject, host string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{conn: c, subject: subject, host: host}
}

// Notify publishes t on the configured subject.
func (n *NATSNotifier) Notify(_ context.Context, t Transition) error {
	if t.Host == "" {
		t.Host = n.host
	}
	data, err := json.Marshal(t)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode transition").Build()
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return ferrors.NotifyError("failed to publish transition").WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}
	if err := n.conn.FlushTimeout(flushTimeout); err != nil {
		return ferrors.NotifyError("failed to flush transition").WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}
	slog.Debug("Published transition", logfields.TimeOfDay(t.TimeOfDay.String()), slog.String("subject", n.subject))
	return nil
}

func (n *NATSNotifier) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
