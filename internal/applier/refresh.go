package applier

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
)

// DefaultRefreshTimeout bounds a refresh command when none is configured.
const DefaultRefreshTimeout = 10 * time.Second

// CommandRefresher runs an external command after the index was written.
type CommandRefresher struct {
	argv    []string
	timeout time.Duration
	clock   clockwork.Clock
}

// NewCommandRefresher splits command on whitespace. An empty command yields
// nil so callers can pass the result straight to WithRefresher. clock times
// the command for the debug log; nil means the real clock.
func NewCommandRefresher(command string, timeout time.Duration, clock clockwork.Clock) *CommandRefresher {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CommandRefresher{argv: argv, timeout: timeout, clock: clock}
}

// Refresh runs the command and waits for it.
func (r *CommandRefresher) Refresh(ctx context.Context) error {
	if r == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// #nosec G204 -- the command comes from the operator's config file
	cmd := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := r.clock.Now()
	err := cmd.Run()
	if err != nil {
		return ferrors.ApplyError("refresh command failed").WithCause(err).
			WithContext("command", r.argv[0]).
			WithContext("stderr", strings.TrimSpace(stderr.String())).
			Build()
	}
	slog.Debug("Refresh command finished", slog.String("command", r.argv[0]), logfields.Duration(r.clock.Since(start)))
	return nil
}
