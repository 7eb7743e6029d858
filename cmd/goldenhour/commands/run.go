package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/goldenhour/internal/config"
	"git.home.luguber.info/inful/goldenhour/internal/daemon"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
)

const stopTimeout = 30 * time.Second

// RunCmd implements the 'run' command.
type RunCmd struct{}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	root.configureLogging(cfg)
	return RunDaemon(cfg)
}

// RunDaemon runs the daemon until SIGINT or SIGTERM.
func RunDaemon(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	var runErr error
	select {
	case runErr = <-errChan:
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	if err := d.Stop(stopCtx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "failed to stop daemon").Build()
	}
	if runErr != nil {
		return runErr
	}
	slog.Info("Daemon stopped successfully")
	return nil
}
