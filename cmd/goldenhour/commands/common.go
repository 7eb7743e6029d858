// Package commands implements the goldenhour CLI.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/goldenhour/internal/config"
)

// Global carries process-wide state shared by subcommands.
type Global struct {
	Out io.Writer
}

// NewGlobal writes command output to stdout.
func NewGlobal() *Global {
	return &Global{Out: os.Stdout}
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"goldenhour.yaml" env:"GOLDENHOUR_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run   RunCmd   `cmd:"" help:"Run the scheduler daemon"`
	Times TimesCmd `cmd:"" help:"Print the golden hours for a place and date"`
	Apply ApplyCmd `cmd:"" help:"Apply a time of day once and exit"`
	Init  InitCmd  `cmd:"" help:"Write a starter configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	setupLogging(level, config.LogFormatText)
	return nil
}

// configureLogging applies the config's logging section. -v always wins.
func (c *CLI) configureLogging(cfg *config.Config) {
	level := cfg.Logging.Level.Slog()
	if c.Verbose {
		level = slog.LevelDebug
	}
	setupLogging(level, cfg.Logging.Format)
}

func setupLogging(level slog.Level, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
