package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/goldenhour/internal/applier"
	"git.home.luguber.info/inful/goldenhour/internal/config"
	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
	"git.home.luguber.info/inful/goldenhour/internal/state"
)

// ApplyCmd implements the 'apply' command.
type ApplyCmd struct {
	TimeOfDay string `arg:"" name:"time-of-day" help:"One of night, morning, day, evening"`
}

func (a *ApplyCmd) Run(g *Global, root *CLI) error {
	tod, err := daytime.Parse(a.TimeOfDay)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid time of day").Build()
	}
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	root.configureLogging(cfg)

	return RunApply(context.Background(), g, cfg, afero.NewOsFs(), tod)
}

// RunApply writes tod into the asset index, runs the refresh command and
// records the result in the restart state so a running daemon reconciles
// from it after its next restart.
func RunApply(ctx context.Context, g *Global, cfg *config.Config, fs afero.Fs, tod daytime.TimeOfDay) error {
	clock := clockwork.NewRealClock()
	index := applier.NewAssetIndexApplier(fs, cfg.Applier.IndexPath,
		applier.WithAssetKey(cfg.Applier.AssetKey),
		applier.WithAssets(cfg.Applier.Assets.Mapping()),
		applier.WithRefresher(applier.NewCommandRefresher(cfg.Applier.RefreshCommand, cfg.Applier.RefreshTimeout, clock)))
	if err := index.Apply(ctx, tod); err != nil {
		return err
	}

	store, err := state.NewStore(fs, cfg.State.Dir, clock)
	if err != nil {
		return err
	}
	if err := store.SaveApplied(tod); err != nil {
		slog.Warn("Failed to record applied state", logfields.Path(store.Path()), logfields.Error(err))
	}

	asset, _, err := index.Current()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Applied %s (%s) to %s\n", tod, asset, cfg.Applier.IndexPath)
	return nil
}
