package applier

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
)

// DefaultAssetKey is the index entry the asset identifier is written to.
const DefaultAssetKey = "asset"

// Refresher tells the consumer of the index that it changed.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// AssetIndexApplier records the asset for a TimeOfDay in a JSON index file
// and then runs a Refresher. Unrelated keys in the index are preserved.
type AssetIndexApplier struct {
	fs        afero.Fs
	path      string
	key       string
	assets    daytime.Assets
	refresher Refresher
}

// IndexOption configures an AssetIndexApplier.
type IndexOption func(*AssetIndexApplier)

// WithAssetKey overrides DefaultAssetKey.
func WithAssetKey(key string) IndexOption {
	return func(a *AssetIndexApplier) {
		if key != "" {
			a.key = key
		}
	}
}

// WithAssets overrides daytime.DefaultAssets.
func WithAssets(assets daytime.Assets) IndexOption {
	return func(a *AssetIndexApplier) { a.assets = assets }
}

// WithRefresher sets the post-write refresh step.
func WithRefresher(r Refresher) IndexOption {
	return func(a *AssetIndexApplier) { a.refresher = r }
}

// NewAssetIndexApplier returns an applier writing to path on fs.
func NewAssetIndexApplier(fs afero.Fs, path string, opts ...IndexOption) *AssetIndexApplier {
	a := &AssetIndexApplier{
		fs:     fs,
		path:   path,
		key:    DefaultAssetKey,
		assets: daytime.DefaultAssets(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply implements StateApplier.
func (a *AssetIndexApplier) Apply(ctx context.Context, tod daytime.TimeOfDay) error {
	id, err := a.assets.ID(tod)
	if err != nil {
		return ferrors.ApplyError("no asset for time of day").WithCause(err).
			WithContext("time_of_day", int(tod)).
			Build()
	}

	index, err := a.read()
	if err != nil {
		return err
	}
	index[a.key] = id

	if err := a.write(index); err != nil {
		return err
	}
	slog.Info("Asset index updated",
		logfields.TimeOfDay(tod.String()),
		logfields.Asset(id),
		logfields.Path(a.path))

	if a.refresher == nil {
		return nil
	}
	if err := a.refresher.Refresh(ctx); err != nil {
		return ferrors.ApplyError("refresh after apply failed").WithCause(err).
			WithContext("time_of_day", tod.String()).
			Build()
	}
	return nil
}

// Current returns the asset identifier currently recorded in the index.
func (a *AssetIndexApplier) Current() (string, bool, error) {
	index, err := a.read()
	if err != nil {
		return "", false, err
	}
	id, ok := index[a.key].(string)
	return id, ok, nil
}

func (a *AssetIndexApplier) read() (map[string]any, error) {
	data, err := afero.ReadFile(a.fs, a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, ferrors.ApplyError("failed to read asset index").WithCause(err).
			WithContext("path", a.path).
			Build()
	}
	index := map[string]any{}
	if len(data) == 0 {
		return index, nil
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, ferrors.ApplyError("asset index is not a JSON object").WithCause(err).
			WithContext("path", a.path).
			UserAction().
			Build()
	}
	return index, nil
}

func (a *AssetIndexApplier) write(index map[string]any) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return ferrors.ApplyError("failed to encode asset index").WithCause(err).Build()
	}
	if err := a.fs.MkdirAll(filepath.Dir(a.path), 0o750); err != nil {
		return ferrors.ApplyError("failed to create asset index directory").WithCause(err).
			WithContext("path", a.path).
			Build()
	}

	tmp := a.path + ".tmp"
	if err := afero.WriteFile(a.fs, tmp, data, 0o600); err != nil {
		return ferrors.ApplyError("failed to write asset index").WithCause(err).
			WithContext("path", tmp).
			Build()
	}
	if err := a.fs.Rename(tmp, a.path); err != nil {
		_ = a.fs.Remove(tmp)
		return ferrors.ApplyError("failed to replace asset index").WithCause(err).
			WithContext("path", a.path).
			Build()
	}
	return nil
}
