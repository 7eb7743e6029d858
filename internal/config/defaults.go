package config

import (
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/goldenhour/internal/applier"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
	"git.home.luguber.info/inful/goldenhour/internal/notify"
	"git.home.luguber.info/inful/goldenhour/internal/suntimes"
	"git.home.luguber.info/inful/goldenhour/internal/theme"
	"git.home.luguber.info/inful/goldenhour/internal/wake"
)

const appName = "goldenhour"

// applyDefaults fills unset fields and normalizes enums. Enum values that are
// set but unknown are reported as validation errors.
func (c *Config) applyDefaults() error {
	var err error
	if c.Location.Source, err = locationSourceNormalizer.Parse(string(c.Location.Source)); err != nil {
		return err
	}
	if c.Reconcile.ObservedState, err = observedStateNormalizer.Parse(string(c.Reconcile.ObservedState)); err != nil {
		return err
	}
	if c.Logging.Level, err = logLevelNormalizer.Parse(string(c.Logging.Level)); err != nil {
		return err
	}
	if c.Logging.Format, err = logFormatNormalizer.Parse(string(c.Logging.Format)); err != nil {
		return err
	}

	if c.Location.ThresholdMeters == 0 {
		c.Location.ThresholdMeters = geo.DefaultThresholdMeters
	}
	if c.Location.MQTT.ClientID == "" {
		c.Location.MQTT.ClientID = appName
	}
	if c.Astronomy.MorningElevation == nil {
		v := suntimes.DefaultMorningElevation
		c.Astronomy.MorningElevation = &v
	}
	if c.Astronomy.EveningElevation == nil {
		v := suntimes.DefaultEveningElevation
		c.Astronomy.EveningElevation = &v
	}

	if c.Applier.IndexPath == "" {
		c.Applier.IndexPath = filepath.Join(dataHome(), appName, "index.json")
	}
	if c.Applier.AssetKey == "" {
		c.Applier.AssetKey = applier.DefaultAssetKey
	}
	if c.Applier.RefreshTimeout == 0 {
		c.Applier.RefreshTimeout = applier.DefaultRefreshTimeout
	}

	if c.Theme.Debounce == 0 {
		c.Theme.Debounce = theme.DefaultDebounce
	}
	if c.Wake.ClockJumpInterval == 0 {
		c.Wake.ClockJumpInterval = wake.DefaultClockJumpInterval
	}
	if c.State.Dir == "" {
		c.State.Dir = filepath.Join(stateHome(), appName)
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		c.NATS.Subject = notify.DefaultSubject
	}
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	_ = c.applyDefaults()
	return c
}

func dataHome() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func stateHome() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, fallback)
	}
	return "."
}

// minRefreshInterval guards the location source against hammering.
const minRefreshInterval = time.Minute
