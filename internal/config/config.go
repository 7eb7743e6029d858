// Package config loads the goldenhour YAML configuration.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
)

// Config is the root configuration document.
type Config struct {
	Location  LocationConfig  `yaml:"location"`
	Astronomy AstronomyConfig `yaml:"astronomy"`
	Applier   ApplierConfig   `yaml:"applier"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Theme     ThemeConfig     `yaml:"theme"`
	Wake      WakeConfig      `yaml:"wake"`
	State     StateConfig     `yaml:"state"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	NATS      NATSConfig      `yaml:"nats"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LocationConfig selects where coordinates come from.
type LocationConfig struct {
	Source          LocationSource `yaml:"source"`
	Latitude        float64        `yaml:"latitude,omitempty"`
	Longitude       float64        `yaml:"longitude,omitempty"`
	ThresholdMeters float64        `yaml:"threshold_meters,omitempty"`
	// RefreshInterval requests a fresh location periodically; zero disables.
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`
	MQTT            MQTTConfig    `yaml:"mqtt,omitempty"`
}

// Coordinate returns the static coordinate.
func (l LocationConfig) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: l.Latitude, Longitude: l.Longitude}
}

// MQTTConfig describes an OwnTracks broker.
type MQTTConfig struct {
	Broker       string `yaml:"broker,omitempty"`
	Topic        string `yaml:"topic,omitempty"`
	CommandTopic string `yaml:"command_topic,omitempty"`
	ClientID     string `yaml:"client_id,omitempty"`
	Username     string `yaml:"username,omitempty"`
	Password     string `yaml:"password,omitempty"`
}

// AstronomyConfig tunes the golden-hour computation.
type AstronomyConfig struct {
	// Timezone is an IANA name; empty means the host's local zone.
	Timezone         string   `yaml:"timezone,omitempty"`
	MorningElevation *float64 `yaml:"morning_elevation,omitempty"`
	EveningElevation *float64 `yaml:"evening_elevation,omitempty"`
}

// Zone resolves Timezone.
func (a AstronomyConfig) Zone() (*time.Location, error) {
	if a.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "unknown timezone").
			WithContext("timezone", a.Timezone).
			UserAction().
			Build()
	}
	return loc, nil
}

// ApplierConfig describes the asset index written on every transition.
type ApplierConfig struct {
	IndexPath      string        `yaml:"index_path"`
	AssetKey       string        `yaml:"asset_key,omitempty"`
	RefreshCommand string        `yaml:"refresh_command,omitempty"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout,omitempty"`
	Assets         AssetsConfig  `yaml:"assets,omitempty"`
}

// AssetsConfig overrides the asset identifier per time of day.
type AssetsConfig struct {
	Night   string `yaml:"night,omitempty"`
	Morning string `yaml:"morning,omitempty"`
	Day     string `yaml:"day,omitempty"`
	Evening string `yaml:"evening,omitempty"`
}

// Mapping returns the total TimeOfDay to asset mapping.
func (a AssetsConfig) Mapping() daytime.Assets {
	return daytime.NewAssets(a.Night, a.Morning, a.Day, a.Evening)
}

// ReconcileConfig selects what "observed state" means when reconciling.
type ReconcileConfig struct {
	ObservedState ObservedState `yaml:"observed_state"`
}

// ThemeConfig enables the appearance observer.
type ThemeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
	// Switch applies Night or Day directly whenever the appearance flips.
	Switch   bool          `yaml:"switch,omitempty"`
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// WakeConfig selects the resume detectors.
type WakeConfig struct {
	Logind            *bool         `yaml:"logind,omitempty"`
	ClockJumpInterval time.Duration `yaml:"clock_jump_interval,omitempty"`
}

// LogindEnabled defaults to true.
func (w WakeConfig) LogindEnabled() bool {
	return w.Logind == nil || *w.Logind
}

// StateConfig locates the restart state.
type StateConfig struct {
	Dir string `yaml:"dir"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// NATSConfig enables transition announcements when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads, expands, defaults and validates the configuration at path.
// Variables from .env files next to the config are loaded first; ${VAR}
// references are expanded before parsing.
func Load(path string) (*Config, error) {
	loadEnvFiles(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", path).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", path).
			Build()
	}
	return Parse(data)
}

// Parse decodes a configuration document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config").
			UserAction().
			Build()
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
