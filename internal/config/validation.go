package config

import (
	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
)

// Validate checks cross-field constraints. It expects defaults applied.
func (c *Config) Validate() error {
	switch c.Location.Source {
	case LocationStatic:
		if !c.Location.Coordinate().Valid() {
			return invalid("location latitude/longitude out of range", "location", c.Location.Coordinate().String())
		}
	case LocationMQTT:
		if c.Location.MQTT.Broker == "" || c.Location.MQTT.Topic == "" {
			return invalid("mqtt location source needs broker and topic", "location.mqtt", c.Location.MQTT.Broker)
		}
	}
	if c.Location.ThresholdMeters < 0 {
		return invalid("threshold_meters must not be negative", "location.threshold_meters", c.Location.ThresholdMeters)
	}
	if c.Location.RefreshInterval != 0 && c.Location.RefreshInterval < minRefreshInterval {
		return invalid("refresh_interval must be at least 1m", "location.refresh_interval", c.Location.RefreshInterval.String())
	}

	if _, err := c.Astronomy.Zone(); err != nil {
		return err
	}
	m, e := *c.Astronomy.MorningElevation, *c.Astronomy.EveningElevation
	if m >= e || m < -18 || e > 30 {
		return invalid("elevations must satisfy -18 <= morning < evening <= 30", "astronomy", []float64{m, e})
	}

	if c.Applier.RefreshTimeout < 0 {
		return invalid("refresh_timeout must not be negative", "applier.refresh_timeout", c.Applier.RefreshTimeout.String())
	}
	if _, err := c.Applier.Assets.Mapping().ID(daytime.Night); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid asset mapping").Build()
	}

	if c.Reconcile.ObservedState == ObservedTheme && !c.Theme.Enabled {
		return invalid("observed_state theme needs the theme observer enabled", "reconcile.observed_state", string(c.Reconcile.ObservedState))
	}
	if c.Theme.Enabled && c.Theme.Path == "" {
		return invalid("theme observer needs a path", "theme.path", "")
	}
	return nil
}

func invalid(msg, field string, value any) error {
	return ferrors.ConfigError(msg).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}
