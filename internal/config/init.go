package config

import (
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
)

// Init writes a starter configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	example := Default()
	example.Location.Latitude = 51.5
	example.Location.Longitude = -0.12
	example.Location.MQTT = MQTTConfig{}
	example.Applier.RefreshCommand = "swww img --transition-type fade ${HOME}/.local/share/goldenhour/current"
	example.Metrics.Listen = "127.0.0.1:9477"

	data, err := yaml.Marshal(example)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal config").Build()
	}
	header := []byte("# goldenhour configuration. ${VAR} references are expanded from the environment and .env files.\n")
	if err := os.WriteFile(path, append(header, data...), 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
