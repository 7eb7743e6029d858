package config

import (
	"log/slog"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/goldenhour/internal/logfields"
)

// envFiles are tried in order; variables already set are never overwritten.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env files from the working directory and from dir.
func loadEnvFiles(dir string) {
	seen := map[string]bool{}
	for _, base := range []string{".", dir} {
		for _, name := range envFiles {
			path := filepath.Clean(filepath.Join(base, name))
			if seen[path] {
				continue
			}
			seen[path] = true
			if err := godotenv.Load(path); err == nil {
				slog.Debug("Loaded environment file", logfields.Path(path))
			}
		}
	}
}
