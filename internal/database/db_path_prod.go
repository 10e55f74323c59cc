//go:build prod

package database

import (
	"log/slog"
	"os"
	"path/filepath"
)

// GetDefaultDBPath returns the database path for production mode.
// In production, the database is stored in the user's config directory.
func GetDefaultDBPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		slog.Warn("failed to get user config dir, using fallback", "error", err)
		return "appforge.db"
	}

	appDir := filepath.Join(configDir, "appforge")

	err = os.MkdirAll(appDir, 0755)
	if err != nil {
		slog.Warn("failed to create app config dir, using fallback", "error", err)
		return "appforge.db"
	}

	dbPath := filepath.Join(appDir, "appforge.db")

	return dbPath
}

func IsDevelopment() bool {
	return false
}
