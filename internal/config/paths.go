package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths contains commonly used file paths.
type Paths struct {
	Database    string // Main SQLite database
	Attachments string // Root of the content-organized attachment tree
	Credentials string // Encrypted sync credentials directory
	Logs        string // Log directory
}

// GetPaths returns all commonly used paths based on config.
func GetPaths(cfg *Config) Paths {
	return Paths{
		Database:    filepath.Join(cfg.BaseDir, "inkwell.db"),
		Attachments: filepath.Join(cfg.BaseDir, "attachments"),
		Credentials: filepath.Join(cfg.BaseDir, "credentials"),
		Logs:        filepath.Join(cfg.BaseDir, "logs"),
	}
}

// DefaultBaseDir returns the default base directory (~/.inkwell), falling
// back to the XDG data directory when the home directory is unavailable.
func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(xdg.DataHome, "inkwell")
	}
	return filepath.Join(home, ".inkwell")
}
