package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvHome overrides the data directory.
	EnvHome = "TABRUN_HOME"
	// EnvSnapshot overrides the snapshot database path.
	EnvSnapshot = "TABRUN_SNAPSHOT"
)

// DataDir returns the directory used to store tabrun data.
func DataDir() (string, error) {
	if d := os.Getenv(EnvHome); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabrun"), nil
}

// EnsureDataDir returns DataDir after creating it when missing.
func EnsureDataDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", err
	}
	return d, nil
}

// ConfigPath returns the path of the settings file.
func ConfigPath() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.toml"), nil
}

// SnapshotPath returns the full path to the SQLite snapshot database.
func SnapshotPath() (string, error) {
	if p := os.Getenv(EnvSnapshot); p != "" {
		return p, nil
	}
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "catalog.db"), nil
}

// DefaultDefinitionsDir is where definitions are read from when nothing else
// is configured.
func DefaultDefinitionsDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "tabs"), nil
}
