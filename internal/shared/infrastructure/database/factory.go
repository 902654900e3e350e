package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds database configuration.
type Config struct {
	// Driver selects the backend. Empty detects it from URL.
	Driver Driver

	// URL is the PostgreSQL connection string. Empty selects local SQLite.
	URL string

	// SQLitePath is the SQLite file. Defaults to ~/.carebook/carebook.db.
	SQLitePath string

	// MaxConns caps the PostgreSQL pool.
	MaxConns int
}

// Open creates a connection for the configured driver. The driver packages
// register themselves on import.
func Open(ctx context.Context, cfg Config) (Connection, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DetectDriver(cfg.URL)
	}
	if driver == DriverSQLite && cfg.SQLitePath == "" {
		cfg.SQLitePath = sqlitePathFromURL(cfg.URL)
	}

	factory, ok := factories[driver]
	if !ok {
		return nil, fmt.Errorf("database driver %q is not registered", driver)
	}
	return factory(ctx, cfg)
}

// DefaultSQLitePath returns the default SQLite database path.
func DefaultSQLitePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".carebook", "carebook.db")
}

func sqlitePathFromURL(url string) string {
	switch {
	case url == "":
		return DefaultSQLitePath()
	case strings.HasPrefix(url, "sqlite://"):
		return strings.TrimPrefix(url, "sqlite://")
	default:
		return url
	}
}

// EnsureDirectory creates the parent directory of path.
func EnsureDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Factory opens a connection for one driver.
type Factory func(ctx context.Context, cfg Config) (Connection, error)

var factories = map[Driver]Factory{}

// Register installs the factory for a driver. Driver packages call it from init.
func Register(driver Driver, factory Factory) {
	factories[driver] = factory
}
