// Package migrations applies the embedded schema for the connected driver.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"

	"github.com/felixgeelhaar/carebook/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

const upSuffix = ".up.sql"

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Pending lists the migrations for driver in apply order.
func Pending(driver database.Driver) ([]string, error) {
	entries, err := fs.ReadDir(files, driver.String())
	if err != nil {
		return nil, fmt.Errorf("no migrations for driver %s: %w", driver, err)
	}

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), upSuffix) {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Run applies every migration not yet recorded in schema_migrations, each in
// its own transaction. It returns the versions it applied.
func Run(ctx context.Context, conn database.Connection, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver := conn.Driver()
	names, err := Pending(driver)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(ctx, createVersionTable); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, name := range names {
		version := strings.TrimSuffix(name, upSuffix)
		if applied[version] {
			continue
		}

		body, err := files.ReadFile(driver.String() + "/" + name)
		if err != nil {
			return ran, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		err = database.InTx(ctx, conn, func(txCtx context.Context) error {
			exec := database.ExecutorFromContext(txCtx, conn)
			if _, err := exec.Exec(txCtx, string(body)); err != nil {
				return err
			}
			_, err := exec.Exec(txCtx, insertVersion(driver), version)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("failed to apply migration %s: %w", name, err)
		}

		logger.Info("migration applied", "driver", driver.String(), "version", version)
		ran = append(ran, version)
	}
	return ran, nil
}

func insertVersion(driver database.Driver) string {
	if driver == database.DriverPostgres {
		return `INSERT INTO schema_migrations (version) VALUES ($1)`
	}
	return `INSERT INTO schema_migrations (version) VALUES (?)`
}

func appliedVersions(ctx context.Context, conn database.Connection) (map[string]bool, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
