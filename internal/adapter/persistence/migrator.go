package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/fixora/kpiboard/internal/infra/logger"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MigrationDirection selects which half of a migration pair is run
type MigrationDirection string

const (
	MigrateUp   MigrationDirection = "up"
	MigrateDown MigrationDirection = "down"
)

type migrationFile struct {
	version   int
	name      string
	path      string
	direction MigrationDirection
}

// Migrator applies versioned SQL files and records them in schema_migrations
type Migrator struct {
	db     *sql.DB
	files  fs.FS
	logger logger.Logger
}

// NewMigrator creates a migrator over the bundled workload schema
func NewMigrator(db *sql.DB, log logger.Logger) *Migrator {
	sub, _ := fs.Sub(embeddedMigrations, "migrations")
	return &Migrator{db: db, files: sub, logger: log}
}

// NewMigratorFS creates a migrator reading migrations from files
func NewMigratorFS(db *sql.DB, files fs.FS, log logger.Logger) *Migrator {
	return &Migrator{db: db, files: files, logger: log}
}

// Run applies pending up migrations in ascending order, or reverts applied
// ones in descending order
func (m *Migrator) Run(ctx context.Context, direction MigrationDirection) error {
	if direction != MigrateUp && direction != MigrateDown {
		return fmt.Errorf("unknown migration direction: %s", direction)
	}

	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}

	files, err := loadMigrationFiles(m.files, direction)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	for _, f := range files {
		applied, err := m.alreadyApplied(ctx, f.version)
		if err != nil {
			return err
		}
		if applied == (direction == MigrateUp) {
			continue
		}

		m.logger.Info(ctx, "Running migration", map[string]interface{}{
			"version":   f.version,
			"name":      f.name,
			"direction": string(direction),
		})
		if err := m.apply(ctx, f); err != nil {
			return fmt.Errorf("migration %s failed: %w", f.path, err)
		}
	}
	return nil
}

func (m *Migrator) ensureSchemaMigrations(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (m *Migrator) alreadyApplied(ctx context.Context, version int) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)", version).Scan(&exists)
	return exists, err
}

// apply runs the script and its bookkeeping row in one transaction
func (m *Migrator) apply(ctx context.Context, f migrationFile) error {
	script, err := fs.ReadFile(m.files, f.path)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return err
	}

	if f.direction == MigrateUp {
		_, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations(version, name) VALUES($1, $2)", f.version, f.name)
	} else {
		_, err = tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version=$1", f.version)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// loadMigrationFiles lists NNN_name.up.sql or NNN_name.down.sql files for
// one direction. A plain NNN_name.sql counts as up.
func loadMigrationFiles(files fs.FS, direction MigrationDirection) ([]migrationFile, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, err
	}

	var out []migrationFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, ".sql") {
			continue
		}

		dir := MigrateUp
		if strings.HasSuffix(lower, ".down.sql") {
			dir = MigrateDown
		}
		if dir != direction {
			continue
		}

		version, migName, err := parseVersionAndName(name)
		if err != nil {
			continue
		}
		out = append(out, migrationFile{
			version:   version,
			name:      migName,
			path:      path.Clean(name),
			direction: dir,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if direction == MigrateDown {
			return out[i].version > out[j].version
		}
		return out[i].version < out[j].version
	})
	return out, nil
}

// parseVersionAndName splits 001_create_tables.up.sql into 1 and create_tables
func parseVersionAndName(filename string) (int, string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return 0, "", errors.New("invalid migration filename")
	}
	version, err := strconv.Atoi(parts[0])
	if err != nil || version < 0 {
		return 0, "", errors.New("invalid migration version")
	}

	name := parts[1]
	for _, suffix := range []string{".up.sql", ".down.sql", ".sql"} {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	return version, name, nil
}
