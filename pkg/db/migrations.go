package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration represents a single database migration file.
type Migration struct {
	Version string
	Name    string
	Path    string
}

// MigrationResult holds the result of a migration run.
type MigrationResult struct {
	Applied []string
	Skipped []string
	Errors  []error
}

// RunMigrations executes all .sql migration files from the given directory.
// Files are executed in alphabetical order (use numeric prefixes like 001_, 002_).
// A schema_migrations tracking table prevents re-running applied migrations.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrationsDir string) (*MigrationResult, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	result := &MigrationResult{}

	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := FindMigrations(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to find migrations: %w", err)
	}

	if len(migrations) == 0 {
		return result, nil
	}

	applied, err := getAppliedMigrations(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			result.Skipped = append(result.Skipped, m.Version)
			continue
		}

		if err := applyMigration(ctx, pool, m); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("migration %s failed: %w", m.Version, err))
			// Stop on first error; later migrations may depend on this one.
			return result, err
		}

		result.Applied = append(result.Applied, m.Version)
	}

	return result, nil
}

// GetPendingMigrations returns the migrations that have not been applied yet.
func GetPendingMigrations(ctx context.Context, pool *pgxpool.Pool, migrationsDir string) ([]Migration, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to ensure migrations table: %w", err)
	}

	migrations, err := FindMigrations(migrationsDir)
	if err != nil {
		return nil, err
	}

	applied, err := getAppliedMigrations(ctx, pool)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}

	return pending, nil
}

// FindMigrations discovers all .sql files in the migrations directory,
// sorted by version.
func FindMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".sql") {
			continue
		}

		version := strings.TrimSuffix(name, filepath.Ext(name))

		migrations = append(migrations, Migration{
			Version: version,
			Name:    name,
			Path:    filepath.Join(dir, name),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func ensureMigrationsTable(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	_, err := pool.Exec(ctx, query)
	return err
}

// normalizeVersion strips the .sql suffix for comparison. Handles rows that
// were recorded with the full filename in schema_migrations.
func normalizeVersion(v string) string {
	if len(v) > 4 && strings.EqualFold(v[len(v)-4:], ".sql") {
		return v[:len(v)-4]
	}
	return v
}

func getAppliedMigrations(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[normalizeVersion(version)] = true
	}

	return applied, rows.Err()
}

// applyMigration executes a single migration file inside a transaction.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, m Migration) error {
	content, err := os.ReadFile(m.Path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	sql := string(content)
	if strings.TrimSpace(sql) == "" {
		return fmt.Errorf("migration file is empty")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint: errcheck

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}

	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}
