package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMigrationsSortsAndFilters(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		"002_transcripts.sql",
		"001_meetings.sql",
		"003_action_items.SQL",
		"notes.txt",
		"README.md",
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("SELECT 1;"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	migrations, err := FindMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, "001_meetings", migrations[0].Version)
	assert.Equal(t, "002_transcripts", migrations[1].Version)
	assert.Equal(t, "003_action_items", migrations[2].Version)
	assert.Equal(t, "001_meetings.sql", migrations[0].Name)
	assert.Equal(t, filepath.Join(dir, "001_meetings.sql"), migrations[0].Path)
}

func TestFindMigrationsMissingDir(t *testing.T) {
	_, err := FindMigrations("/nonexistent/migrations")
	require.Error(t, err)
}

func TestFindMigrationsEmptyDir(t *testing.T) {
	migrations, err := FindMigrations(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"001_meetings.sql", "001_meetings"},
		{"001_meetings.SQL", "001_meetings"},
		{"001_meetings", "001_meetings"},
		{".sql", ".sql"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeVersion(tt.in))
	}
}

func TestRunMigrationsNilPool(t *testing.T) {
	_, err := RunMigrations(context.Background(), nil, t.TempDir())
	require.Error(t, err)
}

func TestGetPendingMigrationsNilPool(t *testing.T) {
	_, err := GetPendingMigrations(context.Background(), nil, t.TempDir())
	require.Error(t, err)
}
