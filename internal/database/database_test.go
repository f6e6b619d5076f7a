package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_events_enrollments.sql", files[0])
	assert.IsIncreasing(t, files)
}

func TestMigrations_DefineOccupyingUniqueIndex(t *testing.T) {
	content, err := fs.ReadFile(migrationsFS, "migrations/001_events_enrollments.sql")
	require.NoError(t, err)

	sql := string(content)
	assert.Contains(t, sql, "CREATE UNIQUE INDEX IF NOT EXISTS enrollments_event_email_occupying")
	assert.True(t, strings.Contains(sql, "WHERE status IN ('PENDING', 'APPROVED', 'COMPLETED')"))
}
