package database

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, cleanupFunc := SetupTestDBContainer(t, ctx)
	t.Cleanup(cleanupFunc)

	connString := db.Config().ConnString()

	m, err := GetMigrate(connString)
	require.NoError(t, err)
	defer closeMigrator(m)

	fnames, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, fnames)

	for i := 1; i <= len(fnames); i++ {
		err = m.Steps(i)
		assert.NoError(t, err)

		err = m.Steps(-i)
		assert.NoError(t, err)

		err = m.Steps(i)
		assert.NoError(t, err)
	}
}

func TestMigrateUpAndVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, cleanupFunc := SetupTestDBContainer(t, ctx)
	t.Cleanup(cleanupFunc)

	connString := db.Config().ConnString()

	version, dirty, err := GetVersion(connString)
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	version, err = MigrateUp(connString)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	// A second run is a no-op
	version, err = MigrateUp(connString)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	_, err = db.Exec(ctx, `SELECT 1 FROM catalog_resource LIMIT 1`)
	require.NoError(t, err)

	version, err = MigrateDown(connString, 0)
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestToMigrateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@h:5432/db", "pgx5://u:p@h:5432/db"},
		{"postgresql://u@h/db?sslmode=disable", "pgx5://u@h/db?sslmode=disable"},
		{"pgx5://u@h/db", "pgx5://u@h/db"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, toMigrateURL(tt.in))
		})
	}
}
