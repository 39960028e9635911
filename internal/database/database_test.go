package database

import (
	"testing"

	"collab/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn", zerolog.Nop())
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMigrate_CreatesTables(t *testing.T) {
	db, err := Open("sqlite", "file:migrate_test?mode=memory&cache=shared", zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	require.NoError(t, Migrate(db))

	for _, model := range []any{&models.User{}, &models.Project{}, &models.ProjectMember{}, &models.Match{}} {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.True(t, db.Migrator().HasIndex(&models.Match{}, "idx_matches_user_project"))
}
