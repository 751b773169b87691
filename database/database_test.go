package database

import (
	"path/filepath"
	"testing"

	"trendzn-restful/config"
	"trendzn-restful/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)

	for _, m := range models.AllModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mongo"}, zap.NewNop())
	assert.Error(t, err)
}

func TestSeedAdmin(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)

	admin := config.AdminConfig{Email: "Root@Example.com", Password: "s3cret-pass"}
	require.NoError(t, SeedAdmin(db, admin, zap.NewNop()))
	// Second call is a no-op.
	require.NoError(t, SeedAdmin(db, admin, zap.NewNop()))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, "root@example.com", users[0].Email)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.True(t, users[0].IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("s3cret-pass")))
}

func TestSeedAdminSkippedWithoutCredentials(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, SeedAdmin(db, config.AdminConfig{}, zap.NewNop()))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}
