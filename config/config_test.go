package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, 10, cfg.App.DefaultPageSize)
	assert.Equal(t, 100, cfg.App.MaxPageSize)
	assert.True(t, cfg.InsecureSecret())
	assert.Empty(t, cfg.RateLimit.TrustedProxies)
}

func TestProductionRejectsDefaultSecret(t *testing.T) {
	t.Setenv("TRENDZN_ENV", "production")
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
http_port: 9000
env: production
jwt:
  secret: from-file
  ttl: 1h
storage:
  backend: s3
  s3:
    bucket: memes
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("TRENDZN_HTTP_PORT", "9100")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "memes", cfg.Storage.S3.Bucket)
	assert.False(t, cfg.InsecureSecret())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Database.Driver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Backend = "s3"
	assert.Error(t, cfg.Validate(), "s3 without bucket")

	cfg = base()
	cfg.JWT.Secret = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Env = "production"
	assert.Error(t, cfg.Validate(), "default secret in production")
	cfg.JWT.Secret = "a-real-secret"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.App.MaxPageSize = 5
	assert.Error(t, cfg.Validate())
}
