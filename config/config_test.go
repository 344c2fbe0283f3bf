package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/mentorship")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REDIS_RATING_TTL", "90s")
	t.Setenv("JWT_TOKEN_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "postgres://u:p@db:5432/mentorship", cfg.Database.URL)
	assert.Equal(t, 90*time.Second, cfg.Redis.RatingTTL)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTPAddr())
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.yaml")
	content := `
app:
  name: campus-mentors
  timezone: Asia/Kolkata
database:
  driver: memory
meeting:
  base_url: https://meet.campus.test
redis:
  rating_ttl: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_NAME", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.App.Name)
	assert.Equal(t, "Asia/Kolkata", cfg.App.Timezone)
	assert.Equal(t, StorageMemory, cfg.Database.Driver)
	assert.Equal(t, "https://meet.campus.test", cfg.Meeting.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.Redis.RatingTTL)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: "DATABASE_URL is required",
		},
		{
			name: "memory in production",
			mutate: func(c *Config) {
				c.Database.Driver = StorageMemory
				c.App.Environment = EnvProduction
				c.Auth.JWTSecret = "s"
			},
			wantErr: "not allowed in production",
		},
		{
			name: "production without secret",
			mutate: func(c *Config) {
				c.App.Environment = EnvProduction
			},
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.HTTP.Port = 0 },
			wantErr: "HTTP_PORT",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "unknown STORAGE_DRIVER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Database.URL = "postgres://localhost/mentorship"
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("defaults with url are valid", func(t *testing.T) {
		cfg := Default()
		cfg.Database.URL = "postgres://localhost/mentorship"
		assert.NoError(t, cfg.Validate())
	})
}
