package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rrens/invitation-agent/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "Invitation Assistant", cfg.App.Name)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "smtp.gmail.com", cfg.Email.Host)
	assert.Equal(t, 587, cfg.Email.Port)
	assert.Equal(t, "gemini", cfg.LLM.DefaultProvider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Gemini.Model)
	assert.False(t, cfg.Dispatch.ContinueOnEmailFailure)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("SECRET_KEY", "env-secret")
	t.Setenv("EMAIL_HOST_USER", "bot@example.com")
	t.Setenv("EMAIL_HOST_PASSWORD", "app-password")
	t.Setenv("SMTP_SERVER", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("DB_URL", "postgres://u:p@db:5432/inv")
	t.Setenv("GEMINI_API_KEY", "gem-key")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "bot@example.com", cfg.Email.Username)
	assert.Equal(t, "bot@example.com", cfg.Email.Sender())
	assert.Equal(t, "app-password", cfg.Email.Password)
	assert.Equal(t, "smtp.example.com", cfg.Email.Host)
	assert.Equal(t, 2525, cfg.Email.Port)
	assert.Equal(t, "postgres://u:p@db:5432/inv", cfg.Database.DSN())
	assert.Equal(t, "gem-key", cfg.LLM.Gemini.APIKey)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
database:
  driver: sqlite
  sqlite_path: /tmp/test.db
dispatch:
  continue_on_email_failure: true
messaging:
  enabled: true
  endpoint: http://wa:9000/sse
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Database.SQLitePath)
	assert.True(t, cfg.Dispatch.ContinueOnEmailFailure)
	assert.True(t, cfg.Messaging.Enabled)
	assert.Equal(t, "http://wa:9000/sse", cfg.Messaging.Endpoint)
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Database: config.DatabaseConfig{Driver: "sqlite", SQLitePath: "x.db"},
			Auth:     config.AuthConfig{JWTSecret: "secret"},
			Email:    config.EmailConfig{Enabled: true, Username: "u", Password: "p"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		warnings, err := base().Validate()
		assert.NoError(t, err)
		assert.Empty(t, warnings)
	})

	t.Run("default secret warns", func(t *testing.T) {
		cfg := base()
		cfg.Auth.JWTSecret = config.DefaultJWTSecret
		warnings, err := cfg.Validate()
		assert.NoError(t, err)
		assert.Len(t, warnings, 1)
	})

	t.Run("missing email credentials", func(t *testing.T) {
		cfg := base()
		cfg.Email.Username = ""
		cfg.Email.Password = ""
		_, err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EMAIL_HOST_USER")
		assert.Contains(t, err.Error(), "EMAIL_HOST_PASSWORD")
	})

	t.Run("email disabled skips credentials", func(t *testing.T) {
		cfg := base()
		cfg.Email = config.EmailConfig{}
		_, err := cfg.Validate()
		assert.NoError(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.Database.Driver = "oracle"
		_, err := cfg.Validate()
		assert.Error(t, err)
	})
}
