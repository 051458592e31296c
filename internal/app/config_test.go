package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 7*24*time.Hour, cfg.Invitations.RequestTokenTTL)
	require.Equal(t, 0, cfg.Companies.DefaultMemberLimit)
	require.Equal(t, "@hourly", cfg.Maintenance.JoinRequestSchedule)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte(`
server:
  port: 9100
  log_level: debug
auth:
  jwt:
    secret: unit-test-secret
    access_token_ttl: 30m
invitations:
  code_secret: unit-test-code-secret
  base_url: https://app.example.com
companies:
  default_member_limit: 25
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, "https://app.example.com", cfg.Invitations.BaseURL)
	require.Equal(t, 25, cfg.Companies.DefaultMemberLimit)

	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresSecrets(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.Validate())

	cfg.Auth.JWT.Secret = "jwt-secret"
	require.Error(t, cfg.Validate())

	cfg.Invitations.CodeSecret = "code-secret"
	require.NoError(t, cfg.Validate())
}
