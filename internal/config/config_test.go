package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  sqlite:
    path: test.db
auth:
  jwt_secret: s3cret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "test.db", cfg.Database.SQLite.Path)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, 1000, cfg.Rewards.DefaultApprovalPoints)
	assert.Equal(t, 50, cfg.Rewards.ExperiencePerApproval)
	assert.False(t, cfg.Rewards.TrustRecovery.Enabled)
	assert.Equal(t, 7, cfg.Rewards.TrustRecovery.IntervalDays)
	assert.Equal(t, 100, cfg.Leaderboard.DefaultLimit)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Prometheus.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
auth:
  jwt_secret: from-file
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("REWARDS_DEFAULT_APPROVAL_POINTS", "750")
	t.Setenv("TRUST_RECOVERY_ENABLED", "true")
	t.Setenv("PORT", "8081")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 750, cfg.Rewards.DefaultApprovalPoints)
	assert.True(t, cfg.Rewards.TrustRecovery.Enabled)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{
				Driver:   "postgres",
				Postgres: PostgresConfig{Host: "db", Database: "plants", User: "plant"},
			},
			Auth:    AuthConfig{JWTSecret: "s"},
			Rewards: RewardsConfig{Timezone: "UTC"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid postgres", mutate: func(*Config) {}},
		{name: "valid sqlite", mutate: func(c *Config) {
			c.Database.Driver = "sqlite"
			c.Database.SQLite.Path = "x.db"
		}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "missing postgres host", mutate: func(c *Config) { c.Database.Postgres.Host = "" }, wantErr: true},
		{name: "missing sqlite path", mutate: func(c *Config) {
			c.Database.Driver = "sqlite"
			c.Database.SQLite.Path = ""
		}, wantErr: true},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "negative approval points", mutate: func(c *Config) { c.Rewards.DefaultApprovalPoints = -1 }, wantErr: true},
		{name: "recovery without interval", mutate: func(c *Config) {
			c.Rewards.TrustRecovery.Enabled = true
		}, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Rewards.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "mattermost without webhook", mutate: func(c *Config) { c.Mattermost.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	redis := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", redis.Addr())

	pg := PostgresConfig{Host: "db", Port: 5432, Database: "plants", User: "u", Password: "p", SSLMode: "disable"}
	assert.Contains(t, pg.DSN(), "host=db")
	assert.Contains(t, pg.DSN(), "dbname=plants")
	assert.Equal(t, "postgres://u:p@db:5432/plants?sslmode=disable", pg.URL())

	loc, err := (&RewardsConfig{}).Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
