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

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "SERVER_ENV", "SERVER_PORT", "JWT_SECRET", "REDIS_ADDR", "REDIS_PASSWORD", "FIRST_ADMIN_USERNAME", "CONFIG_PATH"} {
		t.Setenv(key, "")
	}
}

func TestLoad_FileAndDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 8080
database:
  url: postgres://forum@localhost/forum
jwt:
  secret: from-file
realtime:
  send_buffer: 16
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.TokenTTL())
	assert.Equal(t, 16, cfg.Realtime.SendBuffer)
	assert.Equal(t, 54*time.Second, cfg.PingInterval())
	assert.Equal(t, 4, cfg.Realtime.FanoutWorkers)
	assert.Equal(t, "forum:events", cfg.Redis.Channel)
	assert.Equal(t, 5, cfg.Database.MaxRetries)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Zero(t, cfg.ActionLogMaxAge(), "retention is off unless configured")
	assert.Equal(t, time.Hour, cfg.SweepInterval())
}

func TestLoad_Retention(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database:
  url: postgres://x
jwt:
  secret: s
retention:
  action_log_days: 30
  sweep_interval_minutes: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, cfg.ActionLogMaxAge())
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database:
  url: postgres://file
jwt:
  secret: from-file
`)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("FIRST_ADMIN_USERNAME", "root")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "root", cfg.Seed.AdminUsername)
}

func TestLoad_MissingFileUsesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("JWT_SECRET", "s")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestLoad_RequiresSecrets(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "jwt:\n  secret: s\n"))
	assert.ErrorContains(t, err, "database url")

	_, err = Load(writeConfig(t, "database:\n  url: postgres://x\n"))
	assert.ErrorContains(t, err, "jwt secret")
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}
