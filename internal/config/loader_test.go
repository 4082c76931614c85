package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/lendscore/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 8501, cfg.Dashboard.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Dashboard.APITimeout)
	assert.Equal(t, domain.ModelSourceFile, cfg.Model.Source)
	assert.Equal(t, "memory", cfg.Cache.Type)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lendscore.yaml")
	yaml := `
server:
  port: 6000
dashboard:
  api_url: http://scorer:6000
  api_timeout: 3s
cache:
  type: redis
  redis_addr: cache:6379
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv(EnvConfigFile, path)
	t.Setenv("LENDSCORE_SERVER__PORT", "7000")
	t.Setenv("LENDSCORE_DASHBOARD__REPORT_TTL", "30m")
	t.Setenv("LENDSCORE_REPOSITORY__DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	// env beats file
	assert.Equal(t, 7000, cfg.Server.Port)
	// file beats defaults
	assert.Equal(t, "http://scorer:6000", cfg.Dashboard.APIURL)
	assert.Equal(t, 3*time.Second, cfg.Dashboard.APITimeout)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, "cache:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 30*time.Minute, cfg.Dashboard.ReportTTL)
	assert.Equal(t, "postgres", cfg.Repository.Driver)
	// untouched defaults survive
	assert.Equal(t, 8501, cfg.Dashboard.Server.Port)
	assert.Equal(t, 1000, cfg.Cache.LocalMaxSize)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("LENDSCORE_MODEL__SOURCE", "s3")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.source")
}

func TestValidate(t *testing.T) {
	cfg := domain.DefaultConfig()
	require.NoError(t, Validate(cfg))

	cfg.Server.Port = 0
	cfg.Dashboard.APITimeout = 0
	cfg.Logging.Level = "verbose"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "api_timeout")
	assert.Contains(t, err.Error(), "logging.level")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.port", envKey("LENDSCORE_SERVER__PORT"))
	assert.Equal(t, "dashboard.server.read_timeout", envKey("LENDSCORE_DASHBOARD__SERVER__READ_TIMEOUT"))
	assert.Equal(t, "config", envKey("LENDSCORE_CONFIG"))
}
