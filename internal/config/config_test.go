package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nulzo/vision-grader/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	os.Clearenv()
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ENV", "test")
	t.Setenv("STRATEGY_CACHE_BACKEND", "redis")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Env)
	assert.Equal(t, CacheBackendRedis, cfg.StrategyCache.Backend)
	assert.Equal(t, time.Second, cfg.Engine.TimeUnit)
	assert.Equal(t, 1, cfg.Engine.MaxRetries)
	assert.Equal(t, 10, cfg.Engine.MinAnswerLength)
	assert.Equal(t, strategy.DefaultKeyPrefix, cfg.StrategyCache.KeyPrefix)
	assert.True(t, cfg.Store.Enabled)
}

func TestLoadConfig_SlotsFromEnv(t *testing.T) {
	os.Clearenv()
	t.Setenv("SLOTS_FIRST_BASE_URL", " https://api.deepseek.com/ ")
	t.Setenv("SLOTS_FIRST_API_KEY", "sk-first")
	t.Setenv("SLOTS_FIRST_MODEL_ID", "deepseek-vl")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	ep, err := cfg.Slot(strategy.First)
	require.NoError(t, err)
	assert.Equal(t, "https://api.deepseek.com/", ep.BaseURL)
	assert.Equal(t, "sk-first", ep.APIKey)
	assert.Equal(t, "deepseek-vl", ep.ModelID)

	second, err := cfg.Slot(strategy.Second)
	require.NoError(t, err)
	assert.False(t, second.Complete())

	_, err = cfg.Slot("third")
	assert.ErrorIs(t, err, strategy.ErrInvalidSlot)
}

func TestLoadConfig_FileAndAPIKeyResolution(t *testing.T) {
	os.Clearenv()
	t.Setenv("GRADER_SECOND_KEY", "sk-test-12345")

	configContent := `
engine:
  time_unit: 10ms
  connect_delay: 1s
slots:
  second:
    base_url: "https://dashscope.aliyuncs.com/compatible-mode/v1"
    api_key: "ENV:GRADER_SECOND_KEY"
    model_id: "qwen-vl-max"
strategy_cache:
  ttl: 24h
`
	path := filepath.Join(t.TempDir(), "grader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configContent), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	ep, err := cfg.Slot(strategy.Second)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-12345", ep.APIKey)
	assert.Equal(t, "qwen-vl-max", ep.ModelID)
	assert.Equal(t, 24*time.Hour, cfg.StrategyCache.TTL)

	p := cfg.Engine.Policy()
	assert.Equal(t, 300*time.Millisecond, p.BaseTimeout)
	assert.Equal(t, 150*time.Millisecond, p.TimeoutStep)
	assert.Equal(t, 20*time.Millisecond, p.BackoffStep)
	assert.Equal(t, time.Second, p.ConnectDelay)
}

func TestLoadConfig_InvalidBackend(t *testing.T) {
	os.Clearenv()
	t.Setenv("STRATEGY_CACHE_BACKEND", "memcached")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	os.Clearenv()
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}
