package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nulzo/vision-grader/internal/engine"
	"github.com/nulzo/vision-grader/internal/httpclient"
	"github.com/nulzo/vision-grader/internal/strategy"
	"github.com/spf13/viper"
)

const envPrefix = "ENV:"

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Engine        EngineConfig        `mapstructure:"engine"`
	Slots         SlotsConfig         `mapstructure:"slots"`
	StrategyCache StrategyCacheConfig `mapstructure:"strategy_cache"`
	Store         StoreConfig         `mapstructure:"store"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
	// DebugAddr serves expvar and pprof when set.
	DebugAddr       string        `mapstructure:"debug_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig holds the timing knobs. Every zero duration is derived from
// TimeUnit using the standard schedule.
type EngineConfig struct {
	TimeUnit        time.Duration `mapstructure:"time_unit"`
	BaseTimeout     time.Duration `mapstructure:"base_timeout"`
	TimeoutStep     time.Duration `mapstructure:"timeout_step"`
	BackoffStep     time.Duration `mapstructure:"backoff_step"`
	TimeoutDelay    time.Duration `mapstructure:"timeout_delay"`
	ConnectDelay    time.Duration `mapstructure:"connect_delay"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinAnswerLength int           `mapstructure:"min_answer_length"`
}

type SlotConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	ModelID string `mapstructure:"model_id"`
}

type SlotsConfig struct {
	First  SlotConfig `mapstructure:"first"`
	Second SlotConfig `mapstructure:"second"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StrategyCacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// LoadConfig reads configuration from file or environment variables.
// CONFIG_FILE points at an explicit file; otherwise config.yaml is searched
// for in the usual places.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("./internal/config")
	}

	setDefaults(v)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	cfg.Slots.First.APIKey = resolveSecret(v, cfg.Slots.First.APIKey)
	cfg.Slots.Second.APIKey = resolveSecret(v, cfg.Slots.Second.APIKey)
	cfg.StrategyCache.Redis.Password = resolveSecret(v, cfg.StrategyCache.Redis.Password)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.debug_addr", "")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("engine.time_unit", "1s")
	v.SetDefault("engine.base_timeout", "0s")
	v.SetDefault("engine.timeout_step", "0s")
	v.SetDefault("engine.backoff_step", "0s")
	v.SetDefault("engine.timeout_delay", "0s")
	v.SetDefault("engine.connect_delay", "0s")
	v.SetDefault("engine.max_retries", engine.DefaultMaxRetries)
	v.SetDefault("engine.min_answer_length", engine.DefaultMinAnswerLength)

	// registered so AutomaticEnv can see SLOTS_FIRST_API_KEY and friends
	for _, slot := range strategy.Slots {
		v.SetDefault("slots."+string(slot)+".base_url", "")
		v.SetDefault("slots."+string(slot)+".api_key", "")
		v.SetDefault("slots."+string(slot)+".model_id", "")
	}

	v.SetDefault("strategy_cache.backend", CacheBackendMemory)
	v.SetDefault("strategy_cache.key_prefix", strategy.DefaultKeyPrefix)
	v.SetDefault("strategy_cache.ttl", "0s")
	v.SetDefault("strategy_cache.redis.addr", "localhost:6379")
	v.SetDefault("strategy_cache.redis.password", "")
	v.SetDefault("strategy_cache.redis.db", 0)

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.dsn", "file:grader.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")

	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "vision-grader")
}

// resolveSecret expands "ENV:NAME" values.
func resolveSecret(v *viper.Viper, value string) string {
	if !strings.HasPrefix(value, envPrefix) {
		return value
	}
	envVar := strings.TrimPrefix(value, envPrefix)
	// Check process environment first (explicit override)
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return v.GetString(envVar)
}

func (c *Config) Validate() error {
	switch c.StrategyCache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("invalid strategy_cache.backend %q", c.StrategyCache.Backend)
	}
	if c.Engine.TimeUnit <= 0 {
		return fmt.Errorf("engine.time_unit must be positive")
	}
	return nil
}

// Slot returns the endpoint configured for a slot. Incomplete endpoints are
// returned as-is; the engine reports what is missing.
func (c *Config) Slot(slot strategy.Slot) (engine.Endpoint, error) {
	var sc SlotConfig
	switch slot {
	case strategy.First:
		sc = c.Slots.First
	case strategy.Second:
		sc = c.Slots.Second
	default:
		return engine.Endpoint{}, fmt.Errorf("%w: %q", strategy.ErrInvalidSlot, slot)
	}
	return engine.Endpoint{
		BaseURL: strings.TrimSpace(sc.BaseURL),
		APIKey:  strings.TrimSpace(sc.APIKey),
		ModelID: strings.TrimSpace(sc.ModelID),
	}, nil
}

// Policy returns the transport retry schedule.
func (e EngineConfig) Policy() httpclient.Policy {
	p := httpclient.PolicyForUnit(e.TimeUnit)
	if e.BaseTimeout > 0 {
		p.BaseTimeout = e.BaseTimeout
	}
	if e.TimeoutStep > 0 {
		p.TimeoutStep = e.TimeoutStep
	}
	if e.BackoffStep > 0 {
		p.BackoffStep = e.BackoffStep
	}
	if e.TimeoutDelay > 0 {
		p.TimeoutDelay = e.TimeoutDelay
	}
	if e.ConnectDelay > 0 {
		p.ConnectDelay = e.ConnectDelay
	}
	return p
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
