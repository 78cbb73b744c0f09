package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

/* Config is read from an optional .env (TOML) file and the environment
 * Environment variables win over the file
 */

type Config struct {
	Port            string        `mapstructure:"PORT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	Backend         string        `mapstructure:"BACKEND"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	PostgresDSN     string        `mapstructure:"POSTGRES_DSN"`
	TunnelsFile     string        `mapstructure:"TUNNELS_FILE"`
	ClientTimeout   time.Duration `mapstructure:"CLIENT_TIMEOUT"`
	CleanupInterval time.Duration `mapstructure:"CLEANUP_INTERVAL"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	PollWait        time.Duration `mapstructure:"POLL_WAIT"`
	MaxQueueDepth   int           `mapstructure:"MAX_QUEUE_DEPTH"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	RecordWorkers   int           `mapstructure:"RECORD_WORKERS"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var defaults = map[string]any{
	"PORT":             "8080",
	"LOG_LEVEL":        "info",
	"BACKEND":          BackendMemory,
	"REDIS_ADDR":       "localhost:6379",
	"REDIS_PASSWORD":   "",
	"REDIS_DB":         0,
	"POSTGRES_DSN":     "",
	"TUNNELS_FILE":     "tunnels.yaml",
	"CLIENT_TIMEOUT":   "30s",
	"CLEANUP_INTERVAL": "5m",
	"REQUEST_TIMEOUT":  "30s",
	"POLL_WAIT":        "25s",
	"MAX_QUEUE_DEPTH":  1000,
	"RATE_LIMIT_RPS":   0,
	"RATE_LIMIT_BURST": 20,
	"RECORD_WORKERS":   4,
}

func GetConfig() (*Config, error) {
	return load(viper.New(), ".")
}

func load(v *viper.Viper, path string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the values that have no usable fallback
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.Backend != BackendMemory && c.Backend != BackendRedis {
		return fmt.Errorf("BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.Backend)
	}
	if c.Backend == BackendRedis && c.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required for the redis backend")
	}
	if c.ClientTimeout <= 0 {
		return errors.New("CLIENT_TIMEOUT must be positive")
	}
	if c.PollWait <= 0 || c.PollWait >= c.ClientTimeout {
		return fmt.Errorf("POLL_WAIT must be positive and shorter than CLIENT_TIMEOUT (%s), got %s", c.ClientTimeout, c.PollWait)
	}
	if c.CleanupInterval <= 0 {
		return errors.New("CLEANUP_INTERVAL must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.MaxQueueDepth < 0 {
		return errors.New("MAX_QUEUE_DEPTH cannot be negative")
	}
	return nil
}
