package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// MaxCryptoChunk is the provider ceiling on ids per market listing call.
const MaxCryptoChunk = 250

// Config holds all configuration for one build invocation.
type Config struct {
	// Build knobs
	ThrottleMS      int `mapstructure:"throttle_ms"`
	RetryDelayMS    int `mapstructure:"retry_delay_ms"`
	ChunkSizeCrypto int `mapstructure:"chunk_size_crypto"`
	ChunkSizeStocks int `mapstructure:"chunk_size_stocks"`

	// Provider base URLs (configurable for testing)
	GeocodingBaseURL string `mapstructure:"geocoding_base_url"`
	ForecastBaseURL  string `mapstructure:"forecast_base_url"`
	CoinGeckoBaseURL string `mapstructure:"coingecko_base_url"`
	StooqBaseURL     string `mapstructure:"stooq_base_url"`

	// Directories
	DataDir  string `mapstructure:"data_dir"`
	CacheDir string `mapstructure:"cache_dir"`
	DistDir  string `mapstructure:"dist_dir"`

	// Shard identity
	ShardIndex int `mapstructure:"shard_index"`
	ShardTotal int `mapstructure:"shard_total"`
}

// Throttle returns the inter-unit pause duration.
func (c *Config) Throttle() time.Duration {
	return time.Duration(c.ThrottleMS) * time.Millisecond
}

// RetryDelay returns the delay before the single transport retry.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// Load reads configuration from an optional config.yaml plus environment
// variables, with environment taking precedence. Every knob has a built-in
// default, so a missing or unreadable config file is never fatal.
//
// Shard identity comes from SHARD_INDEX and SHARD_TOTAL, defaulting to the
// unsharded single-pass build (0, 1).
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("throttle_ms", 400)
	v.SetDefault("retry_delay_ms", 2000)
	v.SetDefault("chunk_size_crypto", 100)
	v.SetDefault("chunk_size_stocks", 50)

	v.SetDefault("geocoding_base_url", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("forecast_base_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("coingecko_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("stooq_base_url", "https://stooq.com/q/l/")

	v.SetDefault("data_dir", "data")
	v.SetDefault("cache_dir", "cache/weather")
	v.SetDefault("dist_dir", "dist")

	v.SetDefault("shard_index", 0)
	v.SetDefault("shard_total", 1)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Read config file (ignore if not found or unparseable)
	_ = v.ReadInConfig()

	v.BindEnv("shard_index", "SHARD_INDEX")
	v.BindEnv("shard_total", "SHARD_TOTAL")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.normalize()
	return config, nil
}

// normalize clamps out-of-range knobs rather than failing the build.
func (c *Config) normalize() {
	if c.ShardTotal < 1 {
		c.ShardTotal = 1
	}
	if c.ShardIndex < 0 || c.ShardIndex >= c.ShardTotal {
		c.ShardIndex = 0
	}
	if c.ChunkSizeCrypto < 1 {
		c.ChunkSizeCrypto = 1
	}
	if c.ChunkSizeCrypto > MaxCryptoChunk {
		c.ChunkSizeCrypto = MaxCryptoChunk
	}
	if c.ChunkSizeStocks < 1 {
		c.ChunkSizeStocks = 1
	}
	if c.ThrottleMS < 0 {
		c.ThrottleMS = 0
	}
	if c.RetryDelayMS < 0 {
		c.RetryDelayMS = 0
	}
}
