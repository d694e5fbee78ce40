package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/embedcache/cache"
	"github.com/jonwraymond/embedcache/observe"
	"github.com/jonwraymond/embedcache/resilience"
)

// Environment variables that override file settings.
const (
	EnvCacheDir = cache.DirEnv
	EnvAPIKey   = "OPENAI_API_KEY"
	EnvBaseURL  = "OPENAI_BASE_URL"
	EnvLogLevel = "EMBEDCACHE_LOG_LEVEL"
)

// Default OpenAI models.
const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultChatModel      = "gpt-4o-mini"
)

// Config is the complete embedcache configuration.
type Config struct {
	Cache   CacheConfig    `yaml:"cache"`
	Retry   RetryConfig    `yaml:"retry"`
	Remote  RemoteConfig   `yaml:"remote"`
	Observe observe.Config `yaml:"observe"`
}

// CacheConfig configures the stores and caches.
type CacheConfig struct {
	// Dir is the base directory of the disk store.
	// Default: cache.DefaultDir()
	Dir string `yaml:"dir"`

	// Dimension is the embedding dimension every vector must have.
	// Default: 1536
	Dimension int `yaml:"dimension"`

	// Workers is the worker pool width used to fill definitions.
	// Default: 15
	Workers int `yaml:"workers"`

	// MapName names the definition map.
	// Default: "definitions"
	MapName string `yaml:"map_name"`

	// LRUSize enables the in-memory tier when positive.
	LRUSize int `yaml:"lru_size"`

	// LRUTTL bounds how long entries stay in memory. Zero means no expiry.
	LRUTTL time.Duration `yaml:"lru_ttl"`
}

// TierConfig mirrors resilience.TierConfig.
type TierConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       float64       `yaml:"jitter"`
}

// RetryConfig configures how remote calls are retried and paced.
type RetryConfig struct {
	RateLimit   TierConfig `yaml:"rate_limit"`
	Timeout     TierConfig `yaml:"timeout"`
	Unavailable TierConfig `yaml:"unavailable"`

	// AttemptTimeout bounds a single remote attempt. Zero disables it.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// RequestsPerSecond spaces out remote requests. Zero disables it.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the rate limiter burst size.
	// Default: 10
	Burst int `yaml:"burst"`
}

// RemoteConfig configures the OpenAI adapter.
type RemoteConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	EmbeddingModel string        `yaml:"embedding_model"`
	ChatModel      string        `yaml:"chat_model"`
	SystemPrompt   string        `yaml:"system_prompt"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	policy := resilience.DefaultRetryConfig()
	return Config{
		Cache: CacheConfig{
			Dir:       cache.DefaultDir(),
			Dimension: cache.DefaultDimension,
			Workers:   resilience.DefaultWorkers,
			MapName:   cache.DefaultMapName,
		},
		Retry: RetryConfig{
			RateLimit:      tierFrom(policy.RateLimit),
			Timeout:        tierFrom(policy.Timeout),
			Unavailable:    tierFrom(policy.Unavailable),
			AttemptTimeout: 60 * time.Second,
			Burst:          10,
		},
		Remote: RemoteConfig{
			EmbeddingModel: DefaultEmbeddingModel,
			ChatModel:      DefaultChatModel,
			SystemPrompt:   "You are a concise technical writer. Define the given term in one or two sentences.",
			RequestTimeout: 2 * time.Minute,
		},
		Observe: observe.Config{
			ServiceName: "embedcache",
			Logging: observe.LoggingConfig{
				Enabled: true,
				Level:   "info",
			},
		},
	}
}

// Load reads the YAML file at path. An empty path yields Default() with
// environment overrides applied.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default(). ${VAR} references are expanded
// strictly before decoding, unknown keys are rejected, and environment
// overrides are applied last.
func Parse(data []byte) (Config, error) {
	expanded, err := ExpandEnvStrict(string(data))
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewBufferString(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		c.Cache.Dir = dir
	}
	if key := os.Getenv(EnvAPIKey); key != "" && c.Remote.APIKey == "" {
		c.Remote.APIKey = key
	}
	if url := os.Getenv(EnvBaseURL); url != "" && c.Remote.BaseURL == "" {
		c.Remote.BaseURL = url
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Observe.Logging.Level = level
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Cache.Dimension <= 0 {
		return fmt.Errorf("%w, got: %d", ErrInvalidDimension, c.Cache.Dimension)
	}
	if c.Cache.Workers <= 0 {
		return fmt.Errorf("%w, got: %d", ErrInvalidWorkers, c.Cache.Workers)
	}
	if c.Cache.LRUSize < 0 || c.Cache.LRUTTL < 0 {
		return ErrInvalidLRU
	}
	if c.Retry.RequestsPerSecond < 0 || c.Retry.Burst < 0 {
		return ErrInvalidRate
	}
	tiers := map[string]TierConfig{
		"rate_limit":  c.Retry.RateLimit,
		"timeout":     c.Retry.Timeout,
		"unavailable": c.Retry.Unavailable,
	}
	for name, t := range tiers {
		if err := t.validate(); err != nil {
			return fmt.Errorf("%w %s: %v", ErrInvalidTier, name, err)
		}
	}
	return c.Observe.Validate()
}

func (t TierConfig) validate() error {
	switch {
	case t.MaxAttempts < 0:
		return errors.New("max_attempts must not be negative")
	case t.InitialDelay < 0 || t.MaxDelay < 0:
		return errors.New("delays must not be negative")
	case t.Multiplier != 0 && t.Multiplier < 1:
		return errors.New("multiplier must be at least 1")
	case t.Jitter < 0 || t.Jitter > 1:
		return errors.New("jitter must be between 0 and 1")
	}
	return nil
}

func tierFrom(t resilience.TierConfig) TierConfig {
	return TierConfig{
		MaxAttempts:  t.MaxAttempts,
		InitialDelay: t.InitialDelay,
		MaxDelay:     t.MaxDelay,
		Multiplier:   t.Multiplier,
		Jitter:       t.Jitter,
	}
}

func (t TierConfig) resilience() resilience.TierConfig {
	return resilience.TierConfig{
		MaxAttempts:  t.MaxAttempts,
		InitialDelay: t.InitialDelay,
		MaxDelay:     t.MaxDelay,
		Multiplier:   t.Multiplier,
		Jitter:       t.Jitter,
	}
}

// Policy returns the retry configuration for resilience.NewRetry. OnRetry is
// left for the caller to set.
func (r RetryConfig) Policy() resilience.RetryConfig {
	return resilience.RetryConfig{
		RateLimit:   r.RateLimit.resilience(),
		Timeout:     r.Timeout.resilience(),
		Unavailable: r.Unavailable.resilience(),
	}
}

// Executor builds the invoker remote calls run under: the tiered retry
// reporting through tel, plus a rate limiter and an attempt timeout when
// configured.
func (r RetryConfig) Executor(tel *observe.Telemetry) *resilience.Executor {
	policy := r.Policy()
	policy.OnRetry = cache.RetryObserver(tel)

	opts := []resilience.ExecutorOption{
		resilience.WithRetry(resilience.NewRetry(policy)),
	}
	if r.RequestsPerSecond > 0 {
		opts = append(opts, resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        r.RequestsPerSecond,
			Burst:       r.Burst,
			WaitOnLimit: true,
		})))
	}
	if r.AttemptTimeout > 0 {
		opts = append(opts, resilience.WithTimeout(r.AttemptTimeout))
	}
	return resilience.NewExecutor(opts...)
}

// NewStore builds the disk store, fronted by the in-memory tier when LRUSize
// is positive.
func (c CacheConfig) NewStore(tel *observe.Telemetry) cache.Store {
	disk := cache.NewDiskStore(cache.DiskStoreConfig{
		Dir:       c.Dir,
		Dimension: c.Dimension,
		Telemetry: tel,
	})
	if c.LRUSize <= 0 {
		return disk
	}
	return cache.NewLRUStore(disk, cache.LRUConfig{
		Size:      c.LRUSize,
		TTL:       c.LRUTTL,
		Telemetry: tel,
	})
}
