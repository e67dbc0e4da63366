// Package config loads the enrichment service configuration from a YAML
// file, defaults and environment variables, and validates it.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sternrassler/vocab-enricher/pkg/batch"
	"github.com/Sternrassler/vocab-enricher/pkg/enrichment"
	"github.com/Sternrassler/vocab-enricher/pkg/logging"
	"github.com/Sternrassler/vocab-enricher/pkg/provider"
	"github.com/Sternrassler/vocab-enricher/pkg/providers"
	"github.com/Sternrassler/vocab-enricher/pkg/ratelimit"
	"github.com/Sternrassler/vocab-enricher/pkg/resolver"
	"github.com/Sternrassler/vocab-enricher/pkg/retry"
)

// EnvPrefix prefixes environment overrides, e.g. VOCAB_CACHE_BACKEND.
const EnvPrefix = "VOCAB"

type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Cache       CacheConfig       `mapstructure:"cache"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Retry       RetryConfig       `mapstructure:"retry"`
	Breaker     BreakerConfig     `mapstructure:"breaker"`
	Batch       BatchConfig       `mapstructure:"batch"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Server      ServerConfig      `mapstructure:"server"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend" validate:"oneof=memory redis sqlite mysql"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Redis   RedisConfig   `mapstructure:"redis"`
	SQL     SQLConfig     `mapstructure:"sql"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0,lte=15"`
}

type SQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RateLimitConfig struct {
	Backend     string                     `mapstructure:"backend" validate:"oneof=memory redis"`
	MaxRequests int                        `mapstructure:"max_requests" validate:"gt=0"`
	Window      time.Duration              `mapstructure:"window" validate:"gt=0"`
	Overrides   map[string]RateLimitPolicy `mapstructure:"overrides" validate:"dive"`
}

type RateLimitPolicy struct {
	MaxRequests int           `mapstructure:"max_requests" validate:"gt=0"`
	Window      time.Duration `mapstructure:"window" validate:"gt=0"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	BaseDelay      time.Duration `mapstructure:"base_delay" validate:"gt=0"`
	MaxDelay       time.Duration `mapstructure:"max_delay" validate:"gtefield=BaseDelay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" validate:"gte=0"`
}

type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout" validate:"gte=0"`
}

type BatchConfig struct {
	Concurrency int           `mapstructure:"concurrency" validate:"gte=1,lte=10"`
	Delay       time.Duration `mapstructure:"delay" validate:"gte=0"`
	MaxSize     int           `mapstructure:"max_size" validate:"gte=1"`
}

type ProvidersConfig struct {
	UserAgent string `mapstructure:"user_agent"`

	Oxford         OxfordConfig   `mapstructure:"oxford"`
	MerriamWebster APIKeyConfig   `mapstructure:"merriam_webster"`
	Forvo          APIKeyConfig   `mapstructure:"forvo"`
	Pixabay        APIKeyConfig   `mapstructure:"pixabay"`
	OpenAI         OpenAIConfig   `mapstructure:"openai"`
	MyMemory       MyMemoryConfig `mapstructure:"mymemory"`

	DefinitionPriority  []string `mapstructure:"definition_priority"`
	AudioPriority       []string `mapstructure:"audio_priority"`
	TranslationPriority []string `mapstructure:"translation_priority"`
	ImagePriority       []string `mapstructure:"image_priority"`

	PreferUSAudio     bool `mapstructure:"prefer_us_audio"`
	CollectAllAccents bool `mapstructure:"collect_all_accents"`
	FetchImages       bool `mapstructure:"fetch_images"`
}

type OxfordConfig struct {
	AppID  string `mapstructure:"app_id"`
	AppKey string `mapstructure:"app_key"`
}

type APIKeyConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

type MyMemoryConfig struct {
	Target string `mapstructure:"target" validate:"len=2"`
	Email  string `mapstructure:"email" validate:"omitempty,email"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type MaintenanceConfig struct {
	PurgeSchedule string `mapstructure:"purge_schedule" validate:"cronspec"`
}

// envBindings maps credentials to their conventional environment variables.
var envBindings = map[string]string{
	"providers.oxford.app_id":           "OXFORD_APP_ID",
	"providers.oxford.app_key":          "OXFORD_APP_KEY",
	"providers.merriam_webster.api_key": "MERRIAM_WEBSTER_API_KEY",
	"providers.forvo.api_key":           "FORVO_API_KEY",
	"providers.pixabay.api_key":         "PIXABAY_API_KEY",
	"providers.openai.api_key":          "OPENAI_API_KEY",
	"providers.openai.model":            "OPENAI_MODEL",
	"cache.redis.password":              "REDIS_PASSWORD",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "168h")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.sql.dsn", "")

	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.max_requests", ratelimit.DefaultMaxRequests)
	v.SetDefault("rate_limit.window", ratelimit.DefaultWindow)

	r := retry.DefaultConfig()
	v.SetDefault("retry.max_attempts", r.MaxAttempts)
	v.SetDefault("retry.base_delay", r.BaseDelay)
	v.SetDefault("retry.max_delay", r.MaxDelay)
	v.SetDefault("retry.attempt_timeout", r.AttemptTimeout)

	b := resolver.DefaultBreakerConfig()
	v.SetDefault("breaker.failure_threshold", b.FailureThreshold)
	v.SetDefault("breaker.open_timeout", b.OpenTimeout)

	bo := batch.DefaultOptions()
	v.SetDefault("batch.concurrency", bo.Concurrency)
	v.SetDefault("batch.delay", bo.Delay)
	v.SetDefault("batch.max_size", batch.MaxBatchSize)

	v.SetDefault("providers.user_agent", providers.DefaultUserAgent)
	v.SetDefault("providers.oxford.app_id", "")
	v.SetDefault("providers.oxford.app_key", "")
	v.SetDefault("providers.merriam_webster.api_key", "")
	v.SetDefault("providers.forvo.api_key", "")
	v.SetDefault("providers.pixabay.api_key", "")
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.openai.base_url", "")
	v.SetDefault("providers.mymemory.target", providers.DefaultTargetLanguage)
	v.SetDefault("providers.mymemory.email", "")
	v.SetDefault("providers.prefer_us_audio", false)
	v.SetDefault("providers.collect_all_accents", false)
	v.SetDefault("providers.fetch_images", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("maintenance.purge_schedule", "@daily")
}

// Load reads configFile (or ./config.yaml, $HOME/.config/vocab-enricher/config.yaml
// when empty), applies defaults and environment overrides, and validates the result.
func Load(configFile string) (*Config, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/vocab-enricher")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := validateConfig(validate, trans, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoggingConfig returns the logger settings.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// RateLimitPolicies returns the limiter policies.
func (c *Config) RateLimitPolicies() ratelimit.Config {
	cfg := ratelimit.Config{
		Default:   ratelimit.Policy{MaxRequests: c.RateLimit.MaxRequests, Window: c.RateLimit.Window},
		Overrides: make(map[string]ratelimit.Policy, len(c.RateLimit.Overrides)),
	}
	for key, p := range c.RateLimit.Overrides {
		cfg.Overrides[key] = ratelimit.Policy{MaxRequests: p.MaxRequests, Window: p.Window}
	}
	return cfg
}

// RetryPolicy returns the executor settings.
func (c *Config) RetryPolicy() retry.Config {
	return retry.Config{
		MaxAttempts:    c.Retry.MaxAttempts,
		BaseDelay:      c.Retry.BaseDelay,
		MaxDelay:       c.Retry.MaxDelay,
		AttemptTimeout: c.Retry.AttemptTimeout,
	}
}

// ResolverConfig returns the resolver settings.
func (c *Config) ResolverConfig() resolver.Config {
	return resolver.Config{
		TTL: c.Cache.TTL,
		Breaker: resolver.BreakerConfig{
			FailureThreshold: c.Breaker.FailureThreshold,
			OpenTimeout:      c.Breaker.OpenTimeout,
		},
	}
}

// EnrichmentOptions returns the orchestrator settings.
func (c *Config) EnrichmentOptions() enrichment.Options {
	return enrichment.Options{
		CollectAllAudio: c.Providers.CollectAllAccents,
		FetchImages:     c.Providers.FetchImages,
		TTL:             c.Cache.TTL,
	}
}

// BatchOptions returns the batch processor settings.
func (c *Config) BatchOptions() batch.Options {
	return batch.Options{
		Concurrency: c.Batch.Concurrency,
		Delay:       c.Batch.Delay,
	}
}

// ProviderSettings returns the built-in provider settings and priorities.
func (c *Config) ProviderSettings() providers.Config {
	p := c.Providers
	return providers.Config{
		UserAgent:      p.UserAgent,
		Oxford:         providers.OxfordConfig{AppID: p.Oxford.AppID, AppKey: p.Oxford.AppKey},
		MerriamWebster: providers.MerriamWebsterConfig{APIKey: p.MerriamWebster.APIKey},
		OpenAI:         providers.OpenAIConfig{APIKey: p.OpenAI.APIKey, Model: p.OpenAI.Model, BaseURL: p.OpenAI.BaseURL},
		Forvo:          providers.ForvoConfig{APIKey: p.Forvo.APIKey, PreferUS: p.PreferUSAudio},
		MyMemory:       providers.MyMemoryConfig{Target: p.MyMemory.Target, Email: p.MyMemory.Email},
		Pixabay:        providers.PixabayConfig{APIKey: p.Pixabay.APIKey},
		Priorities: map[provider.Category][]string{
			provider.Definition:  p.DefinitionPriority,
			provider.Audio:       p.AudioPriority,
			provider.Translation: p.TranslationPriority,
			provider.Image:       p.ImagePriority,
		},
	}
}
