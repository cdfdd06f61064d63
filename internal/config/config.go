package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingCredential is the startup error for an absent API key.
var ErrMissingCredential = errors.New("config: GEMINI_API_KEY is not set")

type Config struct {
	APIKey  string
	Offline bool
	Models  ModelConfig
	Retry   RetryConfig
	Rate    RateConfig
	Tracing TracingConfig
}

// ModelConfig routes light calls (questions, vibe check) to Fast and
// synthesis calls (blueprint, context analysis) to Deep.
type ModelConfig struct {
	Fast string
	Deep string
}

type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
}

type RateConfig struct {
	RPS   float64
	Burst int
}

// TracingConfig selects a span exporter. An empty Exporter disables tracing.
type TracingConfig struct {
	Exporter   string // otlp, zipkin
	Endpoint   string
	SampleRate float64
}

type Options struct {
	// ConfigFile is an optional YAML/TOML/JSON file read before the environment.
	ConfigFile string
	// Offline skips the credential check; the caller wires a fake client.
	Offline bool
	// TraceExporter and TraceEndpoint override the tracing settings when set.
	TraceExporter string
	TraceEndpoint string
}

// Load reads .env (if present), the optional config file, and CUPIDX_*
// environment variables. The API key is also read from GEMINI_API_KEY and
// API_KEY.
func Load(opts Options) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CUPIDX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("model.fast", "gemini-2.5-flash")
	v.SetDefault("model.deep", "gemini-2.5-pro")
	v.SetDefault("retry.attempts", 1)
	v.SetDefault("retry.base_delay", 300*time.Millisecond)
	v.SetDefault("rate.rps", 0)
	v.SetDefault("rate.burst", 1)
	v.SetDefault("tracing.sample_rate", 1.0)
	if err := v.BindEnv("api_key", "CUPIDX_API_KEY", "GEMINI_API_KEY", "API_KEY"); err != nil {
		return nil, fmt.Errorf("config: bind api key: %w", err)
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
	}

	cfg := &Config{
		APIKey:  strings.TrimSpace(v.GetString("api_key")),
		Offline: opts.Offline,
		Models: ModelConfig{
			Fast: firstNonEmpty(strings.TrimSpace(v.GetString("model.fast")), "gemini-2.5-flash"),
			Deep: firstNonEmpty(strings.TrimSpace(v.GetString("model.deep")), "gemini-2.5-pro"),
		},
		Retry: RetryConfig{
			Attempts:  v.GetInt("retry.attempts"),
			BaseDelay: v.GetDuration("retry.base_delay"),
		},
		Rate: RateConfig{
			RPS:   v.GetFloat64("rate.rps"),
			Burst: v.GetInt("rate.burst"),
		},
		Tracing: TracingConfig{
			Exporter:   strings.ToLower(firstNonEmpty(opts.TraceExporter, strings.TrimSpace(v.GetString("tracing.exporter")))),
			Endpoint:   firstNonEmpty(opts.TraceEndpoint, strings.TrimSpace(v.GetString("tracing.endpoint"))),
			SampleRate: v.GetFloat64("tracing.sample_rate"),
		},
	}
	if cfg.Retry.Attempts < 1 {
		cfg.Retry.Attempts = 1
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = 300 * time.Millisecond
	}
	if cfg.Rate.Burst < 1 {
		cfg.Rate.Burst = 1
	}
	if cfg.Tracing.SampleRate <= 0 || cfg.Tracing.SampleRate > 1 {
		cfg.Tracing.SampleRate = 1
	}

	if cfg.APIKey == "" && !cfg.Offline {
		return nil, ErrMissingCredential
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
