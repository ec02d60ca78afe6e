// Package config provides configuration loading for lexid.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the root configuration for the lexid daemon.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	LLM        LLMConfig        `koanf:"llm"`
	Uploads    UploadsConfig    `koanf:"uploads"`
	Grounding  GroundingConfig  `koanf:"grounding"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds backend store (PostgREST-style API) configuration.
type StoreConfig struct {
	// BaseURL is the REST endpoint of the backing store.
	BaseURL string `koanf:"base_url"`

	// APIKey authenticates against the store. Redacted in logs.
	APIKey Secret `koanf:"api_key"`

	// MaxAttempts bounds retries per operation, first try included.
	MaxAttempts int `koanf:"max_attempts"`

	// Backoff is the fixed delay between attempts.
	Backoff Duration `koanf:"backoff"`

	// Timeout bounds each individual HTTP call.
	Timeout Duration `koanf:"timeout"`
}

// EmbeddingsConfig holds embedding service configuration.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`

	// MaxInputChars is the safety truncation limit applied before dispatch.
	MaxInputChars int      `koanf:"max_input_chars"`
	Timeout       Duration `koanf:"timeout"`
}

// LLMConfig holds text-completion service configuration.
type LLMConfig struct {
	BaseURL   string   `koanf:"base_url"`
	Model     string   `koanf:"model"`
	APIKey    Secret   `koanf:"api_key"`
	MaxTokens int      `koanf:"max_tokens"`
	Timeout   Duration `koanf:"timeout"`
}

// UploadsConfig holds evidence file storage configuration.
type UploadsConfig struct {
	// Dir is the directory for content-addressed evidence files.
	Dir string `koanf:"dir"`
}

// GroundingConfig holds the semantic grounding gate configuration.
type GroundingConfig struct {
	// Threshold is the minimum cosine similarity between the incident
	// description and extracted facts. Tuned empirically.
	Threshold float64 `koanf:"threshold"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export configuration. Disabled by
// default; the pipeline instruments itself either way and the spans and
// counters become no-ops without a provider.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`

	// Protocol is "grpc" or "http/protobuf".
	Protocol string `koanf:"protocol"`

	// Insecure disables TLS. Only honored for local endpoints.
	Insecure bool `koanf:"insecure"`

	// SamplingRate is the trace sampling ratio in [0, 1].
	SamplingRate float64 `koanf:"sampling_rate"`

	// MetricsInterval is the periodic metric export interval.
	MetricsInterval Duration `koanf:"metrics_interval"`
}

// Default returns the built-in defaults. Values mirror the observed
// production settings: 3 store attempts with 600ms backoff, 10s transport
// timeouts, 8000-char embedding input limit, 0.25 grounding threshold.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Store: StoreConfig{
			MaxAttempts: 3,
			Backoff:     Duration(600 * time.Millisecond),
			Timeout:     Duration(10 * time.Second),
		},
		Embeddings: EmbeddingsConfig{
			BaseURL:       "https://api.jina.ai",
			Model:         "jina-embeddings-v2-base-en",
			MaxInputChars: 8000,
			Timeout:       Duration(10 * time.Second),
		},
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 512,
			Timeout:   Duration(10 * time.Second),
		},
		Uploads: UploadsConfig{
			Dir: "uploads",
		},
		Grounding: GroundingConfig{
			Threshold: 0.25,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:         false,
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			Insecure:        true,
			SamplingRate:    1.0,
			MetricsInterval: Duration(15 * time.Second),
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Store.BaseURL == "" {
		return errors.New("store base URL is required")
	}
	if c.Store.MaxAttempts < 1 {
		return fmt.Errorf("store max attempts must be at least 1, got %d", c.Store.MaxAttempts)
	}
	if c.Embeddings.BaseURL == "" {
		return errors.New("embeddings base URL is required")
	}
	if c.Embeddings.MaxInputChars < 1 {
		return fmt.Errorf("embeddings max input chars must be positive, got %d", c.Embeddings.MaxInputChars)
	}
	if c.Grounding.Threshold < -1 || c.Grounding.Threshold > 1 {
		return fmt.Errorf("grounding threshold must be within [-1, 1], got %v", c.Grounding.Threshold)
	}
	if c.Uploads.Dir == "" {
		return errors.New("uploads directory is required")
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return errors.New("telemetry endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
			return fmt.Errorf("telemetry sampling rate must be within [0, 1], got %v", c.Telemetry.SamplingRate)
		}
		if c.Telemetry.MetricsInterval <= 0 {
			return errors.New("telemetry metrics interval must be positive")
		}
	}
	return nil
}
