package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultListenAddr      = "0.0.0.0:8005"
	DefaultBaseURL         = "https://api.elevenlabs.io/v1"
	DefaultUpstreamTimeout = 60 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultCacheMaxSizeMB  = 0
)

// Config captures bootstrap configuration read from defaults, an optional
// config file and environment variables.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	// GRPCListenAddr enables the NAP gRPC surface when non-empty.
	GRPCListenAddr string `mapstructure:"grpc_listen_addr"`

	// APIKey is the ElevenLabs credential. It may be empty: the proxy still
	// starts but refuses to synthesize.
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`

	CacheDir       string `mapstructure:"cache_dir"`
	CacheMaxSizeMB int    `mapstructure:"cache_max_size_mb"`

	UseStubSynthesizer bool `mapstructure:"use_stub_synthesizer"`
}

// APIKeyConfigured reports whether a credential is present.
func (c Config) APIKeyConfigured() bool {
	return c.APIKey != ""
}

// CacheEnabled reports whether the disk audio cache should be created.
func (c Config) CacheEnabled() bool {
	return c.CacheDir != "" && c.CacheMaxSizeMB > 0
}

// Validate applies defaults and raises an error for malformed values.
// A missing API key is not an error.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("config: base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.UpstreamTimeout == 0 {
		c.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if c.UpstreamTimeout < 0 {
		return fmt.Errorf("config: upstream_timeout must be positive, got %s", c.UpstreamTimeout)
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	if c.CacheMaxSizeMB < 0 {
		return fmt.Errorf("config: cache_max_size_mb must not be negative, got %d", c.CacheMaxSizeMB)
	}
	return nil
}
