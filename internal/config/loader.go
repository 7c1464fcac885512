package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment variables consulted by Loader. ELEVENLABS_API_KEY is the
// credential; the rest override file and default values.
const (
	EnvAPIKey         = "ELEVENLABS_API_KEY"
	EnvListenAddr     = "TTS_PROXY_LISTEN_ADDR"
	EnvGRPCListenAddr = "TTS_PROXY_GRPC_LISTEN_ADDR"
	EnvBaseURL        = "TTS_PROXY_BASE_URL"
	EnvTimeout        = "TTS_PROXY_UPSTREAM_TIMEOUT"
	EnvLogLevel       = "TTS_PROXY_LOG_LEVEL"
	EnvLogFormat      = "TTS_PROXY_LOG_FORMAT"
	EnvCacheDir       = "TTS_PROXY_CACHE_DIR"
	EnvCacheMaxSizeMB = "TTS_PROXY_CACHE_MAX_SIZE_MB"
	EnvUseStub        = "TTS_PROXY_USE_STUB"
)

// Loader loads configuration from an optional file and environment variables.
// Tests can override Lookup to inject deterministic maps.
type Loader struct {
	// ConfigFile is read when non-empty; any format viper understands works.
	ConfigFile string
	Lookup     func(string) (string, bool)
}

// Load retrieves the proxy configuration and validates it.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}

	v := viper.New()
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("upstream_timeout", DefaultUpstreamTimeout)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)
	v.SetDefault("cors_allowed_origins", []string{"*"})
	v.SetDefault("cache_max_size_mb", DefaultCacheMaxSizeMB)

	if l.ConfigFile != "" {
		v.SetConfigFile(l.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", l.ConfigFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	overrideString(l.Lookup, EnvAPIKey, &cfg.APIKey)
	overrideString(l.Lookup, EnvListenAddr, &cfg.ListenAddr)
	overrideString(l.Lookup, EnvGRPCListenAddr, &cfg.GRPCListenAddr)
	overrideString(l.Lookup, EnvBaseURL, &cfg.BaseURL)
	overrideString(l.Lookup, EnvLogLevel, &cfg.LogLevel)
	overrideString(l.Lookup, EnvLogFormat, &cfg.LogFormat)
	overrideString(l.Lookup, EnvCacheDir, &cfg.CacheDir)

	if err := overrideDuration(l.Lookup, EnvTimeout, &cfg.UpstreamTimeout); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, EnvCacheMaxSizeMB, &cfg.CacheMaxSizeMB); err != nil {
		return Config{}, err
	}
	if err := overrideBool(l.Lookup, EnvUseStub, &cfg.UseStubSynthesizer); err != nil {
		return Config{}, err
	}

	cfg.APIKey = resolveEnvRef(l.Lookup, cfg.APIKey)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolveEnvRef replaces a "${VAR_NAME}" value with the named variable.
// Unset references resolve to the empty string so a placeholder is never
// sent upstream as a credential.
func resolveEnvRef(lookup func(string) (string, bool), val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		if envVal, ok := lookup(val[2 : len(val)-1]); ok {
			return strings.TrimSpace(envVal)
		}
		return ""
	}
	return val
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if lookup == nil || target == nil {
		return
	}
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideDuration(lookup func(string) (string, bool), key string, target *time.Duration) error {
	var raw string
	overrideString(lookup, key, &raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*target = d
	return nil
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) error {
	var raw string
	overrideString(lookup, key, &raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*target = n
	return nil
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) error {
	var raw string
	overrideString(lookup, key, &raw)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*target = b
	return nil
}
