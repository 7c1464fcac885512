package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fakeEnv(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoaderDefaults(t *testing.T) {
	cfg, err := (Loader{Lookup: fakeEnv(nil)}).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want default %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.UpstreamTimeout != 60*time.Second {
		t.Errorf("UpstreamTimeout = %s, want 60s", cfg.UpstreamTimeout)
	}
	if cfg.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.APIKey)
	}
	if cfg.GRPCListenAddr != "" {
		t.Errorf("GRPCListenAddr = %q, want empty", cfg.GRPCListenAddr)
	}
	if cfg.CacheEnabled() {
		t.Error("cache should be disabled by default")
	}
}

func TestLoaderAPIKeyFromEnv(t *testing.T) {
	cfg, err := (Loader{Lookup: fakeEnv(map[string]string{
		EnvAPIKey: "  sk-test  ",
	})}).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "sk-test")
	}
}

func TestLoaderFromYAMLFile(t *testing.T) {
	path := writeFile(t, "proxy.yaml", `
listen_addr: 127.0.0.1:9000
grpc_listen_addr: 127.0.0.1:50051
upstream_timeout: 15s
log_level: debug
log_format: json
cors_allowed_origins:
  - http://localhost:5173
cache_dir: /tmp/tts-cache
cache_max_size_mb: 25
use_stub_synthesizer: true
`)

	cfg, err := (Loader{ConfigFile: path, Lookup: fakeEnv(nil)}).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.GRPCListenAddr != "127.0.0.1:50051" {
		t.Errorf("GRPCListenAddr = %q", cfg.GRPCListenAddr)
	}
	if cfg.UpstreamTimeout != 15*time.Second {
		t.Errorf("UpstreamTimeout = %s, want 15s", cfg.UpstreamTimeout)
	}
	if cfg.LogFormat != "json" || cfg.LogLevel != "debug" {
		t.Errorf("log = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:5173" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.CacheEnabled() || cfg.CacheMaxSizeMB != 25 {
		t.Errorf("cache = %q/%d", cfg.CacheDir, cfg.CacheMaxSizeMB)
	}
	if !cfg.UseStubSynthesizer {
		t.Error("UseStubSynthesizer = false, want true")
	}
}

func TestLoaderEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "proxy.yaml", "listen_addr: 127.0.0.1:9000\nlog_level: debug\n")

	cfg, err := (Loader{ConfigFile: path, Lookup: fakeEnv(map[string]string{
		EnvListenAddr:     "127.0.0.1:9100",
		EnvTimeout:        "5s",
		EnvCacheMaxSizeMB: "12",
		EnvUseStub:        "true",
	})}).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9100" {
		t.Errorf("ListenAddr = %q, want env override", cfg.ListenAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want file value", cfg.LogLevel)
	}
	if cfg.UpstreamTimeout != 5*time.Second {
		t.Errorf("UpstreamTimeout = %s, want 5s", cfg.UpstreamTimeout)
	}
	if cfg.CacheMaxSizeMB != 12 {
		t.Errorf("CacheMaxSizeMB = %d, want 12", cfg.CacheMaxSizeMB)
	}
	if !cfg.UseStubSynthesizer {
		t.Error("UseStubSynthesizer = false, want true")
	}
}

func TestLoaderResolvesAPIKeyReference(t *testing.T) {
	path := writeFile(t, "proxy.yaml", "api_key: ${MY_ELEVEN_KEY}\n")

	cfg, err := (Loader{ConfigFile: path, Lookup: fakeEnv(map[string]string{
		"MY_ELEVEN_KEY": "sk-from-ref",
	})}).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIKey != "sk-from-ref" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "sk-from-ref")
	}

	cfg, err = (Loader{ConfigFile: path, Lookup: fakeEnv(nil)}).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIKey != "" {
		t.Errorf("unresolved reference should yield empty key, got %q", cfg.APIKey)
	}
}

func TestLoaderInvalidEnvValues(t *testing.T) {
	tests := map[string]string{
		EnvTimeout:        "soon",
		EnvCacheMaxSizeMB: "lots",
		EnvUseStub:        "maybe",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := (Loader{Lookup: fakeEnv(map[string]string{key: val})}).Load()
			if err == nil {
				t.Fatalf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := (Loader{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"), Lookup: fakeEnv(nil)}).Load()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
