// Command tts-proxy serves ElevenLabs speech synthesis over HTTP without
// exposing the API key to callers.
//
// Usage:
//
//	tts-proxy [flags]
//	tts-proxy -config /path/to/tts-proxy.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	napv1 "github.com/nupi-ai/nupi/api/nap/v1"

	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/adapterinfo"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/cache"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/config"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/elevenlabs"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/httpapi"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/napserver"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/proxy"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// upstreamClient is what main needs from either synthesizer implementation.
type upstreamClient interface {
	elevenlabs.Synthesizer
	Close()
}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (yaml, toml or json)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", adapterinfo.Info.BinaryName, adapterinfo.Version())
		return
	}

	if err := run(*configFile); err != nil {
		slog.Error("proxy terminated with error", "error", err)
		os.Exit(1)
	}
}

// run owns every resource of the process so its deferred cleanup always
// happens before main exits.
func run(configFile string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Loader{ConfigFile: configFile}.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("starting proxy",
		"service", adapterinfo.Info.Name,
		"service_slug", adapterinfo.Info.Slug,
		"version", adapterinfo.Version(),
		"listen_addr", cfg.ListenAddr,
		"grpc_listen_addr", cfg.GRPCListenAddr,
		"base_url", cfg.BaseURL,
		"upstream_timeout", cfg.UpstreamTimeout,
		"api_key_configured", cfg.APIKeyConfigured(),
	)
	if err := adapterinfo.LoadError(); err != nil {
		logger.Warn("plugin.yaml unavailable, using built-in service identity", "error", err)
	}
	if !cfg.APIKeyConfigured() {
		logger.Warn("ELEVENLABS_API_KEY not set, synthesis requests will be rejected")
	}

	client := newUpstream(cfg, logger)
	defer client.Close()

	var audioCache *cache.Cache
	if cfg.CacheEnabled() {
		audioCache, err = cache.New(cfg.CacheDir, int64(cfg.CacheMaxSizeMB)*1024*1024, logger)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without", "error", err)
			audioCache = nil
		} else {
			logger.Info("audio cache initialized", "dir", cfg.CacheDir, "max_size_mb", cfg.CacheMaxSizeMB)
		}
	}

	recorder := telemetry.NewRecorder(logger)
	svc := proxy.New(cfg, logger, client, recorder, audioCache)

	serverErr := make(chan error, 2)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewRouter(cfg, svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpLis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind http listener: %w", err)
	}
	go func() {
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http: %w", err)
		}
	}()
	logger.Info("http server listening", "addr", httpLis.Addr().String())

	var grpcServer *grpc.Server
	var healthServer *health.Server
	if cfg.GRPCListenAddr != "" {
		grpcServer, healthServer, err = startGRPC(cfg.GRPCListenAddr, svc, logger, serverErr)
		if err != nil {
			_ = httpServer.Close()
			return fmt.Errorf("start gRPC server: %w", err)
		}
	}

	logger.Info("proxy ready to serve requests")

	var runErr error
	select {
	case runErr = <-serverErr:
		logger.Error("server terminated with error", "error", runErr)
	case <-ctx.Done():
		logger.Info("shutdown requested, stopping servers")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown did not complete", "error", err)
	}
	if grpcServer != nil {
		stopGRPC(shutdownCtx, grpcServer, healthServer, logger)
	}

	logger.Info("proxy stopped", stoppedAttrs(recorder.Snapshot(), audioCache)...)
	return runErr
}

// stoppedAttrs summarizes the process lifetime for the final log line.
func stoppedAttrs(counters telemetry.Counters, audioCache *cache.Cache) []any {
	attrs := []any{
		"succeeded", counters.Succeeded,
		"failed", counters.Failed,
		"truncated", counters.Truncated,
		"bytes", counters.Bytes,
	}
	if audioCache != nil {
		stats := audioCache.Stats()
		attrs = append(attrs, slog.Group("cache",
			"entries", stats.Entries,
			"bytes", stats.Bytes,
			"hits", stats.Hits,
			"misses", stats.Misses,
		))
	}
	return attrs
}

func newUpstream(cfg config.Config, logger *slog.Logger) upstreamClient {
	if cfg.UseStubSynthesizer {
		logger.Info("using STUB synthesizer, responses are deterministic silence and NOT from ElevenLabs")
		return elevenlabs.NewStubSynthesizer(logger)
	}
	logger.Info("ElevenLabs client initialized")
	return elevenlabs.NewClient(cfg.APIKey,
		elevenlabs.WithBaseURL(cfg.BaseURL),
		elevenlabs.WithTimeout(cfg.UpstreamTimeout),
	)
}

// startGRPC serves the NAP TextToSpeechService and gRPC health on addr.
func startGRPC(addr string, svc *proxy.Service, logger *slog.Logger, serverErr chan<- error) (*grpc.Server, *health.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("bind %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthgrpc.RegisterHealthServer(grpcServer, healthServer)
	napv1.RegisterTextToSpeechServiceServer(grpcServer, napserver.New(svc, logger))

	serviceName := napv1.TextToSpeechService_ServiceDesc.ServiceName
	status := healthgrpc.HealthCheckResponse_SERVING
	if !svc.Configured() {
		status = healthgrpc.HealthCheckResponse_NOT_SERVING
	}
	healthServer.SetServingStatus("", status)
	healthServer.SetServingStatus(serviceName, status)

	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serverErr <- fmt.Errorf("grpc: %w", err)
		}
	}()
	logger.Info("gRPC server listening", "addr", lis.Addr().String(), "health", status.String())
	return grpcServer, healthServer, nil
}

func stopGRPC(ctx context.Context, grpcServer *grpc.Server, healthServer *health.Server, logger *slog.Logger) {
	healthServer.Shutdown()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		logger.Warn("graceful stop timed out, forcing stop")
		grpcServer.Stop()
	}
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
