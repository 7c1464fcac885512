// Package httpapi exposes the synthesis proxy over HTTP.
//
// @title       ElevenLabs TTS Proxy API
// @version     1.0.0
// @description Proxy for the ElevenLabs API (Turbo v2.5 + Multilingual). Keeps the API key server-side.
// @BasePath    /
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nupi-ai/tts-proxy-elevenlabs/docs"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/config"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/proxy"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20

// Handler serves the proxy endpoints.
type Handler struct {
	svc      *proxy.Service
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewRouter builds the HTTP surface around svc.
func NewRouter(cfg config.Config, svc *proxy.Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		svc: svc,
		log: logger.With("component", "http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096 + 4,
			// Origin policy is enforced by the CORS configuration for
			// browsers; the socket accepts the same callers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)
	r.Get("/languages", h.languages)
	r.Get("/voices", h.voices)
	r.Post("/synthesize", h.synthesize)
	r.Post("/synthesize/stream", h.synthesizeStream)
	r.Get("/synthesize/ws", h.synthesizeWS)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr,
			)
		})
	}
}
