package proxy

import (
	"context"

	"github.com/google/uuid"

	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/telemetry"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	modeKey
)

// WithRequestID tags ctx with the id used in logs for the synthesis.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithMode overrides the telemetry mode recorded for the synthesis.
func WithMode(ctx context.Context, mode telemetry.Mode) context.Context {
	return context.WithValue(ctx, modeKey, mode)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func modeFrom(ctx context.Context, fallback telemetry.Mode) telemetry.Mode {
	if m, ok := ctx.Value(modeKey).(telemetry.Mode); ok && m != "" {
		return m
	}
	return fallback
}
