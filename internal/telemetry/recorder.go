// Package telemetry records synthesis outcomes. Events are emitted as
// structured slog records and tallied in process-local counters.
package telemetry

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Mode distinguishes the synthesis paths.
type Mode string

const (
	ModeBuffered  Mode = "buffered"
	ModeStream    Mode = "stream"
	ModeWebSocket Mode = "websocket"
	ModeNAP       Mode = "nap"
)

// Recorder centralises telemetry for the proxy. It is safe for concurrent use.
type Recorder struct {
	logger *slog.Logger

	succeeded atomic.Int64
	failed    atomic.Int64
	truncated atomic.Int64
	bytesOut  atomic.Int64
}

// Counters is a snapshot of the recorder totals.
type Counters struct {
	Succeeded int64
	Failed    int64
	Truncated int64
	Bytes     int64
}

// NewRecorder constructs a telemetry recorder using the provided slog.Logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger.With("component", "telemetry")}
}

// Succeeded records a completed synthesis.
func (r *Recorder) Succeeded(mode Mode, requestID string, bytes int, elapsed time.Duration, cached bool) {
	r.succeeded.Add(1)
	r.bytesOut.Add(int64(bytes))
	r.logger.Info("synthesis completed",
		"mode", mode,
		"request_id", requestID,
		"bytes", bytes,
		"duration_sec", elapsed.Seconds(),
		"cached", cached,
	)
}

// Failed records a synthesis rejected or failed before any audio was sent.
func (r *Recorder) Failed(mode Mode, requestID, kind string, status int) {
	r.failed.Add(1)
	r.logger.Warn("synthesis failed",
		"mode", mode,
		"request_id", requestID,
		"kind", kind,
		"status", status,
	)
}

// Truncated records a stream that ended without its end-of-stream marker.
func (r *Recorder) Truncated(mode Mode, requestID string, bytes int, err error) {
	r.truncated.Add(1)
	r.bytesOut.Add(int64(bytes))
	r.logger.Error("synthesis stream truncated",
		"mode", mode,
		"request_id", requestID,
		"bytes", bytes,
		"error", err,
	)
}

// Snapshot returns the current totals.
func (r *Recorder) Snapshot() Counters {
	return Counters{
		Succeeded: r.succeeded.Load(),
		Failed:    r.failed.Load(),
		Truncated: r.truncated.Load(),
		Bytes:     r.bytesOut.Load(),
	}
}
