// Package proxy forwards synthesis requests to ElevenLabs on behalf of
// callers that must never see the API key. It validates requests, resolves
// voice and model defaults, and returns either a complete audio payload or
// a lazily produced sequence of framed chunks.
package proxy

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/cache"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/config"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/elevenlabs"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/frame"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/telemetry"
)

// ChunkSize is the read buffer used against the upstream body. Chunks are
// forwarded as soon as a read returns, so emitted chunks may be smaller.
const ChunkSize = 4096

// Service is the synthesis proxy. It is safe for concurrent use; the only
// shared state is the read-only configuration, the upstream client and the
// optional cache.
type Service struct {
	client     elevenlabs.Synthesizer
	configured bool
	log        *slog.Logger
	metrics    *telemetry.Recorder
	cache      *cache.Cache // nil when caching is disabled
}

// New returns a Service using client for every upstream call.
func New(cfg config.Config, logger *slog.Logger, client elevenlabs.Synthesizer, metrics *telemetry.Recorder, audioCache *cache.Cache) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		panic("proxy: elevenlabs client must not be nil")
	}
	if metrics == nil {
		metrics = telemetry.NewRecorder(logger)
	}
	return &Service{
		client:     client,
		configured: cfg.APIKeyConfigured(),
		log:        logger.With("component", "proxy"),
		metrics:    metrics,
		cache:      audioCache,
	}
}

// Configured reports whether an API key is present.
func (s *Service) Configured() bool {
	return s.configured
}

// Ready returns the Unconfigured error when no API key is present, letting
// surfaces reject a request before reading its body.
func (s *Service) Ready() error {
	if !s.configured {
		return unconfigured()
	}
	return nil
}

// call is a validated request bound to concrete ElevenLabs identifiers.
type call struct {
	id       string
	mode     telemetry.Mode
	voiceID  string
	body     elevenlabs.SynthesizeRequest
	cacheKey string
	log      *slog.Logger
}

// prepare runs every precondition that must hold before network activity:
// credential first, then input validation.
func (s *Service) prepare(ctx context.Context, req Request, mode telemetry.Mode) (*call, error) {
	id := requestID(ctx)
	mode = modeFrom(ctx, mode)

	if !s.configured {
		s.metrics.Failed(mode, id, string(KindUnconfigured), unconfigured().Status)
		return nil, unconfigured()
	}

	set := req.settings()
	if err := set.validate(); err != nil {
		s.metrics.Failed(mode, id, string(err.Kind), err.Status)
		return nil, err
	}

	modelID, voiceID := req.Resolve()
	stability := set.stability
	similarity := set.similarityBoost

	c := &call{
		id:      id,
		mode:    mode,
		voiceID: voiceID,
		body: elevenlabs.SynthesizeRequest{
			Text:    set.text,
			ModelID: modelID,
			VoiceSettings: &elevenlabs.VoiceSettings{
				Stability:       &stability,
				SimilarityBoost: &similarity,
			},
		},
		log: s.log.With(
			"request_id", id,
			"mode", mode,
			"voice_id", voiceID,
			"model", modelID,
			"language", set.language,
			"text_length", len(set.text),
		),
	}
	if s.cache != nil {
		c.cacheKey = cache.Key(cache.Params{
			Text:            set.text,
			ModelID:         modelID,
			VoiceID:         voiceID,
			Language:        set.language,
			Stability:       stability,
			SimilarityBoost: similarity,
		})
	}
	return c, nil
}

// Synthesize returns the complete MP3 payload for req.
func (s *Service) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	c, err := s.prepare(ctx, req, telemetry.ModeBuffered)
	if err != nil {
		return nil, err
	}
	c.log.Info("synthesis request received")
	start := time.Now()

	if data, ok := s.cacheGet(c); ok {
		s.metrics.Succeeded(c.mode, c.id, len(data), time.Since(start), true)
		return data, nil
	}

	audio, err := s.client.Synthesize(ctx, c.voiceID, c.body)
	if err != nil {
		perr := classify(err)
		c.log.Error("elevenlabs synthesis failed", "error", err, "status", perr.Status)
		s.metrics.Failed(c.mode, c.id, string(perr.Kind), perr.Status)
		return nil, perr
	}

	s.cachePut(c, audio)
	s.metrics.Succeeded(c.mode, c.id, len(audio), time.Since(start), false)
	return audio, nil
}

// SynthesizeStream validates req and returns a lazy sequence of framed
// units. The upstream request starts when iteration starts and is closed
// when iteration stops or ctx is cancelled. A clean upstream end yields a
// final end-of-stream unit; an upstream failure is logged and the sequence
// ends without it. The sequence can be ranged over once.
func (s *Service) SynthesizeStream(ctx context.Context, req Request) (iter.Seq[[]byte], error) {
	c, err := s.prepare(ctx, req, telemetry.ModeStream)
	if err != nil {
		return nil, err
	}
	c.log.Info("stream request received")

	chunks := s.chunks(ctx, c)
	return func(yield func([]byte) bool) {
		for chunk, err := range chunks {
			if err != nil {
				return
			}
			if !yield(frame.Encode(chunk)) {
				return
			}
		}
		yield(frame.End())
	}, nil
}

// Chunks is SynthesizeStream without framing: it yields raw audio chunks and,
// on failure, a final (nil, *Error) pair. Surfaces that can report errors
// in-band use it.
func (s *Service) Chunks(ctx context.Context, req Request) (iter.Seq2[[]byte, error], error) {
	c, err := s.prepare(ctx, req, telemetry.ModeStream)
	if err != nil {
		return nil, err
	}
	c.log.Info("stream request received")
	return s.chunks(ctx, c), nil
}

func (s *Service) chunks(ctx context.Context, c *call) iter.Seq2[[]byte, error] {
	var used atomic.Bool
	return func(yield func([]byte, error) bool) {
		if used.Swap(true) {
			c.log.Warn("stream iterated more than once")
			return
		}
		start := time.Now()

		if data, ok := s.cacheGet(c); ok {
			for off := 0; off < len(data); off += ChunkSize {
				if err := ctx.Err(); err != nil {
					yield(nil, internal(err))
					return
				}
				if !yield(data[off:min(off+ChunkSize, len(data))], nil) {
					return
				}
			}
			s.metrics.Succeeded(c.mode, c.id, len(data), time.Since(start), true)
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		body, err := s.client.SynthesizeStream(ctx, c.voiceID, c.body)
		if err != nil {
			perr := classify(err)
			c.log.Error("elevenlabs streaming failed", "error", err, "status", perr.Status)
			s.metrics.Failed(c.mode, c.id, string(perr.Kind), perr.Status)
			yield(nil, perr)
			return
		}
		defer body.Close()

		var accumulated []byte
		total := 0
		buf := make([]byte, ChunkSize)
		for {
			n, readErr := body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				total += n
				if s.cache != nil {
					accumulated = append(accumulated, chunk...)
				}
				if !yield(chunk, nil) {
					c.log.Info("stream consumer stopped", "bytes", total)
					return
				}
			}
			if errors.Is(readErr, io.EOF) {
				break
			}
			if readErr != nil {
				if ctx.Err() != nil {
					c.log.Info("stream cancelled", "bytes", total, "reason", context.Cause(ctx))
				}
				s.metrics.Truncated(c.mode, c.id, total, readErr)
				yield(nil, classify(readErr))
				return
			}
		}

		s.cachePut(c, accumulated)
		s.metrics.Succeeded(c.mode, c.id, total, time.Since(start), false)
	}
}

func (s *Service) cacheGet(c *call) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok := s.cache.Get(c.cacheKey)
	if ok {
		c.log.Info("cache hit", "key", c.cacheKey)
	} else {
		c.log.Debug("cache miss", "key", c.cacheKey)
	}
	return data, ok
}

func (s *Service) cachePut(c *call, data []byte) {
	if s.cache == nil || len(data) == 0 {
		return
	}
	if err := s.cache.Put(c.cacheKey, data); err != nil {
		c.log.Warn("failed to store in cache", "error", err)
	}
}

// classify maps an upstream client error onto the proxy taxonomy.
func classify(err error) *Error {
	var apiErr *elevenlabs.APIError
	if errors.As(err, &apiErr) {
		return upstream(apiErr.StatusCode, apiErr.Body, err)
	}
	return internal(err)
}
