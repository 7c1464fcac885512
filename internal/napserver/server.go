// Package napserver serves the proxy to nupi hosts over the NAP
// TextToSpeechService gRPC API.
package napserver

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	napv1 "github.com/nupi-ai/nupi/api/nap/v1"

	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/adapterinfo"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/proxy"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/telemetry"
)

// Request metadata keys understood by StreamSynthesis.
const (
	MetaLanguage        = "nupi.lang.iso1"
	MetaVoiceID         = "voice_id"
	MetaModel           = "model"
	MetaStability       = "stability"
	MetaSimilarityBoost = "similarity_boost"
)

// Server implements napv1.TextToSpeechServiceServer on top of a proxy.Service.
type Server struct {
	napv1.UnimplementedTextToSpeechServiceServer

	svc *proxy.Service
	log *slog.Logger
}

// New returns a Server streaming through svc.
func New(svc *proxy.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if svc == nil {
		panic("napserver: proxy service must not be nil")
	}
	return &Server{
		svc: svc,
		log: logger.With("component", "nap"),
	}
}

// StreamSynthesis synthesizes req.Text and streams the raw MP3 chunks back.
func (s *Server) StreamSynthesis(req *napv1.StreamSynthesisRequest, stream napv1.TextToSpeechService_StreamSynthesisServer) error {
	if req == nil {
		return fmt.Errorf("napserver: request is nil")
	}

	logEntry := s.log.With(
		"session_id", req.GetSessionId(),
		"stream_id", req.GetStreamId(),
		"text_length", len(req.GetText()),
	)

	preq, err := requestFromNAP(req)
	if err != nil {
		logEntry.Warn("invalid synthesis metadata", "error", err)
		return s.sendError(stream, err.Error())
	}

	ctx := proxy.WithMode(stream.Context(), telemetry.ModeNAP)
	chunks, err := s.svc.Chunks(ctx, preq)
	if err != nil {
		logEntry.Warn("synthesis request rejected", "error", err)
		return s.sendError(stream, detail(err))
	}

	logEntry.Info("synthesis request received", "language", preq.Language)
	if err := s.sendStatus(stream, napv1.SynthesisStatus_SYNTHESIS_STATUS_STARTED, nil); err != nil {
		logEntry.Error("failed to send started status", "error", err)
		return err
	}

	chunkMeta := adapterinfo.SynthesisMetadata(preq.Resolve())

	start := time.Now()
	var (
		sequence   uint64
		totalBytes int
		pending    []byte
	)
	// send emits the held chunk; only once the next item is known can the
	// last flag be set.
	send := func(last bool) error {
		sequence++
		totalBytes += len(pending)
		return stream.Send(&napv1.SynthesisResponse{
			Status: napv1.SynthesisStatus_SYNTHESIS_STATUS_PLAYING,
			Chunk: &napv1.AudioChunk{
				Data:     pending,
				Sequence: sequence,
				First:    sequence == 1,
				Last:     last,
				Metadata: chunkMeta,
			},
		})
	}

	for chunk, err := range chunks {
		if err != nil {
			if ctxErr := stream.Context().Err(); ctxErr != nil {
				return s.interrupted(stream, logEntry, ctxErr)
			}
			logEntry.Error("synthesis failed", "error", err, "chunks", sequence)
			return s.sendError(stream, detail(err))
		}

		if pending == nil {
			if err := s.sendStatus(stream, napv1.SynthesisStatus_SYNTHESIS_STATUS_PLAYING, nil); err != nil {
				logEntry.Error("failed to send playing status", "error", err)
				return err
			}
		} else if err := send(false); err != nil {
			logEntry.Error("failed to send audio chunk", "error", err, "sequence", sequence)
			return err
		}
		pending = chunk
	}

	if ctxErr := stream.Context().Err(); ctxErr != nil {
		return s.interrupted(stream, logEntry, ctxErr)
	}
	if pending != nil {
		if err := send(true); err != nil {
			logEntry.Error("failed to send audio chunk", "error", err, "sequence", sequence)
			return err
		}
	}

	duration := time.Since(start)
	logEntry.Info("synthesis completed",
		"total_bytes", totalBytes,
		"chunks", sequence,
		"duration_sec", duration.Seconds(),
	)

	return s.sendStatus(stream, napv1.SynthesisStatus_SYNTHESIS_STATUS_FINISHED, map[string]string{
		"total_bytes":  strconv.Itoa(totalBytes),
		"total_chunks": strconv.FormatUint(sequence, 10),
		"duration_sec": fmt.Sprintf("%.2f", duration.Seconds()),
		"text_length":  strconv.Itoa(len(preq.Text)),
	})
}

// requestFromNAP maps the NAP request and its metadata onto a proxy.Request.
func requestFromNAP(req *napv1.StreamSynthesisRequest) (proxy.Request, error) {
	md := req.GetMetadata()
	out := proxy.Request{
		Text:     req.GetText(),
		Language: strings.TrimSpace(md[MetaLanguage]),
		Voice:    strings.TrimSpace(md[MetaVoiceID]),
	}
	if model, ok := md[MetaModel]; ok {
		model = strings.TrimSpace(model)
		out.Model = &model
	}

	var err error
	if out.Stability, err = parseFloatMeta(md, MetaStability); err != nil {
		return out, err
	}
	if out.SimilarityBoost, err = parseFloatMeta(md, MetaSimilarityBoost); err != nil {
		return out, err
	}
	return out, nil
}

func parseFloatMeta(md map[string]string, key string) (*float64, error) {
	raw := strings.TrimSpace(md[key])
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}

func detail(err error) string {
	var perr *proxy.Error
	if errors.As(err, &perr) {
		return perr.Detail
	}
	return "synthesis failed"
}

func (s *Server) interrupted(stream napv1.TextToSpeechService_StreamSynthesisServer, logEntry *slog.Logger, cause error) error {
	logEntry.Info("synthesis interrupted", "reason", cause)
	// The client is usually gone by now, so a failed send is expected.
	_ = s.sendStatus(stream, napv1.SynthesisStatus_SYNTHESIS_STATUS_INTERRUPTED, map[string]string{
		"reason": cause.Error(),
	})
	return cause
}

func (s *Server) sendStatus(stream napv1.TextToSpeechService_StreamSynthesisServer, status napv1.SynthesisStatus, metadata map[string]string) error {
	return stream.Send(&napv1.SynthesisResponse{
		Status:   status,
		Metadata: metadata,
	})
}

func (s *Server) sendError(stream napv1.TextToSpeechService_StreamSynthesisServer, message string) error {
	resp := &napv1.SynthesisResponse{
		Status:       napv1.SynthesisStatus_SYNTHESIS_STATUS_ERROR,
		ErrorMessage: message,
	}
	if err := stream.Send(resp); err != nil {
		return err
	}
	return fmt.Errorf("synthesis error: %s", message)
}
