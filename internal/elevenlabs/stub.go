package elevenlabs

import (
	"bytes"
	"context"
	"io"
	"log/slog"
)

// stubBytesPerChar sizes the stub payload relative to the input text.
const stubBytesPerChar = 320

// StubSynthesizer implements the Synthesizer interface with deterministic
// silent output. It is intended for CI and testing environments where the
// real ElevenLabs API is unavailable.
type StubSynthesizer struct {
	log *slog.Logger
}

// NewStubSynthesizer returns a stub that generates zeroed audio proportional
// to the input text length.
func NewStubSynthesizer(logger *slog.Logger) *StubSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubSynthesizer{log: logger.With("component", "stub_synthesizer")}
}

// Synthesize returns len(text) * 320 zero bytes.
func (s *StubSynthesizer) Synthesize(_ context.Context, voiceID string, req SynthesizeRequest) ([]byte, error) {
	return s.generate(voiceID, req)
}

// SynthesizeStream returns the same payload as Synthesize behind a reader.
func (s *StubSynthesizer) SynthesizeStream(_ context.Context, voiceID string, req SynthesizeRequest) (io.ReadCloser, error) {
	data, err := s.generate(voiceID, req)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *StubSynthesizer) generate(voiceID string, req SynthesizeRequest) ([]byte, error) {
	if voiceID == "" {
		return nil, ErrVoiceRequired
	}
	if req.Text == "" {
		return nil, ErrTextRequired
	}

	n := len(req.Text) * stubBytesPerChar
	s.log.Info("stub synthesis",
		"text_length", len(req.Text),
		"voice_id", voiceID,
		"model", req.ModelID,
		"bytes", n,
	)
	return make([]byte, n), nil
}

// Close is a no-op; the stub holds no connections.
func (s *StubSynthesizer) Close() {}
