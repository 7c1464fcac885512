package elevenlabs

import (
	"context"
	"io"
)

// Synthesizer abstracts the ElevenLabs TTS API so that the proxy can be
// tested with a mock implementation.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID string, req SynthesizeRequest) ([]byte, error)
	SynthesizeStream(ctx context.Context, voiceID string, req SynthesizeRequest) (io.ReadCloser, error)
}
