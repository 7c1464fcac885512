package proxy

import (
	"math"
	"strings"

	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/catalog"
)

const (
	DefaultLanguage        = "en"
	DefaultModel           = "turbo"
	DefaultStability       = 0.5
	DefaultSimilarityBoost = 0.75
)

// Request is a synthesis request as received from a caller. Zero values
// select the defaults above, except Model: only an absent model defaults to
// turbo, an explicit empty one selects multilingual like any other name.
type Request struct {
	Text            string   `json:"text"`
	Language        string   `json:"language,omitempty"`
	Voice           string   `json:"voice,omitempty"`
	Model           *string  `json:"model,omitempty"`
	Stability       *float64 `json:"stability,omitempty"`
	SimilarityBoost *float64 `json:"similarity_boost,omitempty"`
}

// settings is a Request with defaults applied.
type settings struct {
	text            string
	language        string
	voice           string
	model           string
	stability       float64
	similarityBoost float64
}

func (r Request) settings() settings {
	s := settings{
		text:            r.Text,
		language:        r.Language,
		voice:           r.Voice,
		model:           DefaultModel,
		stability:       DefaultStability,
		similarityBoost: DefaultSimilarityBoost,
	}
	if s.language == "" {
		s.language = DefaultLanguage
	}
	if r.Model != nil {
		s.model = *r.Model
	}
	if r.Stability != nil {
		s.stability = *r.Stability
	}
	if r.SimilarityBoost != nil {
		s.similarityBoost = *r.SimilarityBoost
	}
	return s
}

// Resolve returns the ElevenLabs model and voice ids the request maps to.
func (r Request) Resolve() (modelID, voiceID string) {
	s := r.settings()
	return catalog.ResolveModel(s.model), catalog.ResolveVoice(s.voice, s.language)
}

func (s settings) validate() *Error {
	if strings.TrimSpace(s.text) == "" {
		return invalidInput("Text cannot be empty")
	}
	if !unitInterval(s.stability) {
		return invalidInput("stability must be between 0 and 1")
	}
	if !unitInterval(s.similarityBoost) {
		return invalidInput("similarity_boost must be between 0 and 1")
	}
	return nil
}

func unitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
