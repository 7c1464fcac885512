package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/adapterinfo"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/catalog"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/proxy"
)

// HealthResponse reports readiness without revealing the credential.
type HealthResponse struct {
	Status           string `json:"status" example:"ok"`
	Model            string `json:"model" example:"elevenlabs-proxy"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}

// LanguageInfo is one supported language.
type LanguageInfo struct {
	Code string `json:"code" example:"it"`
	Name string `json:"name" example:"Italian"`
}

// VoiceInfo is one voice. The voice id travels in File to match the other
// synthesis backends the frontend talks to.
type VoiceInfo struct {
	Name string `json:"name" example:"Rachel (F)"`
	File string `json:"file" example:"21m00Tcm4TlvDq8ikWAM"`
}

// ErrorResponse is the body of every non-audio failure.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// health godoc
//
// @Summary  Service health
// @Tags     meta
// @Produce  json
// @Success  200  {object}  HealthResponse
// @Router   /health [get]
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "ok",
		Model:            adapterinfo.Info.Slug,
		APIKeyConfigured: h.svc.Configured(),
	})
}

// languages godoc
//
// @Summary  Supported languages
// @Tags     catalog
// @Produce  json
// @Success  200  {array}  LanguageInfo
// @Router   /languages [get]
func (h *Handler) languages(w http.ResponseWriter, r *http.Request) {
	langs := catalog.Languages()
	out := make([]LanguageInfo, 0, len(langs))
	for _, l := range langs {
		out = append(out, LanguageInfo{Code: l.Code, Name: l.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

// voices godoc
//
// @Summary      Available voices
// @Description  Unknown or missing language returns every voice.
// @Tags         catalog
// @Produce      json
// @Param        language  query  string  false  "ISO 639-1 language code"
// @Success      200  {array}  VoiceInfo
// @Router       /voices [get]
func (h *Handler) voices(w http.ResponseWriter, r *http.Request) {
	voices := catalog.Voices(r.URL.Query().Get("language"))
	out := make([]VoiceInfo, 0, len(voices))
	for _, v := range voices {
		out = append(out, VoiceInfo{Name: v.Name, File: v.ID})
	}
	writeJSON(w, http.StatusOK, out)
}

// synthesize godoc
//
// @Summary      Synthesize speech
// @Description  Returns the complete MP3 produced by ElevenLabs. Upstream failures mirror the upstream status code.
// @Tags         synthesis
// @Accept       json
// @Produce      audio/mpeg
// @Param        request  body  proxy.Request  true  "Synthesis request"
// @Success      200  {file}    binary
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /synthesize [post]
func (h *Handler) synthesize(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	audio, err := h.svc.Synthesize(h.requestContext(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// synthesizeStream godoc
//
// @Summary      Stream synthesized speech
// @Description  Streams length-prefixed units: 4-byte little-endian length N followed by N bytes of MP3. N = 0 ends a complete stream; a stream cut short by an upstream failure has no end unit.
// @Tags         synthesis
// @Accept       json
// @Produce      octet-stream
// @Param        request  body  proxy.Request  true  "Synthesis request"
// @Success      200  {file}    binary
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /synthesize/stream [post]
func (h *Handler) synthesizeStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	units, err := h.svc.SynthesizeStream(h.requestContext(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	for unit := range units {
		if _, err := w.Write(unit); err != nil {
			h.log.Info("stream client gone", "error", err, "request_id", middleware.GetReqID(r.Context()))
			return
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			h.log.Info("stream flush failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
			return
		}
	}
}

// decodeRequest reads the JSON body. The credential check comes first so an
// unconfigured proxy answers 503 whatever the body holds.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (proxy.Request, bool) {
	var req proxy.Request
	if err := h.svc.Ready(); err != nil {
		h.writeError(w, err)
		return req, false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "invalid request body: " + err.Error()})
		return req, false
	}
	return req, true
}

func (h *Handler) requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if id := middleware.GetReqID(ctx); id != "" {
		ctx = proxy.WithRequestID(ctx, id)
	}
	return ctx
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var perr *proxy.Error
	if !errors.As(err, &perr) {
		h.log.Error("unexpected error", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "internal error"})
		return
	}
	writeJSON(w, perr.Status, ErrorResponse{Detail: perr.Detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
