package httpapi

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/catalog"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/config"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/elevenlabs"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/frame"
	"github.com/nupi-ai/tts-proxy-elevenlabs/internal/proxy"
)

// upstream is a fake ElevenLabs API that counts the requests it receives.
type upstream struct {
	srv   *httptest.Server
	calls atomic.Int32
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRouter wires the full stack against up. An empty apiKey leaves the
// proxy unconfigured.
func newRouter(t *testing.T, apiKey string, up *upstream, opts ...elevenlabs.Option) http.Handler {
	t.Helper()
	cfg := config.Config{APIKey: apiKey}
	require.NoError(t, cfg.Validate())

	opts = append([]elevenlabs.Option{elevenlabs.WithBaseURL(up.srv.URL)}, opts...)
	client := elevenlabs.NewClient(apiKey, opts...)
	t.Cleanup(client.Close)

	svc := proxy.New(cfg, quietLogger(), client, nil, nil)
	return NewRouter(cfg, svc, quietLogger())
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// decodeUnits splits a framed body into payloads. ended reports whether the
// zero-length end unit was seen; anything after it is an error.
func decodeUnits(t *testing.T, body []byte) (payloads [][]byte, ended bool) {
	t.Helper()
	for len(body) > 0 {
		require.GreaterOrEqual(t, len(body), frame.HeaderSize, "partial header")
		n := int(binary.LittleEndian.Uint32(body))
		body = body[frame.HeaderSize:]
		if n == 0 {
			require.Empty(t, body, "bytes after end unit")
			return payloads, true
		}
		require.GreaterOrEqual(t, len(body), n, "partial payload")
		payloads = append(payloads, body[:n])
		body = body[n:]
	}
	return payloads, false
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func audioUpstream(audio string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, audio)
	}
}

func TestHealth(t *testing.T) {
	up := newUpstream(t, audioUpstream("X"))

	for _, tc := range []struct {
		name   string
		apiKey string
	}{
		{"configured", "secret"},
		{"unconfigured", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, newRouter(t, tc.apiKey, up), "/health")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.NotContains(t, rec.Body.String(), "secret")

			var body HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "ok", body.Status)
			assert.Equal(t, "elevenlabs-proxy", body.Model)
			assert.Equal(t, tc.apiKey != "", body.APIKeyConfigured)
		})
	}
}

func TestLanguages(t *testing.T) {
	rec := get(t, newRouter(t, "k", newUpstream(t, audioUpstream("X"))), "/languages")
	require.Equal(t, http.StatusOK, rec.Code)

	var langs []LanguageInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &langs))
	require.Len(t, langs, 15)
	assert.Equal(t, LanguageInfo{Code: "it", Name: "Italian"}, langs[0])
	assert.Equal(t, "tr", langs[14].Code)
}

func TestVoices(t *testing.T) {
	h := newRouter(t, "k", newUpstream(t, audioUpstream("X")))
	all := len(catalog.Voices(""))

	for _, tc := range []struct {
		query string
		want  int
		first string
	}{
		{"?language=it", 2, catalog.VoiceGiovanni},
		{"?language=en", 10, catalog.VoiceRachel},
		{"?language=xx", all, catalog.VoiceRachel},
		{"", all, catalog.VoiceRachel},
	} {
		t.Run(tc.query, func(t *testing.T) {
			rec := get(t, h, "/voices"+tc.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var voices []VoiceInfo
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &voices))
			require.Len(t, voices, tc.want)
			assert.Equal(t, tc.first, voices[0].File)
		})
	}
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	var gotKey string
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		assert.Equal(t, "/text-to-speech/"+catalog.VoiceRachel, r.URL.Path)
		_, _ = io.WriteString(w, "X")
	})

	rec := postJSON(t, newRouter(t, "secret", up), "/synthesize", `{"text":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "X", rec.Body.String())
	assert.Equal(t, "secret", gotKey)
	assert.EqualValues(t, 1, up.calls.Load())
}

func TestSynthesizeMirrorsUpstreamStatus(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, "E")
	})

	rec := postJSON(t, newRouter(t, "k", up), "/synthesize", `{"text":"hi"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "ElevenLabs API error: E", decodeDetail(t, rec))
}

func TestSynthesizeRejectsBeforeUpstream(t *testing.T) {
	up := newUpstream(t, audioUpstream("X"))

	for _, tc := range []struct {
		name   string
		apiKey string
		path   string
		body   string
		status int
		detail string
	}{
		{"blank text", "k", "/synthesize", `{"text":"   "}`, http.StatusBadRequest, "Text cannot be empty"},
		{"blank text stream", "k", "/synthesize/stream", `{"text":""}`, http.StatusBadRequest, "Text cannot be empty"},
		{"stability range", "k", "/synthesize", `{"text":"hi","stability":1.5}`, http.StatusBadRequest, "stability must be between 0 and 1"},
		{"unconfigured", "", "/synthesize", `{"text":"hi"}`, http.StatusServiceUnavailable, "ElevenLabs API key not configured"},
		{"unconfigured stream", "", "/synthesize/stream", `{"text":"hi"}`, http.StatusServiceUnavailable, "ElevenLabs API key not configured"},
		{"unconfigured bad body", "", "/synthesize", `not json`, http.StatusServiceUnavailable, "ElevenLabs API key not configured"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, newRouter(t, tc.apiKey, up), tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.detail, decodeDetail(t, rec))
		})
	}
	assert.Zero(t, up.calls.Load())
}

func TestSynthesizeRejectsMalformedBody(t *testing.T) {
	up := newUpstream(t, audioUpstream("X"))
	rec := postJSON(t, newRouter(t, "k", up), "/synthesize", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeDetail(t, rec), "invalid request body")
	assert.Zero(t, up.calls.Load())
}

func TestStreamIsFramed(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/stream"))
		_, _ = io.WriteString(w, "AB")
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, "CDE")
	})

	rec := postJSON(t, newRouter(t, "k", up), "/synthesize/stream", `{"text":"hi","language":"it"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))

	// Chunk boundaries depend on the network; the payload and the terminal
	// unit do not.
	units, ended := decodeUnits(t, rec.Body.Bytes())
	assert.True(t, ended)
	assert.Equal(t, "ABCDE", string(bytes.Join(units, nil)))
}

func TestStreamOutlastingTimeoutStillEnds(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 6; i++ {
			_, _ = io.WriteString(w, "0123456789")
			w.(http.Flusher).Flush()
			time.Sleep(100 * time.Millisecond)
		}
	})
	h := newRouter(t, "k", up, elevenlabs.WithTimeout(300*time.Millisecond))

	rec := postJSON(t, h, "/synthesize/stream", `{"text":"long"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	units, ended := decodeUnits(t, rec.Body.Bytes())
	assert.True(t, ended, "stream lost its end unit")
	assert.Len(t, bytes.Join(units, nil), 60)
}

func TestStreamStalledUpstreamIsTruncated(t *testing.T) {
	release := make(chan struct{})
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "AB")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })
	h := newRouter(t, "k", up, elevenlabs.WithTimeout(100*time.Millisecond))

	rec := postJSON(t, h, "/synthesize/stream", `{"text":"stall"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	units, ended := decodeUnits(t, rec.Body.Bytes())
	assert.False(t, ended)
	assert.Equal(t, "AB", string(bytes.Join(units, nil)))
}

func TestStreamUpstreamErrorYieldsEmptyBody(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "bad key")
	})

	rec := postJSON(t, newRouter(t, "k", up), "/synthesize/stream", `{"text":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
	assert.EqualValues(t, 1, up.calls.Load())
}

func TestCORSPreflight(t *testing.T) {
	h := newRouter(t, "k", newUpstream(t, audioUpstream("X")))

	req := httptest.NewRequest(http.MethodOptions, "/synthesize", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestSwaggerDoc(t *testing.T) {
	rec := get(t, newRouter(t, "k", newUpstream(t, audioUpstream("X"))), "/swagger/doc.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/synthesize/stream")
}

func TestSynthesizeModelSelection(t *testing.T) {
	for _, tc := range []struct {
		body string
		want string
	}{
		{`{"text":"hi"}`, catalog.ModelTurbo},
		{`{"text":"hi","model":"turbo"}`, catalog.ModelTurbo},
		{`{"text":"hi","model":""}`, catalog.ModelMultilingual},
		{`{"text":"hi","model":"multilingual"}`, catalog.ModelMultilingual},
	} {
		t.Run(tc.body, func(t *testing.T) {
			modelIDs := make(chan string, 1)
			up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				var got elevenlabs.SynthesizeRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				modelIDs <- got.ModelID
				_, _ = io.WriteString(w, "X")
			})

			rec := postJSON(t, newRouter(t, "k", up), "/synthesize", tc.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.want, <-modelIDs)
		})
	}
}
