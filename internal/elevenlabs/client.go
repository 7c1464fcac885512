package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// BaseURL is the ElevenLabs API base URL.
	BaseURL = "https://api.elevenlabs.io/v1"

	// DefaultTimeout bounds each step of an upstream call: connecting, waiting
	// for response headers, and every individual body read. A body that keeps
	// delivering bytes is never cut off.
	DefaultTimeout = 60 * time.Second

	// maxErrorBody caps how much of an upstream error body is kept.
	maxErrorBody = 64 << 10
)

var (
	ErrVoiceRequired = errors.New("elevenlabs: voice_id is required")
	ErrTextRequired  = errors.New("elevenlabs: text is required")

	// ErrReadTimeout is returned when the upstream body stalls for longer
	// than the client timeout.
	ErrReadTimeout = errors.New("elevenlabs: upstream read timed out")
)

// APIError is returned when ElevenLabs answers with a non-success status.
// Body holds the upstream error payload verbatim.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs: API error (status %d): %s", e.StatusCode, e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithTimeout sets the per-step bound. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. Body reads are still
// bounded by the client timeout; connection and header timeouts are then up
// to hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client wraps HTTP calls to the ElevenLabs API. A single Client is shared by
// all in-flight requests; connection pooling is left to http.Client.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	apiKey     string
	baseURL    string
}

// NewClient constructs an ElevenLabs API client with the provided API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		timeout: DefaultTimeout,
		apiKey:  apiKey,
		baseURL: BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: newTransport(c.timeout)}
	}
	return c
}

// newTransport bounds dialing, the TLS handshake and the wait for response
// headers. Body reads are bounded one at a time by idleBody.
func newTransport(timeout time.Duration) *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if timeout <= 0 {
		return tr
	}
	tr.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	tr.TLSHandshakeTimeout = timeout
	tr.ResponseHeaderTimeout = timeout
	return tr
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// VoiceSettings contains optional voice configuration parameters.
type VoiceSettings struct {
	Stability       *float64 `json:"stability,omitempty"`
	SimilarityBoost *float64 `json:"similarity_boost,omitempty"`
}

// SynthesizeRequest describes a TTS synthesis request.
type SynthesizeRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id,omitempty"`
	VoiceSettings *VoiceSettings `json:"voice_settings,omitempty"`
}

// Synthesize calls the non-streaming endpoint and returns the complete audio
// payload (MP3 by default).
func (c *Client) Synthesize(ctx context.Context, voiceID string, req SynthesizeRequest) ([]byte, error) {
	resp, err := c.post(ctx, voiceID, "", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	return audio, nil
}

// SynthesizeStream calls the ElevenLabs streaming TTS endpoint and returns an io.ReadCloser
// streaming the audio data. The caller must close the reader when done.
// Cancelling ctx aborts the upstream request and its body.
func (c *Client) SynthesizeStream(ctx context.Context, voiceID string, req SynthesizeRequest) (io.ReadCloser, error) {
	resp, err := c.post(ctx, voiceID, "/stream", req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, voiceID, suffix string, req SynthesizeRequest) (*http.Response, error) {
	if voiceID == "" {
		return nil, ErrVoiceRequired
	}
	if req.Text == "" {
		return nil, ErrTextRequired
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s%s", c.baseURL, url.PathEscape(voiceID), suffix)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("elevenlabs: http request: %w", err)
	}
	resp.Body = newIdleBody(ctx, cancel, resp.Body, c.timeout)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	return resp, nil
}

// idleBody aborts the request when a single Read blocks for longer than
// timeout. Time spent between reads, while the consumer is busy, does not
// count.
type idleBody struct {
	body    io.ReadCloser
	ctx     context.Context
	cancel  context.CancelCauseFunc
	timeout time.Duration
	timer   *time.Timer
}

func newIdleBody(ctx context.Context, cancel context.CancelCauseFunc, body io.ReadCloser, timeout time.Duration) *idleBody {
	b := &idleBody{body: body, ctx: ctx, cancel: cancel, timeout: timeout}
	if timeout > 0 {
		b.timer = time.AfterFunc(timeout, func() { cancel(ErrReadTimeout) })
		b.timer.Stop()
	}
	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	if b.timer != nil {
		b.timer.Reset(b.timeout)
	}
	n, err := b.body.Read(p)
	if b.timer != nil {
		b.timer.Stop()
	}
	if err != nil && !errors.Is(err, io.EOF) && errors.Is(context.Cause(b.ctx), ErrReadTimeout) {
		return n, fmt.Errorf("%w after %s: %w", ErrReadTimeout, b.timeout, err)
	}
	return n, err
}

func (b *idleBody) Close() error {
	if b.timer != nil {
		b.timer.Stop()
	}
	err := b.body.Close()
	b.cancel(nil)
	return err
}
