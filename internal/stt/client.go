// Package stt talks to the external speech-to-text server.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

var (
	// ErrUnavailable is returned when the server cannot be reached or answers 5xx
	ErrUnavailable = errors.New("speech-to-text server unavailable")
	// ErrRejected is returned when the server refuses the clip
	ErrRejected = errors.New("audio rejected by speech-to-text server")
)

// MaxClipSize bounds an uploaded clip
const MaxClipSize = 25 << 20

// Result is a transcription of one clip
type Result struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Client is an HTTP client for a Vosk-style STT server
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxClip    int64
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// New creates a client for the server at baseURL
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxClip:    MaxClipSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the service type
func (c *Client) Type() string {
	return "stt"
}

// HealthCheck probes GET /health
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Transcribe uploads one clip as the multipart field "audio"
func (c *Client) Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (*Result, error) {
	if filename == "" {
		filename = "recording.webm"
	}
	if contentType == "" {
		contentType = "audio/webm"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	n, err := io.Copy(part, io.LimitReader(audio, c.maxClip+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if n > c.maxClip {
		return nil, fmt.Errorf("%w: clip larger than %d bytes", ErrRejected, c.maxClip)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/vosk-transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Transcript string  `json:"transcript"`
		Confidence float64 `json:"confidence"`
		Error      string  `json:"error"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d %s", ErrUnavailable, resp.StatusCode, payload.Error)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: %s", ErrRejected, payload.Error)
	case decodeErr != nil:
		return nil, fmt.Errorf("%w: invalid response: %v", ErrUnavailable, decodeErr)
	}

	return &Result{
		Transcript: strings.TrimSpace(payload.Transcript),
		Confidence: payload.Confidence,
	}, nil
}
