// Package transcription turns a recorded voice memo into text via an
// OpenAI-compatible speech-to-text endpoint. Input validation happens before
// any network traffic; oversized or unrecognized audio never leaves the box.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"sitelog/internal/config"
)

// MaxAudioBytes is the upload ceiling. Providers reject larger payloads; we
// reject them first so the failure is immediate and local.
const MaxAudioBytes = 25 << 20

var supportedMIMETypes = map[string]string{
	"audio/mpeg":  "memo.mp3",
	"audio/mp4":   "memo.m4a",
	"audio/x-m4a": "memo.m4a",
	"audio/wav":   "memo.wav",
	"audio/x-wav": "memo.wav",
	"audio/webm":  "memo.webm",
	"audio/ogg":   "memo.ogg",
	"audio/flac":  "memo.flac",
}

// HTTPDoer abstracts the HTTP client for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Service calls the speech-to-text provider.
type Service struct {
	baseURL        string
	apiKey         string
	model          string
	vocabularyHint string
	client         HTTPDoer
}

// NewService constructs a transcription service from configuration.
func NewService(cfg config.Transcriber, opts ...Option) *Service {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	svc := &Service{
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:         strings.TrimSpace(cfg.APIKey),
		model:          strings.TrimSpace(cfg.Model),
		vocabularyHint: strings.TrimSpace(cfg.VocabularyHint),
		client:         &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Option customizes the service.
type Option func(*Service)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(s *Service) {
		if client != nil {
			s.client = client
		}
	}
}

// Configured reports whether the provider credentials are present.
func (s *Service) Configured() bool {
	return s != nil && s.apiKey != "" && s.baseURL != ""
}

// Validate checks the audio payload without touching the network.
func Validate(audio []byte, mimeType string) error {
	if len(audio) == 0 {
		return newError(KindEmptyInput, "no audio provided")
	}
	if len(audio) > MaxAudioBytes {
		return newError(KindTooLarge,
			fmt.Sprintf("audio is %d bytes, limit is %d", len(audio), MaxAudioBytes))
	}
	if _, ok := supportedMIMETypes[normalizeMIME(mimeType)]; !ok {
		return newError(KindUnsupportedFormat, fmt.Sprintf("unsupported audio format %q", mimeType))
	}
	return nil
}

// Transcribe validates the audio and sends it to the provider. The returned
// text is trimmed; a blank transcript is reported as KindEmptyResult so the
// caller can tell "nothing was said" apart from a provider outage.
func (s *Service) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := Validate(audio, mimeType); err != nil {
		return "", err
	}
	if !s.Configured() {
		return "", newError(KindProvider, "transcriber is not configured")
	}

	body, contentType, err := s.buildMultipart(audio, mimeType)
	if err != nil {
		return "", wrapError(KindProvider, "build request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", wrapError(KindProvider, "new request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", wrapError(KindProvider, "call provider", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", wrapError(KindProvider, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", newError(KindProvider,
			fmt.Sprintf("provider returned http %d: %s", resp.StatusCode, snippet(payload)))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", wrapError(KindProvider, "decode response", err)
	}

	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return "", newError(KindEmptyResult, "no speech detected in recording")
	}
	return text, nil
}

func (s *Service) buildMultipart(audio []byte, mimeType string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	filename := supportedMIMETypes[normalizeMIME(mimeType)]
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("model", s.model); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return nil, "", err
	}
	if s.vocabularyHint != "" {
		if err := writer.WriteField("prompt", s.vocabularyHint); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf, writer.FormDataContentType(), nil
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}

func snippet(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}
