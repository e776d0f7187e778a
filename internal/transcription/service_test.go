package transcription

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"sitelog/internal/config"
)

func testService(t *testing.T, handler http.Handler) (*Service, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	svc := NewService(config.Transcriber{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "whisper-1",
	})
	return svc, &calls
}

func TestTranscribeReturnsText(t *testing.T) {
	svc, _ := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		w.Write([]byte(`{"text": "  Replaced the RTU filters.  "}`))
	}))

	text, err := svc.Transcribe(context.Background(), []byte("fake-audio"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Replaced the RTU filters." {
		t.Fatalf("text = %q", text)
	}
}

func TestTranscribeSendsVocabularyPrompt(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(32 << 20)
		gotPrompt = r.FormValue("prompt")
		w.Write([]byte(`{"text": "ok"}`))
	}))
	defer server.Close()

	svc := NewService(config.Transcriber{
		BaseURL:        server.URL,
		APIKey:         "key",
		Model:          "whisper-1",
		VocabularyHint: "punch list, RTU, GFCI",
	})
	if _, err := svc.Transcribe(context.Background(), []byte("audio"), "audio/wav"); err != nil {
		t.Fatal(err)
	}
	if gotPrompt != "punch list, RTU, GFCI" {
		t.Fatalf("prompt = %q", gotPrompt)
	}
}

func TestValidationFailsBeforeAnyNetworkCall(t *testing.T) {
	svc, calls := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "should never be reached"}`))
	}))

	cases := []struct {
		name  string
		audio []byte
		mime  string
		kind  ErrorKind
	}{
		{"empty", nil, "audio/mpeg", KindEmptyInput},
		{"oversized", bytes.Repeat([]byte("a"), MaxAudioBytes+1), "audio/mpeg", KindTooLarge},
		{"bad format", []byte("audio"), "video/mp4", KindUnsupportedFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Transcribe(context.Background(), tc.audio, tc.mime)
			if !IsKind(err, tc.kind) {
				t.Fatalf("error = %v, want kind %s", err, tc.kind)
			}
		})
	}
	if calls.Load() != 0 {
		t.Fatalf("provider was called %d times for invalid input", calls.Load())
	}
}

func TestBlankTranscriptIsEmptyResultNotProviderError(t *testing.T) {
	svc, _ := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "   "}`))
	}))

	_, err := svc.Transcribe(context.Background(), []byte("audio"), "audio/mpeg")
	if !IsKind(err, KindEmptyResult) {
		t.Fatalf("error = %v, want KindEmptyResult", err)
	}
	if Retryable(err) {
		t.Fatal("empty result must not be retryable")
	}
}

func TestProviderFailureIsRetryable(t *testing.T) {
	svc, _ := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))

	_, err := svc.Transcribe(context.Background(), []byte("audio"), "audio/mpeg")
	if !IsKind(err, KindProvider) {
		t.Fatalf("error = %v, want KindProvider", err)
	}
	if !Retryable(err) {
		t.Fatal("provider failure should be retryable")
	}
}

func TestMIMETypeParametersAreIgnored(t *testing.T) {
	if err := Validate([]byte("audio"), "audio/webm; codecs=opus"); err != nil {
		t.Fatalf("Validate rejected parameterized mime type: %v", err)
	}
}

func TestNotConfigured(t *testing.T) {
	svc := NewService(config.Transcriber{Model: "whisper-1"})
	if svc.Configured() {
		t.Fatal("service without credentials should not report configured")
	}
	_, err := svc.Transcribe(context.Background(), []byte("audio"), "audio/mpeg")
	if !IsKind(err, KindProvider) {
		t.Fatalf("error = %v, want KindProvider", err)
	}
}
