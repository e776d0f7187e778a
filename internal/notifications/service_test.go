package notifications

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"sitelog/internal/config"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func testConfig(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return &cfg
}

func newCapturingServer(t *testing.T, sink *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sink.title = r.Header.Get("Title")
		sink.tags = r.Header.Get("Tags")
		sink.priority = r.Header.Get("Priority")
		sink.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestUnconfiguredServiceIsNoop(t *testing.T) {
	svc := NewService(testConfig(""))
	if err := svc.NotifyLogSubmitted(context.Background(), "Riverside Retail", "summary", nil); err != nil {
		t.Fatalf("noop service returned error: %v", err)
	}
}

func TestNotifyLogSubmitted(t *testing.T) {
	var sink captured
	server := newCapturingServer(t, &sink)

	svc := NewService(testConfig(server.URL))
	err := svc.NotifyLogSubmitted(context.Background(), "Riverside Retail",
		"Replaced RTU filters.", []string{"notion", "drive"})
	if err != nil {
		t.Fatalf("NotifyLogSubmitted: %v", err)
	}
	if sink.title != "Sitelog - Log Submitted" {
		t.Fatalf("title = %q", sink.title)
	}
	if !strings.Contains(sink.body, "Riverside Retail") {
		t.Fatalf("body missing site name: %q", sink.body)
	}
	if !strings.Contains(sink.body, "notion, drive") {
		t.Fatalf("body missing destinations: %q", sink.body)
	}
	if sink.priority != "high" {
		t.Fatalf("priority = %q", sink.priority)
	}
}

func TestDisabledCategorySkipsSend(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Notifications.Capture = false
	svc := NewService(cfg)

	if err := svc.NotifyCaptureStarted(context.Background(), "Riverside Retail"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 0 {
		t.Fatalf("disabled category sent %d notifications", calls.Load())
	}
}

func TestNotifyErrorIncludesContext(t *testing.T) {
	var sink captured
	server := newCapturingServer(t, &sink)

	svc := NewService(testConfig(server.URL))
	if err := svc.NotifyError(context.Background(), io.ErrUnexpectedEOF, "drive sync"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sink.body, "drive sync") {
		t.Fatalf("body missing context label: %q", sink.body)
	}
	if !strings.Contains(sink.tags, "alert") {
		t.Fatalf("tags = %q", sink.tags)
	}
}

func TestSendReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	svc := NewService(testConfig(server.URL))
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
