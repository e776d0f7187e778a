package drive

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sitelog/internal/config"
	"sitelog/internal/sites"
	"sitelog/internal/structuring"
	"sitelog/internal/sync"
)

func testPayload() sync.Payload {
	return sync.Payload{
		SessionID:  "sess-1",
		Site:       sites.SiteContext{ID: 1, Name: "Riverside Retail", Address: "123 Main St"},
		Record:     &structuring.Record{Summary: "Replaced RTU filters.", JobType: structuring.JobRetail},
		Rendered:   "# Site Log: Riverside Retail\n",
		CapturedAt: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func TestConnected(t *testing.T) {
	if New(config.Drive{}).Connected() {
		t.Fatal("client without credentials should not report connected")
	}
	if !New(config.Drive{AccessToken: "t", FolderID: "f"}).Connected() {
		t.Fatal("client with credentials should report connected")
	}
}

func TestPushUploadsMultipart(t *testing.T) {
	var metaPart, contentPart string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("uploadType"); got != "multipart" {
			t.Errorf("uploadType = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("authorization = %q", got)
		}
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
			t.Errorf("content type = %q (%v)", mediaType, err)
		}
		reader := multipart.NewReader(r.Body, params["boundary"])

		first, err := reader.NextPart()
		if err != nil {
			t.Fatalf("read metadata part: %v", err)
		}
		raw, _ := io.ReadAll(first)
		metaPart = string(raw)

		second, err := reader.NextPart()
		if err != nil {
			t.Fatalf("read content part: %v", err)
		}
		raw, _ = io.ReadAll(second)
		contentPart = string(raw)

		w.Write([]byte(`{"id": "file-1"}`))
	}))
	defer server.Close()

	client := New(config.Drive{AccessToken: "token", FolderID: "folder-1", UploadURL: server.URL})
	if err := client.Push(context.Background(), testPayload()); err != nil {
		t.Fatalf("Push: %v", err)
	}

	if !strings.Contains(metaPart, `"folder-1"`) {
		t.Fatalf("metadata missing parent folder: %s", metaPart)
	}
	if !strings.Contains(metaPart, "Site Log - Riverside Retail - 2026-03-10.md") {
		t.Fatalf("metadata missing file name: %s", metaPart)
	}
	if !strings.Contains(contentPart, "# Site Log: Riverside Retail") {
		t.Fatalf("content part = %q", contentPart)
	}
}

func TestPushReportsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer server.Close()

	client := New(config.Drive{AccessToken: "token", FolderID: "folder-1", UploadURL: server.URL})
	err := client.Push(context.Background(), testPayload())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("error should carry status: %v", err)
	}
}
