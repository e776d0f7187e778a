package notion

import (
	"context"
	"encoding/json"
	"io"
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
		SessionID: "sess-1",
		Site:      sites.SiteContext{ID: 1, Name: "Riverside Retail", Address: "123 Main St"},
		Record: &structuring.Record{
			Summary: "Replaced RTU filters.",
			Tags:    []string{"hvac", "punch-list"},
			JobType: structuring.JobRetail,
		},
		Rendered:   "# Site Log: Riverside Retail\n\n## Work Completed\n\n- Replaced filters on RTU-2\n",
		CapturedAt: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func TestConnected(t *testing.T) {
	if New(config.Notion{}).Connected() {
		t.Fatal("client without credentials should not report connected")
	}
	if !New(config.Notion{Token: "t", DatabaseID: "db"}).Connected() {
		t.Fatal("client with credentials should report connected")
	}
}

func TestPushCreatesPage(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Notion-Version"); got != notionVersion {
			t.Errorf("Notion-Version = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"id": "page-1"}`))
	}))
	defer server.Close()

	client := New(config.Notion{Token: "secret", DatabaseID: "db-1", BaseURL: server.URL})
	if err := client.Push(context.Background(), testPayload()); err != nil {
		t.Fatalf("Push: %v", err)
	}

	parent, _ := gotBody["parent"].(map[string]any)
	if parent["database_id"] != "db-1" {
		t.Fatalf("parent = %v", parent)
	}
	children, _ := gotBody["children"].([]any)
	if len(children) == 0 {
		t.Fatal("expected page blocks")
	}
}

func TestPushReportsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "invalid token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(config.Notion{Token: "bad", DatabaseID: "db-1", BaseURL: server.URL})
	err := client.Push(context.Background(), testPayload())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error should carry status: %v", err)
	}
}

func TestBlocksFromRendered(t *testing.T) {
	blocks := blocksFromRendered("# Title\n\n## Section\n\n- item one\nplain text\n")
	if len(blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(blocks))
	}
	if blocks[0]["type"] != "heading_1" {
		t.Fatalf("blocks[0] type = %v", blocks[0]["type"])
	}
	if blocks[1]["type"] != "heading_2" {
		t.Fatalf("blocks[1] type = %v", blocks[1]["type"])
	}
	if blocks[2]["type"] != "bulleted_list_item" {
		t.Fatalf("blocks[2] type = %v", blocks[2]["type"])
	}
	if blocks[3]["type"] != "paragraph" {
		t.Fatalf("blocks[3] type = %v", blocks[3]["type"])
	}
}
