// Package notion pushes finished site logs into a Notion database as pages.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sitelog/internal/config"
	"sitelog/internal/sync"
)

const notionVersion = "2022-06-28"

// HTTPDoer abstracts the HTTP client for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client pushes logs to a Notion database.
type Client struct {
	baseURL    string
	token      string
	databaseID string
	client     HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// New constructs a Notion destination. Without credentials the client still
// constructs but reports Connected() == false and is skipped by sync.
func New(cfg config.Notion, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:      strings.TrimSpace(cfg.Token),
		databaseID: strings.TrimSpace(cfg.DatabaseID),
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = "https://api.notion.com/v1"
	}
	return c
}

// Kind identifies this destination in sync results.
func (c *Client) Kind() string { return "notion" }

// Connected reports whether credentials are present.
func (c *Client) Connected() bool {
	return c != nil && c.token != "" && c.databaseID != ""
}

// Push creates a page in the configured database with the log content as
// page blocks.
func (c *Client) Push(ctx context.Context, payload sync.Payload) error {
	body := map[string]any{
		"parent": map[string]string{"database_id": c.databaseID},
		"properties": map[string]any{
			"Name": map[string]any{
				"title": []map[string]any{
					{"text": map[string]string{"content": pageTitle(payload)}},
				},
			},
			"Date": map[string]any{
				"date": map[string]string{"start": payload.CapturedAt.Format("2006-01-02")},
			},
			"Job Type": map[string]any{
				"select": map[string]string{"name": string(payload.Record.JobType)},
			},
			"Tags": map[string]any{
				"multi_select": tagOptions(payload.Record.Tags),
			},
		},
		"children": blocksFromRendered(payload.Rendered),
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("notion push: encode page: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pages", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("notion push: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notion push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("notion push: http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func pageTitle(payload sync.Payload) string {
	return fmt.Sprintf("%s - %s", payload.Site.Name, payload.CapturedAt.Format("Jan 2, 2006"))
}

func tagOptions(tags []string) []map[string]string {
	options := make([]map[string]string, 0, len(tags))
	for _, tag := range tags {
		options = append(options, map[string]string{"name": tag})
	}
	return options
}

// blocksFromRendered converts the rendered markdown into Notion blocks.
// Headings and bullets map to their block types; everything else becomes a
// paragraph. Notion caps children at 100 blocks per request.
func blocksFromRendered(rendered string) []map[string]any {
	const maxBlocks = 100
	var blocks []map[string]any
	for _, line := range strings.Split(rendered, "\n") {
		line = strings.TrimRight(line, " ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(blocks) == maxBlocks {
			break
		}
		switch {
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, textBlock("heading_2", strings.TrimPrefix(line, "## ")))
		case strings.HasPrefix(line, "# "):
			blocks = append(blocks, textBlock("heading_1", strings.TrimPrefix(line, "# ")))
		case strings.HasPrefix(line, "- "):
			blocks = append(blocks, textBlock("bulleted_list_item", strings.TrimPrefix(line, "- ")))
		default:
			blocks = append(blocks, textBlock("paragraph", line))
		}
	}
	return blocks
}

func textBlock(blockType, content string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   blockType,
		blockType: map[string]any{
			"rich_text": []map[string]any{
				{"type": "text", "text": map[string]string{"content": content}},
			},
		},
	}
}
