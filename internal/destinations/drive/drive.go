// Package drive uploads finished site logs to a Google Drive folder as
// markdown files.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"sitelog/internal/config"
	"sitelog/internal/sync"
)

// HTTPDoer abstracts the HTTP client for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client uploads logs to a Drive folder.
type Client struct {
	uploadURL   string
	accessToken string
	folderID    string
	client      HTTPDoer
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

// New constructs a Drive destination. Without credentials the client still
// constructs but reports Connected() == false and is skipped by sync.
func New(cfg config.Drive, opts ...Option) *Client {
	c := &Client{
		uploadURL:   strings.TrimRight(strings.TrimSpace(cfg.UploadURL), "/"),
		accessToken: strings.TrimSpace(cfg.AccessToken),
		folderID:    strings.TrimSpace(cfg.FolderID),
		client:      &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.uploadURL == "" {
		c.uploadURL = "https://www.googleapis.com/upload/drive/v3/files"
	}
	return c
}

// Kind identifies this destination in sync results.
func (c *Client) Kind() string { return "drive" }

// Connected reports whether credentials are present.
func (c *Client) Connected() bool {
	return c != nil && c.accessToken != "" && c.folderID != ""
}

// Push uploads the rendered log as a markdown file using a multipart upload:
// a JSON metadata part naming the file and its parent folder, then the
// content itself.
func (c *Client) Push(ctx context.Context, payload sync.Payload) error {
	body, contentType, err := c.buildUpload(payload)
	if err != nil {
		return fmt.Errorf("drive push: build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.uploadURL+"?uploadType=multipart", body)
	if err != nil {
		return fmt.Errorf("drive push: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("drive push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("drive push: http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) buildUpload(payload sync.Payload) (*bytes.Buffer, string, error) {
	metadata := map[string]any{
		"name":     fileName(payload),
		"parents":  []string{c.folderID},
		"mimeType": "text/markdown",
	}
	encodedMeta, err := json.Marshal(metadata)
	if err != nil {
		return nil, "", err
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := writer.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := metaPart.Write(encodedMeta); err != nil {
		return nil, "", err
	}

	contentHeader := textproto.MIMEHeader{}
	contentHeader.Set("Content-Type", "text/markdown; charset=UTF-8")
	contentPart, err := writer.CreatePart(contentHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := contentPart.Write([]byte(payload.Rendered)); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	contentType := "multipart/related; boundary=" + writer.Boundary()
	return buf, contentType, nil
}

func fileName(payload sync.Payload) string {
	name := strings.TrimSpace(payload.Site.Name)
	name = strings.ReplaceAll(name, "/", "-")
	return fmt.Sprintf("Site Log - %s - %s.md", name, payload.CapturedAt.Format("2006-01-02"))
}
