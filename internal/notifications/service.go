// Package notifications pushes capture and sync events to an ntfy topic.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sitelog/internal/config"
)

const userAgent = "Sitelog-Go/0.1.0"

// Service defines the notification surface exposed to capture and sync.
type Service interface {
	NotifyCaptureStarted(ctx context.Context, siteName string) error
	NotifyLogSubmitted(ctx context.Context, siteName, summary string, destinations []string) error
	NotifySubmissionFailed(ctx context.Context, siteName string, failures []string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:         topic,
		client:           &http.Client{Timeout: timeout},
		captureEnabled:   cfg.Notifications.Capture,
		submitEnabled:    cfg.Notifications.Submission,
		errorsEnabled:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	captureEnabled bool
	submitEnabled  bool
	errorsEnabled  bool
}

func (n *ntfyService) NotifyCaptureStarted(ctx context.Context, siteName string) error {
	if !n.captureEnabled {
		return nil
	}
	data := payload{
		title:   "Sitelog - Capture Started",
		message: fmt.Sprintf("Recording a log at %s", strings.TrimSpace(siteName)),
		tags:    []string{"sitelog", "capture", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyLogSubmitted(ctx context.Context, siteName, summary string, destinations []string) error {
	if !n.submitEnabled {
		return nil
	}
	siteName = strings.TrimSpace(siteName)
	message := fmt.Sprintf("Log submitted for %s", siteName)
	if summary = strings.TrimSpace(summary); summary != "" {
		message = fmt.Sprintf("%s\n%s", message, summary)
	}
	if len(destinations) > 0 {
		message = fmt.Sprintf("%s\nSynced to: %s", message, strings.Join(destinations, ", "))
	}
	data := payload{
		title:    "Sitelog - Log Submitted",
		message:  message,
		tags:     []string{"sitelog", "submit", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySubmissionFailed(ctx context.Context, siteName string, failures []string) error {
	if !n.errorsEnabled {
		return nil
	}
	message := fmt.Sprintf("Some destinations failed for %s", strings.TrimSpace(siteName))
	if len(failures) > 0 {
		message = fmt.Sprintf("%s\nFailed: %s", message, strings.Join(failures, ", "))
	}
	data := payload{
		title:    "Sitelog - Sync Incomplete",
		message:  message,
		tags:     []string{"sitelog", "submit", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorsEnabled {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Sitelog - Error",
		message:  builder.String(),
		tags:     []string{"sitelog", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Sitelog - Test",
		message:  "Notification system test",
		tags:     []string{"sitelog", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Noop returns a Service that discards every notification.
func Noop() Service { return noopService{} }

type noopService struct{}

func (noopService) NotifyCaptureStarted(context.Context, string) error                   { return nil }
func (noopService) NotifyLogSubmitted(context.Context, string, string, []string) error   { return nil }
func (noopService) NotifySubmissionFailed(context.Context, string, []string) error       { return nil }
func (noopService) NotifyError(context.Context, error, string) error                     { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
