package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"streamdigest/internal/config"
)

const userAgent = "streamdigest/0.1.0"

// RunSummary is the operator-facing outcome of one run.
type RunSummary struct {
	Title           string
	BatchesSent     int
	BatchesTotal    int
	CaptureFailures int
	RemoteStatus    string
	Duration        time.Duration
}

func (s RunSummary) degraded() bool {
	switch s.RemoteStatus {
	case "transfer_failed", "command_failed":
		return true
	}
	return s.BatchesSent < s.BatchesTotal || s.CaptureFailures > 0
}

// Service defines the alert surface used by the pipeline and CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyRunFailed(ctx context.Context, title string, err error) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	title := strings.TrimSpace(summary.Title)
	var b strings.Builder
	fmt.Fprintf(&b, "Run complete: %s\n%d/%d parts sent", title, summary.BatchesSent, summary.BatchesTotal)
	if summary.CaptureFailures > 0 {
		fmt.Fprintf(&b, ", %d screenshots failed", summary.CaptureFailures)
	}
	if remote := strings.TrimSpace(summary.RemoteStatus); remote != "" {
		fmt.Fprintf(&b, ", remote push %s", remote)
	}
	if d := summary.Duration.Round(time.Second); d > 0 {
		fmt.Fprintf(&b, " in %s", d)
	}

	data := payload{
		title:   "streamdigest - Run Complete",
		message: b.String(),
		tags:    []string{"streamdigest", "run", "completed"},
	}
	if summary.degraded() {
		data.title = "streamdigest - Run Complete (with errors)"
		data.tags = []string{"streamdigest", "run", "partial"}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, title string, err error) error {
	var b strings.Builder
	b.WriteString("❌ Run failed")
	if title = strings.TrimSpace(title); title != "" {
		b.WriteString(" for ")
		b.WriteString(title)
	}
	b.WriteString(": ")
	if err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("unknown")
	}
	data := payload{
		title:    "streamdigest - Error",
		message:  b.String(),
		tags:     []string{"streamdigest", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "streamdigest - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"streamdigest", "test"},
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

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error  { return nil }
func (noopService) NotifyRunFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
