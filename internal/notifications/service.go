package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"camqueue/internal/config"
)

const userAgent = "Camqueue/0.1.0"

// Service defines the notification surface exposed to queue components.
type Service interface {
	NotifyQueueStarted(ctx context.Context, pending int) error
	NotifyQueueCompleted(ctx context.Context, completed, failed, skipped int, duration time.Duration) error
	NotifyJobFailed(ctx context.Context, jobName, errorMessage string) error
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

func (n *ntfyService) NotifyQueueStarted(ctx context.Context, pending int) error {
	data := payload{
		title:   "Camqueue - Queue Started",
		message: fmt.Sprintf("Started running queue with %d pending jobs", pending),
		tags:    []string{"camqueue", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, completed, failed, skipped int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	if failed == 0 {
		title = "Camqueue - Queue Complete"
		message = fmt.Sprintf("Queue complete: %d jobs finished in %s", completed, durationText)
	} else {
		title = "Camqueue - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue complete: %d succeeded, %d failed in %s", completed, failed, durationText)
	}
	if skipped > 0 {
		message = fmt.Sprintf("%s (%d skipped)", message, skipped)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"camqueue", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobName, errorMessage string) error {
	jobName = strings.TrimSpace(jobName)
	message := fmt.Sprintf("Job failed: %s", jobName)
	if errorMessage = strings.TrimSpace(errorMessage); errorMessage != "" {
		message = fmt.Sprintf("%s\n%s", message, errorMessage)
	}

	data := payload{
		title:    "Camqueue - Job Failed",
		message:  message,
		tags:     []string{"camqueue", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Camqueue - Test",
		message:  "Notification system test",
		tags:     []string{"camqueue", "test"},
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

func (noopService) NotifyQueueStarted(context.Context, int) error { return nil }

func (noopService) NotifyQueueCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}

func (noopService) NotifyJobFailed(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
