package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"darkroom/internal/config"
)

const userAgent = "Darkroom/0.1.0"

// Event identifies a pipeline milestone worth pushing to the operator.
type Event string

const (
	// EventBatchSubmitted fires when intake accepts a batch of images.
	EventBatchSubmitted Event = "batch_submitted"
	// EventBatchAnalyzed fires when a batch has no analysis work left and
	// records are waiting for operator review.
	EventBatchAnalyzed Event = "batch_analyzed"
	// EventRecordFailed fires when a record exhausts its retries or hits a
	// permanent failure.
	EventRecordFailed Event = "record_failed"
	// EventBatchDelivered fires when a batch has no active records left.
	EventBatchDelivered Event = "batch_delivered"
	// EventError fires for operational errors outside a specific record.
	EventError Event = "error"
	// EventTest verifies the notification channel end to end.
	EventTest Event = "test"
)

// Payload carries event-specific values used to format the message.
type Payload map[string]any

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		toggles:  cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	toggles  config.Notifications
}

// Publish formats and sends the event when its category is enabled.
// Muted and unknown events are dropped without error so callers never
// branch on notification configuration.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	data, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventBatchSubmitted:
		return n.toggles.Batches
	case EventBatchAnalyzed:
		return n.toggles.Review
	case EventBatchDelivered:
		return n.toggles.Delivery
	case EventRecordFailed, EventError:
		return n.toggles.Errors
	case EventTest:
		return true
	default:
		return false
	}
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBatchSubmitted:
		label := payloadString(payload, "label")
		count := payloadInt(payload, "count")
		body := fmt.Sprintf("📷 Submitted %d images", count)
		if label != "" {
			body = fmt.Sprintf("📷 Submitted %q: %d images", label, count)
		}
		return message{
			title: "Darkroom - Batch Submitted",
			body:  body,
			tags:  []string{"darkroom", "batch", "submitted"},
		}, true
	case EventBatchAnalyzed:
		ready := payloadInt(payload, "ready")
		failed := payloadInt(payload, "failed")
		body := fmt.Sprintf("🔍 Analysis complete: %d ready for review", ready)
		if failed > 0 {
			body = fmt.Sprintf("%s, %d failed", body, failed)
		}
		return message{
			title: "Darkroom - Review Ready",
			body:  body,
			tags:  []string{"darkroom", "review", "ready"},
		}, true
	case EventRecordFailed:
		name := payloadString(payload, "record")
		stage := payloadString(payload, "stage")
		if stage == "" {
			stage = "processing"
		}
		return message{
			title:    "Darkroom - Record Failed",
			body:     fmt.Sprintf("❌ %s failed during %s: %s", name, stage, payloadString(payload, "error")),
			tags:     []string{"darkroom", "record", "failed"},
			priority: "high",
		}, true
	case EventBatchDelivered:
		return n.formatDelivered(payload), true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if contextLabel := payloadString(payload, "context"); contextLabel != "" {
			builder.WriteString(" with ")
			builder.WriteString(contextLabel)
		}
		builder.WriteString(": ")
		if text := payloadString(payload, "error"); text != "" {
			builder.WriteString(text)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Darkroom - Error",
			body:     builder.String(),
			tags:     []string{"darkroom", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Darkroom - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"darkroom", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) formatDelivered(payload Payload) message {
	processed := payloadInt(payload, "processed")
	failed := payloadInt(payload, "failed")
	skipped := payloadInt(payload, "skipped")
	duration := payloadDuration(payload, "duration").Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "Darkroom - Batch Delivered"
	body := fmt.Sprintf("✅ Batch delivered: %d uploaded in %s", processed, duration)
	if failed > 0 {
		title = "Darkroom - Batch Delivered (with errors)"
		body = fmt.Sprintf("Batch finished: %d uploaded, %d failed in %s", processed, failed, duration)
	}
	if skipped > 0 {
		body = fmt.Sprintf("%s (%d skipped)", body, skipped)
	}
	return message{
		title: title,
		body:  body,
		tags:  []string{"darkroom", "batch", "delivered"},
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch value := payload[key].(type) {
	case string:
		return strings.TrimSpace(value)
	case error:
		return strings.TrimSpace(value.Error())
	case fmt.Stringer:
		return strings.TrimSpace(value.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", value))
	}
}

func payloadInt(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch value := payload[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	default:
		return 0
	}
}

func payloadDuration(payload Payload, key string) time.Duration {
	if payload == nil {
		return 0
	}
	if value, ok := payload[key].(time.Duration); ok {
		return value
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
