package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"darkroom/internal/config"
	"darkroom/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventBatchSubmitted, notifications.Payload{"count": 3}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "batch submitted",
			event: notifications.EventBatchSubmitted,
			payload: notifications.Payload{
				"label": "spring shoot",
				"count": 12,
			},
			expectTitle:   "Darkroom - Batch Submitted",
			expectMessage: "📷 Submitted \"spring shoot\": 12 images",
			expectTags:    "darkroom,batch,submitted",
		},
		{
			name:  "batch submitted without label",
			event: notifications.EventBatchSubmitted,
			payload: notifications.Payload{
				"count": 4,
			},
			expectTitle:   "Darkroom - Batch Submitted",
			expectMessage: "📷 Submitted 4 images",
			expectTags:    "darkroom,batch,submitted",
		},
		{
			name:  "batch analyzed",
			event: notifications.EventBatchAnalyzed,
			payload: notifications.Payload{
				"ready":  5,
				"failed": 1,
			},
			expectTitle:   "Darkroom - Review Ready",
			expectMessage: "🔍 Analysis complete: 5 ready for review, 1 failed",
			expectTags:    "darkroom,review,ready",
		},
		{
			name:  "record failed",
			event: notifications.EventRecordFailed,
			payload: notifications.Payload{
				"record": "sunset.jpg",
				"stage":  "transfer",
				"error":  errors.New("connection lost"),
			},
			expectTitle:    "Darkroom - Record Failed",
			expectMessage:  "❌ sunset.jpg failed during transfer: connection lost",
			expectTags:     "darkroom,record,failed",
			expectPriority: "high",
		},
		{
			name:  "batch delivered clean",
			event: notifications.EventBatchDelivered,
			payload: notifications.Payload{
				"processed": 8,
				"failed":    0,
				"duration":  90 * time.Second,
			},
			expectTitle:   "Darkroom - Batch Delivered",
			expectMessage: "✅ Batch delivered: 8 uploaded in 1m30s",
			expectTags:    "darkroom,batch,delivered",
		},
		{
			name:  "batch delivered with failures",
			event: notifications.EventBatchDelivered,
			payload: notifications.Payload{
				"processed": 6,
				"failed":    2,
				"skipped":   1,
				"duration":  time.Minute,
			},
			expectTitle:   "Darkroom - Batch Delivered (with errors)",
			expectMessage: "Batch finished: 6 uploaded, 2 failed in 1m0s (1 skipped)",
			expectTags:    "darkroom,batch,delivered",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "analysis",
				"error":   "vision api unreachable",
			},
			expectTitle:    "Darkroom - Error",
			expectMessage:  "❌ Error with analysis: vision api unreachable",
			expectTags:     "darkroom,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceMutesDisabledCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for muted event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Batches = false
	cfg.Notifications.Review = false
	cfg.Notifications.Delivery = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	muted := []notifications.Event{
		notifications.EventBatchSubmitted,
		notifications.EventBatchAnalyzed,
		notifications.EventRecordFailed,
		notifications.EventBatchDelivered,
		notifications.EventError,
	}

	for _, event := range muted {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for muted event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
