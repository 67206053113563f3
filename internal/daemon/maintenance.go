package daemon

import (
	"context"
	"strings"

	"darkroom/internal/catalog"
	"darkroom/internal/notifications"
)

// ClearCompleted removes completed records from the catalog.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes failed records from the catalog.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// ReclaimStale re-queues records stranded in a processing status by an
// unclean shutdown.
func (d *Daemon) ReclaimStale(ctx context.Context) (int64, error) {
	return d.store.ResetStuckProcessing(ctx)
}

// StoreHealth returns catalog diagnostics: queue composition plus database
// integrity details. A failed integrity check still returns the partial
// database diagnostics so callers can show what was gathered.
func (d *Daemon) StoreHealth(ctx context.Context) (catalog.HealthSummary, catalog.DatabaseHealth, error) {
	summary, err := d.store.Health(ctx)
	if err != nil {
		return catalog.HealthSummary{}, catalog.DatabaseHealth{}, err
	}
	database, err := d.store.CheckHealth(ctx)
	return summary, database, err
}

// TestNotification pushes a test event through the configured channel.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
