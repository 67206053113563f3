package pipeline

import (
	"context"
	"errors"
	"time"

	"darkroom/internal/catalog"
	"darkroom/internal/logging"
	"darkroom/internal/notifications"
)

// batchProgress tracks per-batch announcement state so each milestone fires
// once even when several workers drain the batch together.
type batchProgress struct {
	started  time.Time
	analyzed bool
}

func (m *Manager) onRecordStarted(ctx context.Context, record *catalog.Record) {
	if m.notifier == nil || record == nil || record.BatchID == "" {
		return
	}
	m.batchMu.Lock()
	progress, ok := m.batches[record.BatchID]
	if !ok {
		progress = &batchProgress{started: time.Now()}
		m.batches[record.BatchID] = progress
	}
	// A record re-entering analysis re-arms the review announcement.
	if record.Status == catalog.StatusAnalyzing {
		progress.analyzed = false
	}
	m.batchMu.Unlock()
}

// checkBatchProgress fires batch milestones after a record settles: the
// review announcement once analysis drains, and the delivery announcement
// once nothing in the batch is active anymore.
func (m *Manager) checkBatchProgress(ctx context.Context, batchID string) {
	if m.notifier == nil || batchID == "" {
		return
	}
	stats, err := m.store.BatchStats(ctx, batchID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not check batch progress")
		} else {
			m.logger.Warn("batch stats unavailable; milestone notification skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "batch_stats_failed"),
				logging.String(logging.FieldErrorHint, "check catalog database access"),
				logging.String(logging.FieldImpact, "batch milestone notification will not be sent"),
			)
		}
		return
	}
	m.maybeNotifyAnalyzed(ctx, batchID, stats)
	m.maybeNotifyDelivered(ctx, batchID, stats)
}

func (m *Manager) maybeNotifyAnalyzed(ctx context.Context, batchID string, stats map[catalog.Status]int) {
	if stats[catalog.StatusPending]+stats[catalog.StatusAnalyzing] > 0 {
		return
	}
	ready := stats[catalog.StatusReviewReady]
	if ready == 0 {
		return
	}

	m.batchMu.Lock()
	progress, ok := m.batches[batchID]
	if !ok || progress.analyzed {
		m.batchMu.Unlock()
		return
	}
	progress.analyzed = true
	m.batchMu.Unlock()

	if err := m.notifier.Publish(ctx, notifications.EventBatchAnalyzed, notifications.Payload{
		"batch_id": batchID,
		"ready":    ready,
		"failed":   stats[catalog.StatusFailed],
	}); err != nil {
		m.debugNotifyFailure(ctx, "review notification failed", err)
	}
}

func (m *Manager) maybeNotifyDelivered(ctx context.Context, batchID string, stats map[catalog.Status]int) {
	if countActiveRecords(stats) > 0 {
		return
	}

	m.batchMu.Lock()
	progress, ok := m.batches[batchID]
	if !ok {
		m.batchMu.Unlock()
		return
	}
	delete(m.batches, batchID)
	start := progress.started
	m.batchMu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}
	if err := m.notifier.Publish(ctx, notifications.EventBatchDelivered, notifications.Payload{
		"batch_id":  batchID,
		"processed": stats[catalog.StatusCompleted],
		"failed":    stats[catalog.StatusFailed],
		"skipped":   stats[catalog.StatusSkipped],
		"duration":  duration,
	}); err != nil {
		m.debugNotifyFailure(ctx, "delivery notification failed", err)
	}
}

func (m *Manager) notifyRecordFailed(ctx context.Context, stageName string, record *catalog.Record, stageErr error) {
	if m.notifier == nil || stageErr == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventRecordFailed, notifications.Payload{
		"batch_id": record.BatchID,
		"record":   record.OriginalName,
		"stage":    stageName,
		"error":    stageErr,
	}); err != nil {
		m.debugNotifyFailure(ctx, "record failure notification failed", err)
	}
}

func (m *Manager) debugNotifyFailure(ctx context.Context, message string, err error) {
	logger := logging.WithContext(ctx, m.logger.With(logging.String(logging.FieldComponent, "pipeline-manager")))
	if errors.Is(err, context.Canceled) {
		logger.Debug("daemon shutting down, notification not sent")
		return
	}
	logger.Debug(message, logging.Error(err))
}

func countActiveRecords(stats map[catalog.Status]int) int {
	total := 0
	for status, count := range stats {
		switch status {
		case catalog.StatusCompleted, catalog.StatusFailed, catalog.StatusSkipped:
		default:
			total += count
		}
	}
	return total
}
