package daemon

import (
	"context"
	"fmt"

	"darkroom/internal/catalog"
	"darkroom/internal/intake"
	"darkroom/internal/logging"
	"darkroom/internal/notifications"
	"darkroom/internal/services"
)

// Submit stages the requested images and enqueues one record per source.
func (d *Daemon) Submit(ctx context.Context, req intake.Request) (*catalog.Batch, []*catalog.Record, error) {
	batch, records, err := d.intake.Submit(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if err := d.notifier.Publish(ctx, notifications.EventBatchSubmitted, notifications.Payload{
		"label": batch.Label,
		"count": len(records),
	}); err != nil {
		d.logger.Warn("failed to publish submission notification", logging.Error(err))
	}
	return batch, records, nil
}

// ListBatches returns all batches ordered by creation time.
func (d *Daemon) ListBatches(ctx context.Context) ([]*catalog.Batch, error) {
	return d.store.ListBatches(ctx)
}

// BatchStatus returns a point-in-time snapshot of one batch: the batch row,
// its records, and per-status counts. Counts are derived from the same read
// as the records so the two cannot disagree.
func (d *Daemon) BatchStatus(ctx context.Context, batchID string) (*catalog.Batch, map[catalog.Status]int, []*catalog.Record, error) {
	batch, err := d.getBatch(ctx, batchID)
	if err != nil {
		return nil, nil, nil, err
	}
	records, err := d.store.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list batch records: %w", err)
	}
	counts := make(map[catalog.Status]int, len(records))
	for _, record := range records {
		counts[record.Status]++
	}
	return batch, counts, records, nil
}

// CancelBatch stamps the batch cancelled and settles every queued record as
// skipped. Records mid-stage settle when their stage returns; a transfer that
// already succeeded stays completed.
func (d *Daemon) CancelBatch(ctx context.Context, batchID string) (int64, error) {
	if _, err := d.getBatch(ctx, batchID); err != nil {
		return 0, err
	}
	if _, err := d.store.MarkBatchCancelled(ctx, batchID); err != nil {
		return 0, err
	}
	skipped, err := d.store.SkipQueued(ctx, batchID)
	if err != nil {
		return 0, err
	}
	d.logger.Info("batch cancelled",
		logging.String(logging.FieldBatchID, batchID),
		logging.Int64("skipped", skipped),
	)
	return skipped, nil
}

// DiscardBatch cancels the batch, deletes its records, and removes the staged
// files. Returns the number of records deleted.
func (d *Daemon) DiscardBatch(ctx context.Context, batchID string) (int64, error) {
	if _, err := d.CancelBatch(ctx, batchID); err != nil {
		return 0, err
	}
	removed, err := d.store.DeleteBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	if err := intake.RemoveBatchDir(d.cfg, batchID); err != nil {
		d.logger.Warn("failed to remove staged batch files",
			logging.String(logging.FieldBatchID, batchID),
			logging.Error(err),
		)
	}
	d.logger.Info("batch discarded",
		logging.String(logging.FieldBatchID, batchID),
		logging.Int64("records", removed),
	)
	return removed, nil
}

func (d *Daemon) getBatch(ctx context.Context, batchID string) (*catalog.Batch, error) {
	batch, err := d.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, services.Wrap(services.ErrNotFound, "daemon", "lookup batch",
			fmt.Sprintf("batch %s does not exist", batchID), nil)
	}
	return batch, nil
}
