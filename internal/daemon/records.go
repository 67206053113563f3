package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"darkroom/internal/catalog"
	"darkroom/internal/logging"
	"darkroom/internal/services"
)

// GetRecord returns a single record by id.
func (d *Daemon) GetRecord(ctx context.Context, id int64) (*catalog.Record, error) {
	record, err := d.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, services.Wrap(services.ErrNotFound, "daemon", "lookup record",
			fmt.Sprintf("record %d does not exist", id), nil)
	}
	return record, nil
}

// ListRecords returns records filtered by optional statuses.
func (d *Daemon) ListRecords(ctx context.Context, statuses []catalog.Status) ([]*catalog.Record, error) {
	return d.store.List(ctx, statuses...)
}

// EditFields replaces a record's metadata while it awaits review. The review
// policy normalizes and validates the replacement before anything persists.
func (d *Daemon) EditFields(ctx context.Context, id int64, fields catalog.MetadataFields) (*catalog.Record, error) {
	record, err := d.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != catalog.StatusReviewReady {
		return nil, fmt.Errorf("%w (status %s)", ErrNotEditable, record.Status)
	}

	applied, err := d.policy.Apply(fields)
	if err != nil {
		return nil, err
	}
	record.Fields = &applied
	written, err := d.store.UpdateIf(ctx, record, catalog.StatusReviewReady)
	if err != nil {
		return nil, fmt.Errorf("persist edited fields: %w", err)
	}
	if !written {
		return nil, fmt.Errorf("%w (record left review while editing)", ErrNotEditable)
	}
	d.logger.Info("record fields edited", logging.Int64(logging.FieldRecordID, record.ID))
	return record, nil
}

// Reanalyze sends a reviewed record back through the analysis lane. A
// non-empty hint replaces the stored one; generated fields are discarded so
// the next analysis starts clean.
func (d *Daemon) Reanalyze(ctx context.Context, id int64, hint string) (*catalog.Record, error) {
	record, err := d.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != catalog.StatusReviewReady {
		return nil, fmt.Errorf("%w (status %s)", ErrNotEditable, record.Status)
	}

	hint = strings.TrimSpace(hint)
	if max := d.cfg.Vision.MaxHintChars; hint != "" && max > 0 && utf8.RuneCountInString(hint) > max {
		return nil, services.Wrap(services.ErrValidation, "daemon", "reanalyze",
			fmt.Sprintf("hint exceeds %d characters", max), nil)
	}

	if hint != "" {
		record.Hint = hint
	}
	record.Fields = nil
	record.ClearFailure()
	record.Status = catalog.StatusPending
	written, err := d.store.UpdateIf(ctx, record, catalog.StatusReviewReady)
	if err != nil {
		return nil, fmt.Errorf("queue reanalysis: %w", err)
	}
	if !written {
		return nil, fmt.Errorf("%w (record left review before requeue)", ErrNotEditable)
	}
	d.logger.Info("record queued for reanalysis",
		logging.Int64(logging.FieldRecordID, record.ID),
		logging.Bool("hint_replaced", hint != ""),
	)
	return record, nil
}

// Finalize releases a reviewed record to the delivery lane and stamps the
// approval time. The stamp is written once; refinalizing after a retry keeps
// the original approval.
func (d *Daemon) Finalize(ctx context.Context, id int64) (*catalog.Record, error) {
	record, err := d.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != catalog.StatusReviewReady {
		return nil, fmt.Errorf("%w (status %s)", ErrNotReady, record.Status)
	}

	if record.FinalizedAt == nil {
		now := time.Now().UTC()
		record.FinalizedAt = &now
	}
	record.Status = catalog.StatusFinalized
	written, err := d.store.UpdateIf(ctx, record, catalog.StatusReviewReady)
	if err != nil {
		return nil, fmt.Errorf("finalize record: %w", err)
	}
	if !written {
		return nil, fmt.Errorf("%w (record left review before release)", ErrNotReady)
	}
	d.logger.Info("record finalized", logging.Int64(logging.FieldRecordID, record.ID))
	return record, nil
}

// FinalizeBatch finalizes every review_ready record in the batch and reports
// how many were released.
func (d *Daemon) FinalizeBatch(ctx context.Context, batchID string) (int64, error) {
	if _, err := d.getBatch(ctx, batchID); err != nil {
		return 0, err
	}
	records, err := d.store.ListByBatch(ctx, batchID, catalog.StatusReviewReady)
	if err != nil {
		return 0, fmt.Errorf("list batch records: %w", err)
	}

	var finalized int64
	for _, record := range records {
		if _, err := d.Finalize(ctx, record.ID); err != nil {
			return finalized, err
		}
		finalized++
	}
	d.logger.Info("batch finalized",
		logging.String(logging.FieldBatchID, batchID),
		logging.Int64("records", finalized),
	)
	return finalized, nil
}

// Retry re-queues a failed record at the stage that failed.
func (d *Daemon) Retry(ctx context.Context, id int64) (*catalog.Record, error) {
	record, err := d.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != catalog.StatusFailed {
		return nil, fmt.Errorf("%w (status %s)", ErrNotFailed, record.Status)
	}

	if _, err := d.store.RetryFailed(ctx, id); err != nil {
		return nil, fmt.Errorf("retry record: %w", err)
	}
	d.logger.Info("record re-queued", logging.Int64(logging.FieldRecordID, record.ID))
	return d.GetRecord(ctx, id)
}
