package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Claim atomically moves a record from a queue state into a processing state.
// It returns false when another worker won the race or the record moved on.
func (s *Store) Claim(ctx context.Context, id int64, from, to Status) (bool, error) {
	res, err := s.exec(
		ctx,
		`UPDATE records SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		from,
	)
	if err != nil {
		return false, fmt.Errorf("claim record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResetStuckProcessing recovers records left in processing states by a daemon
// that stopped uncleanly. Analysis and transfer work is safe to redo, so those
// records return to their queue states. A record caught mid-embed is marked
// failed for manual retry because a partial header write cannot be detected
// without inspecting the staged file.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.exec(
		ctx,
		`UPDATE records
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             updated_at = ?
         WHERE status IN (?, ?)`,
		StatusAnalyzing, StatusPending,
		StatusTransferring, StatusEmbedded,
		now,
		StatusAnalyzing,
		StatusTransferring,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck records: %w", err)
	}
	requeued, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	failure, err := json.Marshal(Failure{
		Stage:   StageEmbed,
		Kind:    KindInterrupted,
		Message: InterruptedMessage,
	})
	if err != nil {
		return requeued, fmt.Errorf("marshal interrupted failure: %w", err)
	}
	res, err = s.exec(
		ctx,
		`UPDATE records SET status = ?, failure_json = ?, updated_at = ? WHERE status = ?`,
		StatusFailed,
		string(failure),
		now,
		StatusEmbedding,
	)
	if err != nil {
		return requeued, fmt.Errorf("fail interrupted embeds: %w", err)
	}
	failed, err := res.RowsAffected()
	if err != nil {
		return requeued, fmt.Errorf("rows affected: %w", err)
	}
	return requeued + failed, nil
}

// RetryFailed re-queues failed records at the stage that failed. With no ids
// every failed record is retried. Records whose failure stage is unknown fall
// back to pending so they re-run the pipeline from the start.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE status = ?`
	args := []any{StatusFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("select failed records: %w", err)
	}
	records, err := collectRecords(rows)
	rows.Close()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	var updated int64
	for _, record := range records {
		target := StatusPending
		if record.Failure != nil {
			if status, ok := QueueStatusForFailedStage(record.Failure.Stage); ok {
				target = status
			}
		}
		res, err := s.exec(
			ctx,
			`UPDATE records SET status = ?, failure_json = NULL, updated_at = ? WHERE id = ? AND status = ?`,
			target,
			now,
			record.ID,
			StatusFailed,
		)
		if err != nil {
			return updated, fmt.Errorf("retry record %d: %w", record.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return updated, fmt.Errorf("rows affected: %w", err)
		}
		updated += affected
	}
	return updated, nil
}

// SkipQueued marks a cancelled batch's waiting records skipped. Records in
// processing states are left for their workers to settle.
func (s *Store) SkipQueued(ctx context.Context, batchID string) (int64, error) {
	queued := QueuedStatuses()
	placeholders := makePlaceholders(len(queued))
	args := make([]any, 0, len(queued)+2)
	args = append(args, StatusSkipped, time.Now().UTC().Format(time.RFC3339Nano), batchID)
	for _, status := range queued {
		args = append(args, status)
	}
	res, err := s.exec(
		ctx,
		`UPDATE records SET status = ?, updated_at = ? WHERE batch_id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("skip queued records: %w", err)
	}
	return res.RowsAffected()
}
