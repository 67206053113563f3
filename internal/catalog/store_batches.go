package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewBatch inserts a batch row and returns it.
func (s *Store) NewBatch(ctx context.Context, label string) (*Batch, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	if _, err := s.exec(
		ctx,
		`INSERT INTO batches (id, label, created_at) VALUES (?, ?, ?)`,
		id,
		nullableString(label),
		now.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	return s.GetBatch(ctx, id)
}

// GetBatch fetches a batch by identifier.
func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

// ListBatches returns all batches ordered by creation time.
func (s *Store) ListBatches(ctx context.Context) ([]*Batch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// MarkBatchCancelled stamps the batch cancelled. Returns false when the batch
// does not exist or was already cancelled.
func (s *Store) MarkBatchCancelled(ctx context.Context, id string) (bool, error) {
	res, err := s.exec(
		ctx,
		`UPDATE batches SET cancelled_at = ? WHERE id = ? AND cancelled_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("cancel batch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteBatch removes a batch and, via the schema's cascade, its records.
// It returns the number of records removed with the batch.
func (s *Store) DeleteBatch(ctx context.Context, id string) (int64, error) {
	var recordCount int64
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM records WHERE batch_id = ?`, id)
	if err := row.Scan(&recordCount); err != nil {
		return 0, fmt.Errorf("count batch records: %w", err)
	}

	res, err := s.exec(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete batch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return 0, nil
	}
	return recordCount, nil
}

// BatchStats returns record counts by status for one batch.
func (s *Store) BatchStats(ctx context.Context, batchID string) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM records WHERE batch_id = ? GROUP BY status`, batchID)
	if err != nil {
		return nil, fmt.Errorf("batch stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
