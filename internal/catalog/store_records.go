package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewRecord inserts a pending record for a staged image awaiting analysis.
func (s *Store) NewRecord(ctx context.Context, batchID, sourcePath, originalName, hint string) (*Record, error) {
	if batchID == "" {
		return nil, errors.New("batch id is required")
	}
	if sourcePath == "" {
		return nil, errors.New("source path is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.exec(
		ctx,
		`INSERT INTO records (
            batch_id, source_path, original_name, hint, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batchID,
		sourcePath,
		originalName,
		nullableString(hint),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a catalog record by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// Update persists changes to an existing catalog record.
func (s *Store) Update(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("record is nil")
	}
	fieldsValue, err := marshalFields(record.Fields)
	if err != nil {
		return err
	}
	failureValue, err := marshalFailure(record.Failure)
	if err != nil {
		return err
	}
	record.UpdatedAt = time.Now().UTC()
	if _, err := s.exec(
		ctx,
		`UPDATE records
         SET batch_id = ?, source_path = ?, original_name = ?, hint = ?,
             fields_json = ?, status = ?, failure_json = ?,
             finalized_at = ?, uploaded_at = ?, updated_at = ?
         WHERE id = ?`,
		record.BatchID,
		record.SourcePath,
		record.OriginalName,
		nullableString(record.Hint),
		fieldsValue,
		record.Status,
		failureValue,
		nullableTime(record.FinalizedAt),
		nullableTime(record.UploadedAt),
		record.UpdatedAt.Format(time.RFC3339Nano),
		record.ID,
	); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// UpdateIf persists the record only while its stored status still matches
// expected, the same guard Claim uses. It returns false when a concurrent
// transition (a cancellation, a claim) won the race; the caller's in-memory
// record is stale in that case and nothing was written.
func (s *Store) UpdateIf(ctx context.Context, record *Record, expected Status) (bool, error) {
	if record == nil {
		return false, errors.New("record is nil")
	}
	fieldsValue, err := marshalFields(record.Fields)
	if err != nil {
		return false, err
	}
	failureValue, err := marshalFailure(record.Failure)
	if err != nil {
		return false, err
	}
	record.UpdatedAt = time.Now().UTC()
	res, err := s.exec(
		ctx,
		`UPDATE records
         SET batch_id = ?, source_path = ?, original_name = ?, hint = ?,
             fields_json = ?, status = ?, failure_json = ?,
             finalized_at = ?, uploaded_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		record.BatchID,
		record.SourcePath,
		record.OriginalName,
		nullableString(record.Hint),
		fieldsValue,
		record.Status,
		failureValue,
		nullableTime(record.FinalizedAt),
		nullableTime(record.UploadedAt),
		record.UpdatedAt.Format(time.RFC3339Nano),
		record.ID,
		expected,
	)
	if err != nil {
		return false, fmt.Errorf("update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RecordsByStatus returns records matching a status ordered by creation time.
func (s *Store) RecordsByStatus(ctx context.Context, status Status) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM records WHERE status = ? ORDER BY created_at, id`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// List returns records filtered by status set (or all records when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordColumns + ` FROM records`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListByBatch returns a batch's records, optionally filtered by status.
func (s *Store) ListByBatch(ctx context.Context, batchID string, statuses ...Status) ([]*Record, error) {
	baseQuery := `SELECT ` + recordColumns + ` FROM records WHERE batch_id = ?`
	orderClause := ` ORDER BY created_at, id`

	args := []any{batchID}
	query := baseQuery
	if len(statuses) > 0 {
		placeholders := makePlaceholders(len(statuses))
		query += ` AND status IN (` + placeholders + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	rows, err := s.db.QueryContext(ctx, query+orderClause, args...)
	if err != nil {
		return nil, fmt.Errorf("list batch records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// NextForStatuses returns the oldest record matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Record, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + recordColumns + ` FROM records WHERE status IN (` + placeholders + `) ORDER BY created_at, id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Remove deletes a record by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes completed records from the catalog.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM records WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed records from the catalog.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM records WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

func collectRecords(rows *sql.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
