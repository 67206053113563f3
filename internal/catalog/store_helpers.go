package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const recordColumns = "id, batch_id, source_path, original_name, hint, fields_json, status, failure_json, finalized_at, uploaded_at, created_at, updated_at"

const batchColumns = "id, label, created_at, cancelled_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		batchID      string
		sourcePath   string
		originalName string
		hint         sql.NullString
		fieldsJSON   sql.NullString
		statusStr    string
		failureJSON  sql.NullString
		finalizedRaw sql.NullString
		uploadedRaw  sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&batchID,
		&sourcePath,
		&originalName,
		&hint,
		&fieldsJSON,
		&statusStr,
		&failureJSON,
		&finalizedRaw,
		&uploadedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:           id,
		BatchID:      batchID,
		SourcePath:   sourcePath,
		OriginalName: originalName,
		Hint:         hint.String,
		Status:       Status(statusStr),
	}

	if fieldsJSON.Valid && fieldsJSON.String != "" {
		fields := &MetadataFields{}
		if err := json.Unmarshal([]byte(fieldsJSON.String), fields); err != nil {
			return nil, fmt.Errorf("decode fields for record %d: %w", id, err)
		}
		record.Fields = fields
	}
	if failureJSON.Valid && failureJSON.String != "" {
		failure := &Failure{}
		if err := json.Unmarshal([]byte(failureJSON.String), failure); err != nil {
			return nil, fmt.Errorf("decode failure for record %d: %w", id, err)
		}
		record.Failure = failure
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	if finalizedRaw.Valid {
		if finalized, err := parseTimeString(finalizedRaw.String); err == nil {
			record.FinalizedAt = &finalized
		}
	}
	if uploadedRaw.Valid {
		if uploaded, err := parseTimeString(uploadedRaw.String); err == nil {
			record.UploadedAt = &uploaded
		}
	}
	return record, nil
}

func scanBatch(scanner interface{ Scan(dest ...any) error }) (*Batch, error) {
	var (
		id           string
		label        sql.NullString
		createdRaw   sql.NullString
		cancelledRaw sql.NullString
	)
	if err := scanner.Scan(&id, &label, &createdRaw, &cancelledRaw); err != nil {
		return nil, err
	}
	batch := &Batch{ID: id, Label: label.String}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		batch.CreatedAt = created
	}
	if cancelledRaw.Valid {
		if cancelled, err := parseTimeString(cancelledRaw.String); err == nil {
			batch.CancelledAt = &cancelled
		}
	}
	return batch, nil
}

func marshalFields(fields *MetadataFields) (any, error) {
	if fields == nil {
		return nil, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

func marshalFailure(failure *Failure) (any, error) {
	if failure == nil {
		return nil, nil
	}
	data, err := json.Marshal(failure)
	if err != nil {
		return nil, fmt.Errorf("marshal failure: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
