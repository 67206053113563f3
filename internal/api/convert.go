package api

import (
	"slices"
	"time"

	"darkroom/internal/catalog"
	"darkroom/internal/deps"
	"darkroom/internal/pipeline"
	"darkroom/internal/stage"
)

// FromRecord converts a catalog record to its API representation.
func FromRecord(record *catalog.Record) Record {
	if record == nil {
		return Record{}
	}

	dto := Record{
		ID:           record.ID,
		BatchID:      record.BatchID,
		SourcePath:   record.SourcePath,
		OriginalName: record.OriginalName,
		Hint:         record.Hint,
		Status:       string(record.Status),
	}
	if record.Fields != nil {
		dto.Fields = &MetadataFields{
			Title:       record.Fields.Title,
			Description: record.Fields.Description,
			Keywords:    slices.Clone(record.Fields.Keywords),
			Category:    record.Fields.Category,
		}
	}
	if record.Failure != nil {
		dto.Failure = &Failure{
			Stage:      record.Failure.Stage,
			Kind:       record.Failure.Kind,
			Message:    record.Failure.Message,
			RetryCount: record.Failure.RetryCount,
		}
	}
	dto.CreatedAt = FormatTime(record.CreatedAt)
	dto.UpdatedAt = FormatTime(record.UpdatedAt)
	if record.FinalizedAt != nil {
		dto.FinalizedAt = FormatTime(*record.FinalizedAt)
	}
	if record.UploadedAt != nil {
		dto.UploadedAt = FormatTime(*record.UploadedAt)
	}
	return dto
}

// FromRecords converts a slice of catalog records into API DTOs.
func FromRecords(records []*catalog.Record) []Record {
	if len(records) == 0 {
		return nil
	}
	out := make([]Record, 0, len(records))
	for _, record := range records {
		out = append(out, FromRecord(record))
	}
	return out
}

// ToMetadataFields converts wire-format fields back into the catalog shape.
func ToMetadataFields(fields MetadataFields) catalog.MetadataFields {
	return catalog.MetadataFields{
		Title:       fields.Title,
		Description: fields.Description,
		Keywords:    slices.Clone(fields.Keywords),
		Category:    fields.Category,
	}
}

// FromBatch converts a catalog batch to its API representation.
func FromBatch(batch *catalog.Batch) Batch {
	if batch == nil {
		return Batch{}
	}
	dto := Batch{
		ID:        batch.ID,
		Label:     batch.Label,
		CreatedAt: FormatTime(batch.CreatedAt),
	}
	if batch.CancelledAt != nil {
		dto.CancelledAt = FormatTime(*batch.CancelledAt)
	}
	return dto
}

// FromBatches converts a slice of catalog batches into API DTOs.
func FromBatches(batches []*catalog.Batch) []Batch {
	if len(batches) == 0 {
		return nil
	}
	out := make([]Batch, 0, len(batches))
	for _, batch := range batches {
		out = append(out, FromBatch(batch))
	}
	return out
}

// FromStatusSummary converts a pipeline status summary to API payload.
func FromStatusSummary(summary pipeline.StatusSummary) PipelineStatus {
	status := PipelineStatus{
		Running:     summary.Running,
		QueueStats:  MergeCatalogStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		status.LastError = summary.LastError
	}
	if summary.LastRecord != nil {
		last := FromRecord(summary.LastRecord)
		status.LastRecord = &last
	}
	return status
}

// MergeCatalogStats produces a string-keyed representation of catalog stats.
func MergeCatalogStats(stats map[catalog.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromDependencyStatuses converts dependency probe results into API DTOs.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		severity := "ok"
		if !status.Available {
			severity = "error"
			if status.Optional {
				severity = "warn"
			}
		}
		out = append(out, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
			Severity:    severity,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
