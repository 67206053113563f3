package ipc

import "darkroom/internal/api"

// StartRequest triggers pipeline startup.
type StartRequest struct{}

// StartResponse indicates whether the pipeline was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops pipeline processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Record mirrors the shared record DTO for IPC callers.
type Record = api.Record

// Batch mirrors the shared batch DTO for IPC callers.
type Batch = api.Batch

// MetadataFields mirrors the shared metadata DTO for IPC callers.
type MetadataFields = api.MetadataFields

// StageHealth describes readiness of a pipeline stage.
type StageHealth = api.StageHealth

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// StatusResponse represents combined daemon/pipeline status information.
// SystemChecks, WorkspaceChecks, and DependencySummary are filled in on the
// client side by daemonctl.BuildStatusSnapshot so status output stays useful
// when the daemon is offline.
type StatusResponse struct {
	Running           bool                  `json:"running"`
	PID               int                   `json:"pid"`
	QueueStats        map[string]int        `json:"queueStats"`
	LastError         string                `json:"lastError"`
	LastRecord        *Record               `json:"lastRecord"`
	CatalogPath       string                `json:"catalogPath"`
	LockPath          string                `json:"lockPath"`
	SocketPath        string                `json:"socketPath"`
	StageHealth       []StageHealth         `json:"stageHealth"`
	Dependencies      []DependencyStatus    `json:"dependencies"`
	SystemChecks      []api.StatusLine      `json:"systemChecks,omitempty"`
	WorkspaceChecks   []api.StatusLine      `json:"workspaceChecks,omitempty"`
	DependencySummary api.DependencySummary `json:"dependencySummary,omitzero"`
}

// SubmitRequest stages source images as a batch. An empty BatchID creates a
// new batch; Hints are keyed by source path as submitted.
type SubmitRequest struct {
	BatchID string            `json:"batchId"`
	Label   string            `json:"label"`
	Sources []string          `json:"sources"`
	Hints   map[string]string `json:"hints"`
}

// SubmitResponse returns the batch and the records created for it.
type SubmitResponse struct {
	Batch   Batch    `json:"batch"`
	Records []Record `json:"records"`
}

// DescribeRecordRequest fetches a single record by id.
type DescribeRecordRequest struct {
	ID int64 `json:"id"`
}

// DescribeRecordResponse contains a single record.
type DescribeRecordResponse struct {
	Record Record `json:"record"`
}

// EditFieldsRequest replaces the metadata fields on a reviewable record.
type EditFieldsRequest struct {
	ID     int64          `json:"id"`
	Fields MetadataFields `json:"fields"`
}

// EditFieldsResponse returns the record after normalization and validation.
type EditFieldsResponse struct {
	Record Record `json:"record"`
}

// ReanalyzeRequest queues a reviewable record for a fresh analysis pass. An
// empty hint keeps the record's existing hint.
type ReanalyzeRequest struct {
	ID   int64  `json:"id"`
	Hint string `json:"hint"`
}

// ReanalyzeResponse returns the re-queued record.
type ReanalyzeResponse struct {
	Record Record `json:"record"`
}

// FinalizeRequest approves a reviewed record for delivery.
type FinalizeRequest struct {
	ID int64 `json:"id"`
}

// FinalizeResponse returns the finalized record.
type FinalizeResponse struct {
	Record Record `json:"record"`
}

// FinalizeBatchRequest approves every reviewable record in a batch.
type FinalizeBatchRequest struct {
	BatchID string `json:"batchId"`
}

// FinalizeBatchResponse reports the number of records finalized.
type FinalizeBatchResponse struct {
	Finalized int64 `json:"finalized"`
}

// RetryRequest re-queues a failed record at the stage that failed.
type RetryRequest struct {
	ID int64 `json:"id"`
}

// RetryResponse returns the re-queued record.
type RetryResponse struct {
	Record Record `json:"record"`
}

// BatchStatusRequest fetches a point-in-time view of a batch.
type BatchStatusRequest struct {
	BatchID string `json:"batchId"`
}

// BatchStatusResponse contains the batch, per-status counts, and its records,
// all derived from a single catalog read.
type BatchStatusResponse struct {
	Batch   Batch          `json:"batch"`
	Counts  map[string]int `json:"counts"`
	Records []Record       `json:"records"`
}

// CancelBatchRequest cancels a batch and skips its queued records.
type CancelBatchRequest struct {
	BatchID string `json:"batchId"`
}

// CancelBatchResponse reports the number of records skipped.
type CancelBatchResponse struct {
	Skipped int64 `json:"skipped"`
}

// DiscardBatchRequest cancels a batch and deletes its records along with the
// staged files.
type DiscardBatchRequest struct {
	BatchID string `json:"batchId"`
}

// DiscardBatchResponse reports the number of records removed.
type DiscardBatchResponse struct {
	Removed int64 `json:"removed"`
}

// ListBatchesRequest lists known batches.
type ListBatchesRequest struct{}

// ListBatchesResponse contains batches in creation order.
type ListBatchesResponse struct {
	Batches []Batch `json:"batches"`
}

// ListRecordsRequest filters record listing by status. Empty means all.
type ListRecordsRequest struct {
	Statuses []string `json:"statuses"`
}

// ListRecordsResponse contains catalog records.
type ListRecordsResponse struct {
	Records []Record `json:"records"`
}

// ClearCompletedRequest removes completed records.
type ClearCompletedRequest struct{}

// ClearCompletedResponse reports number of removed records.
type ClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// ClearFailedRequest removes failed records.
type ClearFailedRequest struct{}

// ClearFailedResponse reports number of removed records.
type ClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// ReclaimStaleRequest re-queues records stranded in processing statuses.
type ReclaimStaleRequest struct{}

// ReclaimStaleResponse reports number of records reclaimed.
type ReclaimStaleResponse struct {
	Updated int64 `json:"updated"`
}

// StoreHealthRequest fetches catalog diagnostics.
type StoreHealthRequest struct{}

// StoreHealthResponse reports record counts and database diagnostics.
type StoreHealthResponse struct {
	Counts   CatalogCounts  `json:"counts"`
	Database DatabaseHealth `json:"database"`
}

// CatalogCounts aggregates record totals per lifecycle state.
type CatalogCounts struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Processing  int `json:"processing"`
	ReviewReady int `json:"reviewReady"`
	Failed      int `json:"failed"`
	Completed   int `json:"completed"`
	Skipped     int `json:"skipped"`
}

// DatabaseHealth reports database-level diagnostics.
type DatabaseHealth struct {
	DBPath           string   `json:"dbPath"`
	DatabaseExists   bool     `json:"databaseExists"`
	DatabaseReadable bool     `json:"databaseReadable"`
	SchemaVersion    string   `json:"schemaVersion"`
	TableExists      bool     `json:"tableExists"`
	ColumnsPresent   []string `json:"columnsPresent"`
	MissingColumns   []string `json:"missingColumns"`
	IntegrityCheck   bool     `json:"integrityCheck"`
	TotalRecords     int      `json:"totalRecords"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// LogTailRequest fetches daemon log lines by offset. A negative offset asks
// for the last Limit lines; Follow lets the daemon hold the request up to
// WaitMillis while it waits for new lines.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
