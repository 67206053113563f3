package catalog

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a catalog record.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAnalyzing    Status = "analyzing"
	StatusReviewReady  Status = "review_ready"
	StatusFinalized    Status = "finalized"
	StatusEmbedding    Status = "embedding"
	StatusEmbedded     Status = "embedded"
	StatusTransferring Status = "transferring"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusSkipped      Status = "skipped"
)

// Stage names referenced by failure records and retry routing.
const (
	StageAnalysis = "analysis"
	StageEmbed    = "embed"
	StageTransfer = "transfer"
)

// InterruptedMessage is the failure message set when a daemon crash leaves a
// record mid-embed with no way to verify how far the header write got.
const InterruptedMessage = "interrupted during embed; verify the staged file and retry"

var allStatuses = []Status{
	StatusPending,
	StatusAnalyzing,
	StatusReviewReady,
	StatusFinalized,
	StatusEmbedding,
	StatusEmbedded,
	StatusTransferring,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusAnalyzing:    {},
	StatusEmbedding:    {},
	StatusTransferring: {},
}

// queuedStatuses are the states a record rests in while waiting for a worker
// or an operator. Cancellation skips records in these states immediately.
var queuedStatuses = []Status{
	StatusPending,
	StatusReviewReady,
	StatusFinalized,
	StatusEmbedded,
}

// failedStageQueues maps the stage a record failed in back to the queue state
// a manual retry re-enters.
var failedStageQueues = map[string]Status{
	StageAnalysis: StatusPending,
	StageEmbed:    StatusFinalized,
	StageTransfer: StatusEmbedded,
}

// MetadataFields holds the agency-facing metadata embedded into each image.
type MetadataFields struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// Clone returns a deep copy so callers can mutate drafts without aliasing.
func (f *MetadataFields) Clone() *MetadataFields {
	if f == nil {
		return nil
	}
	cp := *f
	if f.Keywords != nil {
		cp.Keywords = append([]string(nil), f.Keywords...)
	}
	return &cp
}

// Failure captures why a record stopped progressing and how many automatic
// retries the stage burned before giving up.
type Failure struct {
	Stage      string `json:"stage"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	RetryCount int    `json:"retry_count,omitempty"`
}

// Record represents one image moving through the pipeline, persisted in SQLite.
type Record struct {
	ID           int64
	BatchID      string
	SourcePath   string
	OriginalName string
	Hint         string
	Fields       *MetadataFields
	Status       Status
	Failure      *Failure
	FinalizedAt  *time.Time
	UploadedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Batch groups records submitted together.
type Batch struct {
	ID          string
	Label       string
	CreatedAt   time.Time
	CancelledAt *time.Time
}

// Cancelled reports whether the batch has been cancelled.
func (b *Batch) Cancelled() bool {
	return b != nil && b.CancelledAt != nil
}

// DatabaseHealth captures diagnostic information about the catalog database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalRecords     int
	Error            string
}

// HealthSummary describes aggregated record counts per key lifecycle states.
type HealthSummary struct {
	Total       int
	Pending     int
	Processing  int
	ReviewReady int
	Failed      int
	Completed   int
	Skipped     int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// QueuedStatuses returns the states cancellation clears immediately.
func QueuedStatuses() []Status {
	cp := make([]Status, len(queuedStatuses))
	copy(cp, queuedStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (r Record) IsProcessing() bool {
	_, ok := processingStatuses[r.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a record has left the pipeline for good.
func (r Record) IsTerminal() bool {
	switch r.Status {
	case StatusCompleted, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// QueueStatusForFailedStage maps a failure stage name to the queue state a
// manual retry should re-enter.
func QueueStatusForFailedStage(stage string) (Status, bool) {
	status, ok := failedStageQueues[strings.ToLower(strings.TrimSpace(stage))]
	return status, ok
}

// SetFailure stamps the record failed with structured failure detail.
func (r *Record) SetFailure(stage, kind, message string, retryCount int) {
	r.Status = StatusFailed
	r.Failure = &Failure{
		Stage:      stage,
		Kind:       kind,
		Message:    message,
		RetryCount: retryCount,
	}
}

// ClearFailure removes failure detail, typically before a manual retry.
func (r *Record) ClearFailure() {
	r.Failure = nil
}

// ProcessingLane partitions pipeline work into the analysis queue and the
// post-review delivery queue.
type ProcessingLane string

const (
	LaneAnalysis ProcessingLane = "analysis"
	LaneDelivery ProcessingLane = "delivery"
)

// LaneForStatus maps a record status to the lane that owns it.
func LaneForStatus(status Status) ProcessingLane {
	switch status {
	case StatusPending, StatusAnalyzing, StatusReviewReady:
		return LaneAnalysis
	case StatusFinalized, StatusEmbedding, StatusEmbedded, StatusTransferring, StatusCompleted:
		return LaneDelivery
	default:
		return LaneAnalysis
	}
}
