package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Record describes a catalog record in a transport-friendly format.
type Record struct {
	ID           int64           `json:"id"`
	BatchID      string          `json:"batchId"`
	SourcePath   string          `json:"sourcePath"`
	OriginalName string          `json:"originalName"`
	Hint         string          `json:"hint,omitempty"`
	Status       string          `json:"status"`
	Fields       *MetadataFields `json:"fields,omitempty"`
	Failure      *Failure        `json:"failure,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
	FinalizedAt  string          `json:"finalizedAt,omitempty"`
	UploadedAt   string          `json:"uploadedAt,omitempty"`
}

// MetadataFields carries the generated or operator-edited metadata.
type MetadataFields struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// Failure describes the most recent stage failure for a record.
type Failure struct {
	Stage      string `json:"stage"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	RetryCount int    `json:"retryCount,omitempty"`
}

// Batch describes a submission batch.
type Batch struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	CancelledAt string `json:"cancelledAt,omitempty"`
}

// BatchSnapshot is a point-in-time view of a batch and its records.
type BatchSnapshot struct {
	Batch   Batch          `json:"batch"`
	Counts  map[string]int `json:"counts"`
	Records []Record       `json:"records"`
}

// PipelineStatus summarizes pipeline execution state.
type PipelineStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastRecord  *Record        `json:"lastRecord,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency. Severity
// mirrors the StatusLine scale and is derived from Optional and Available.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// StatusLine is a labelled check result for status displays. Severity is one
// of "ok", "warn", "error", or "info".
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail,omitempty"`
}

// DependencySummary aggregates dependency readiness for status displays.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail,omitempty"`
}
