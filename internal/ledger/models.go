package ledger

import "time"

// Status is the overall state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// Run is one pipeline execution.
type Run struct {
	ID              string
	Title           string
	VideoPath       string
	VideoURL        string
	Recipient       string
	ManifestPath    string
	OutputDir       string
	Status          Status
	Phase           string
	ErrorMessage    string
	Segments        int
	Screenshots     int
	CaptureFailures int
	BatchesTotal    int
	BatchesSent     int
	BatchesFailed   int
	RemoteStatus    string
	StartedAt       time.Time
	UpdatedAt       time.Time
	FinishedAt      *time.Time
}

// Summary carries the counters written when a run finishes.
type Summary struct {
	Status          Status
	ErrorMessage    string
	Segments        int
	Screenshots     int
	CaptureFailures int
	BatchesTotal    int
	BatchesSent     int
	BatchesFailed   int
	RemoteStatus    string
}

// Receipt is the persisted outcome of one notification batch.
type Receipt struct {
	BatchIndex int
	BatchTotal int
	Status     string
	Reason     string
	Images     int
	Skipped    int
	RecordedAt time.Time
}
