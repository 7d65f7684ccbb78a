package model

import "time"

// SchemaVersion is the version of the output document layout.
// Bump it whenever a field consumed downstream changes meaning.
const SchemaVersion = "3.0"

// RunStatus is the outcome of a run as recorded in the document.
type RunStatus string

const (
	// RunStatusRunning is the status of a run that has not finished yet.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted means the iteration budget was exhausted normally.
	// A completed run may still hold zero posts.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed means authentication, navigation or discovery
	// aborted the run. Posts collected before the failure are kept.
	RunStatusFailed RunStatus = "failed"
	// RunStatusInterrupted means the run was cancelled by the user.
	RunStatusInterrupted RunStatus = "interrupted"
)

// Meta describes where and when a document was captured.
type Meta struct {
	CapturedAt    time.Time `json:"captured_at"`
	FinishedAt    time.Time `json:"finished_at,omitzero"`
	Source        string    `json:"source"`
	SchemaVersion string    `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Surface       string    `json:"surface,omitempty"`
	Status        RunStatus `json:"status"`

	// Failure is the reason an aborted run stopped.
	Failure string `json:"failure,omitempty"`

	// CredentialRefreshed is true when a manual login replaced the
	// stored session during the run.
	CredentialRefreshed bool `json:"credential_refreshed,omitempty"`

	// Steps lists the pipeline steps that ran.
	Steps []string `json:"steps,omitempty"`
}

// Document is the output of one run, consumed by the recommendation tooling.
type Document struct {
	Meta       Meta                 `json:"meta"`
	Posts      []PostRecord         `json:"posts"`
	Statistics *AggregateStatistics `json:"statistics"`
}

// Failed reports whether the run behind the document was aborted.
func (d *Document) Failed() bool {
	return d.Meta.Status == RunStatusFailed || d.Meta.Status == RunStatusInterrupted
}
