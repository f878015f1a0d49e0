package protocol

import "time"

// RunKind distinguishes the two orchestrator flows.
type RunKind string

const (
	RunClustering RunKind = "clustering"
	RunQuery      RunKind = "query"
)

// RunState tracks a run through the pipeline. A run either completes the
// sequence or fails a state and stops; there are no retries within a run.
type RunState string

const (
	RunFetching    RunState = "fetching"
	RunAnalyzing   RunState = "analyzing"
	RunReconciling RunState = "reconciling"
	RunEnriching   RunState = "enriching"
	RunRendering   RunState = "rendering"
	RunSent        RunState = "sent"
	RunSkipped     RunState = "skipped"
	RunFailed      RunState = "failed"
)

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	return s == RunSent || s == RunSkipped || s == RunFailed
}

// RunRecord is the persisted outcome of one orchestrator run.
type RunRecord struct {
	ID           string    `json:"id"`
	Kind         RunKind   `json:"kind"`
	State        RunState  `json:"state"`
	Query        string    `json:"query,omitempty"`
	TicketCount  int       `json:"ticket_count"`
	GroupCount   int       `json:"group_count"`
	AlertedCount int       `json:"alerted_count"`
	Note         string    `json:"note,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}
