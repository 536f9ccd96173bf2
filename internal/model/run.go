package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one CLI stage invocation (or a full daily chain).
type Run struct {
	ID        string     `json:"id"`
	Command   string     `json:"command"`
	Args      string     `json:"args,omitempty"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FailedStage names the first failed phase of a finished run, or
// "unknown" when the result records none.
func (r Run) FailedStage() string {
	if r.Result != nil {
		for _, p := range r.Result.Phases {
			if p.Status == PhaseStatusFailed {
				return p.Name
			}
		}
	}
	return "unknown"
}

// Duration is the wall time between creation and the last update.
func (r Run) Duration() time.Duration {
	if r.UpdatedAt.Before(r.CreatedAt) {
		return 0
	}
	return r.UpdatedAt.Sub(r.CreatedAt)
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	RowsWritten int           `json:"rows_written"`
	RowsDropped int           `json:"rows_dropped"`
	Phases      []PhaseResult `json:"phases"`
	Error       string        `json:"error,omitempty"`
}

// RunPhase represents a stage within a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseStatus represents the current state of a stage.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of a stage.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Rows     int            `json:"rows"`
	Dropped  int            `json:"dropped"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
