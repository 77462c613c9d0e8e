package agent

import (
	"encoding/json"
	"strings"
	"time"
)

// RunState is the lifecycle state of a task execution.
type RunState string

const (
	StateInit              RunState = "init"
	StateRunning           RunState = "running"
	StateCompleted         RunState = "completed"
	StateIterationExceeded RunState = "iteration_exceeded"
	StateFailed            RunState = "failed"
)

// Terminal reports whether the run has finished.
func (s RunState) Terminal() bool {
	switch s {
	case StateCompleted, StateIterationExceeded, StateFailed:
		return true
	}
	return false
}

// TaskRequest describes one code task to execute.
type TaskRequest struct {
	// Description is the natural-language task for the model.
	Description string

	// Dir is the working directory all file and command operations are
	// confined to.
	Dir string

	// ContextFiles are workspace-relative paths injected into the system
	// prompt before the run starts. Missing files are skipped with a
	// warning, not an error.
	ContextFiles []string

	// MaxIterations caps the number of tool-exchange rounds. Zero means
	// the executor's default.
	MaxIterations int
}

// Validate rejects malformed requests before any run state is created.
func (r TaskRequest) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return &ValidationError{Field: "description", Msg: "must not be empty"}
	}
	if r.Dir == "" {
		return &ValidationError{Field: "dir", Msg: "must not be empty"}
	}
	if r.MaxIterations < 0 {
		return &ValidationError{Field: "max_iterations", Msg: "must not be negative"}
	}
	return nil
}

// ToolInvocation records one tool call made during a run. Result is
// truncated for the record; the model saw the full output.
type ToolInvocation struct {
	Tool      string          `json:"tool"`
	Input     json.RawMessage `json:"input"`
	Result    string          `json:"result"`
	Iteration int             `json:"iteration"`
	IsError   bool            `json:"is_error,omitempty"`
}

// ExecutionRecord is the complete account of one task run.
type ExecutionRecord struct {
	ID               string           `json:"id"`
	TaskDescription  string           `json:"task_description"`
	WorkingDirectory string           `json:"working_directory"`
	State            RunState         `json:"state"`
	Success          bool             `json:"success"`
	Iterations       int              `json:"iterations"`
	ToolInvocations  []ToolInvocation `json:"tool_invocations"`
	FileChanges      ChangeSummary    `json:"file_changes"`
	Duration         time.Duration    `json:"duration"`
	StartedAt        time.Time        `json:"started_at"`
	FinalMessage     string           `json:"final_message,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// Clone returns a deep copy so callers can hold a record without racing
// against an in-progress run.
func (r *ExecutionRecord) Clone() *ExecutionRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.ToolInvocations = make([]ToolInvocation, len(r.ToolInvocations))
	copy(out.ToolInvocations, r.ToolInvocations)
	out.FileChanges = r.FileChanges.clone()
	return &out
}
