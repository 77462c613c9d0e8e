// Package service exposes the code task executor and its supporting file
// operations as a set of boundary operations: execute a task, read or search
// a codebase, apply batch file modifications, run commands, and inspect
// execution status. Each operation takes typed parameters and returns a
// typed, JSON-serializable result.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/martinemde/codetask/agent"
	"github.com/martinemde/codetask/llm"
)

// Per-operation bounds, matching the agent-side tool limits where the same
// data crosses both boundaries.
const (
	defaultMaxFiles      = 50
	maxFileContentBytes  = 10_000
	defaultMaxResults    = 100
	commandOutputLimit   = 1000
	defaultCommandTimeout = 30 * time.Second
)

// Service wires the executor and workspace operations behind one boundary.
type Service struct {
	executor   *agent.Executor
	defaultDir string
	logger     *slog.Logger
}

// New creates a Service from a configured LLM client.
func New(client *llm.Client, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []agent.ExecutorOption{
		agent.WithHistory(agent.NewHistory(cfg.HistoryLimit)),
	}
	if cfg.Model != "" {
		opts = append(opts, agent.WithModel(cfg.Model))
	}
	if cfg.Provider != "" {
		opts = append(opts, agent.WithExecutorProvider(cfg.Provider))
	}
	if cfg.MaxIterations > 0 {
		opts = append(opts, agent.WithMaxIterations(cfg.MaxIterations))
	}
	return &Service{
		executor:   agent.NewExecutor(client, opts...),
		defaultDir: cfg.WorkDir,
		logger:     logger,
	}
}

// NewWithExecutor creates a Service around an existing executor.
func NewWithExecutor(executor *agent.Executor, defaultDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{executor: executor, defaultDir: defaultDir, logger: logger}
}

func (s *Service) dir(override string) string {
	if override != "" {
		return override
	}
	return s.defaultDir
}

// ExecuteTaskParams are the inputs for ExecuteCodeTask.
type ExecuteTaskParams struct {
	TaskDescription  string   `json:"task_description"`
	WorkingDirectory string   `json:"working_directory,omitempty"`
	ContextFiles     []string `json:"context_files,omitempty"`
	MaxIterations    int      `json:"max_iterations,omitempty"`
}

// ExecuteCodeTask runs one agentic code task to completion and returns its
// execution record. A failed run still returns its record alongside the
// error; a rejected request (validation, busy) returns no record.
func (s *Service) ExecuteCodeTask(ctx context.Context, params ExecuteTaskParams) (*agent.ExecutionRecord, error) {
	req := agent.TaskRequest{
		Description:   params.TaskDescription,
		Dir:           s.dir(params.WorkingDirectory),
		ContextFiles:  params.ContextFiles,
		MaxIterations: params.MaxIterations,
	}
	s.logger.Info("executing task",
		"dir", req.Dir,
		"task", truncateLog(req.Description, 100))

	record, err := s.executor.Execute(ctx, req)
	if err != nil {
		s.logger.Error("task execution failed", "error", err)
		return record, err
	}
	s.logger.Info("task finished",
		"id", record.ID,
		"state", string(record.State),
		"iterations", record.Iterations,
		"duration", record.Duration)
	return record, nil
}

// ReadCodebaseParams are the inputs for ReadCodebase.
type ReadCodebaseParams struct {
	Patterns         []string `json:"patterns"`
	WorkingDirectory string   `json:"working_directory,omitempty"`
	MaxFiles         int      `json:"max_files,omitempty"`
}

// FileContent is one file returned by ReadCodebase. Size is the full size;
// Content is capped with a truncation marker when the file is larger.
type FileContent struct {
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Content string `json:"content"`
}

// ReadCodebaseResult is the output of ReadCodebase.
type ReadCodebaseResult struct {
	FilesRead int           `json:"files_read"`
	Files     []FileContent `json:"files"`
}

// ReadCodebase reads files matching the given glob patterns, capped at
// MaxFiles across all patterns. Unreadable files are skipped with a warning.
func (s *Service) ReadCodebase(params ReadCodebaseParams) (*ReadCodebaseResult, error) {
	if len(params.Patterns) == 0 {
		return nil, &agent.ValidationError{Field: "patterns", Msg: "must not be empty"}
	}
	ws, err := agent.NewWorkspace(s.dir(params.WorkingDirectory))
	if err != nil {
		return nil, err
	}
	maxFiles := params.MaxFiles
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}

	result := &ReadCodebaseResult{Files: []FileContent{}}
	seen := map[string]bool{}
	for _, pattern := range params.Patterns {
		if len(result.Files) >= maxFiles {
			break
		}
		paths, err := ws.ListFiles(pattern, "", maxFiles-len(result.Files))
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if seen[path] {
				continue
			}
			seen[path] = true
			content, err := ws.ReadFile(path)
			if err != nil {
				s.logger.Warn("failed to read file", "path", path, "error", err)
				continue
			}
			result.Files = append(result.Files, FileContent{
				Path:    path,
				Size:    len(content),
				Content: agent.TruncateOutput(content, maxFileContentBytes, agent.TruncateHeadTail),
			})
			if len(result.Files) >= maxFiles {
				break
			}
		}
	}
	result.FilesRead = len(result.Files)
	return result, nil
}

// SearchCodeParams are the inputs for SearchCode.
type SearchCodeParams struct {
	Query            string `json:"query"`
	WorkingDirectory string `json:"working_directory,omitempty"`
	FilePattern      string `json:"file_pattern,omitempty"`
	CaseSensitive    *bool  `json:"case_sensitive,omitempty"`
	MaxResults       int    `json:"max_results,omitempty"`
}

// SearchCodeResult is the output of SearchCode. Matches are formatted as
// "path:line:text".
type SearchCodeResult struct {
	Query        string   `json:"query"`
	TotalMatches int      `json:"total_matches"`
	Matches      []string `json:"matches"`
}

// SearchCode searches file contents with a regex.
func (s *Service) SearchCode(params SearchCodeParams) (*SearchCodeResult, error) {
	if params.Query == "" {
		return nil, &agent.ValidationError{Field: "query", Msg: "must not be empty"}
	}
	ws, err := agent.NewWorkspace(s.dir(params.WorkingDirectory))
	if err != nil {
		return nil, err
	}
	caseSensitive := true
	if params.CaseSensitive != nil {
		caseSensitive = *params.CaseSensitive
	}
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	matches, err := ws.SearchCode(params.Query, params.FilePattern, caseSensitive, maxResults)
	if err != nil {
		return nil, err
	}
	result := &SearchCodeResult{
		Query:        params.Query,
		TotalMatches: len(matches),
		Matches:      make([]string, 0, len(matches)),
	}
	for _, m := range matches {
		result.Matches = append(result.Matches, fmt.Sprintf("%s:%d:%s", m.Path, m.Line, m.Text))
	}
	return result, nil
}

// FileChange is one entry in a ModifyFiles batch.
type FileChange struct {
	Path       string `json:"path"`
	Action     string `json:"action"` // "write", "edit", "delete"
	Content    string `json:"content,omitempty"`
	OldContent string `json:"old_content,omitempty"`
	NewContent string `json:"new_content,omitempty"`
}

// ModificationStatus reports the outcome of one FileChange.
type ModificationStatus struct {
	Path   string `json:"path"`
	Status string `json:"status"` // "written", "edited", "deleted", "error"
	Error  string `json:"error,omitempty"`
}

// ModifyFilesParams are the inputs for ModifyFiles.
type ModifyFilesParams struct {
	Changes          []FileChange `json:"changes"`
	WorkingDirectory string       `json:"working_directory,omitempty"`
}

// ModifyFilesResult is the output of ModifyFiles.
type ModifyFilesResult struct {
	Modifications []ModificationStatus `json:"modifications"`
	FileChanges   agent.ChangeSummary  `json:"file_changes"`
}

// ModifyFiles applies a batch of write, edit, and delete operations. The
// batch is not transactional: each change is applied independently and a
// failed change is reported in place without stopping the rest. The change
// summary covers the whole batch.
func (s *Service) ModifyFiles(params ModifyFilesParams) (*ModifyFilesResult, error) {
	if len(params.Changes) == 0 {
		return nil, &agent.ValidationError{Field: "changes", Msg: "must not be empty"}
	}
	ws, err := agent.NewWorkspace(s.dir(params.WorkingDirectory))
	if err != nil {
		return nil, err
	}
	tracker := agent.NewTracker(ws.Root())

	result := &ModifyFilesResult{Modifications: make([]ModificationStatus, 0, len(params.Changes))}
	for _, change := range params.Changes {
		status, err := applyChange(ws, tracker, change)
		if err != nil {
			s.logger.Warn("file modification failed",
				"path", change.Path, "action", change.Action, "error", err)
			result.Modifications = append(result.Modifications, ModificationStatus{
				Path: change.Path, Status: "error", Error: err.Error(),
			})
			continue
		}
		result.Modifications = append(result.Modifications, ModificationStatus{
			Path: change.Path, Status: status,
		})
	}
	result.FileChanges = tracker.Summarize()
	return result, nil
}

func applyChange(ws *agent.Workspace, tracker *agent.Tracker, change FileChange) (string, error) {
	tracker.SnapshotIfUntracked(change.Path)
	switch change.Action {
	case "write":
		if _, err := ws.WriteFile(change.Path, change.Content); err != nil {
			return "", err
		}
		tracker.RecordAfter(change.Path)
		return "written", nil
	case "edit":
		if err := ws.EditFile(change.Path, change.OldContent, change.NewContent); err != nil {
			return "", err
		}
		tracker.RecordAfter(change.Path)
		return "edited", nil
	case "delete":
		if err := ws.DeleteFile(change.Path); err != nil {
			return "", err
		}
		tracker.RecordAfter(change.Path)
		return "deleted", nil
	default:
		return "", &agent.ValidationError{Field: "action", Msg: fmt.Sprintf("unknown action %q", change.Action)}
	}
}

// RunCommandsParams are the inputs for RunCommands.
type RunCommandsParams struct {
	Commands         []string `json:"commands"`
	WorkingDirectory string   `json:"working_directory,omitempty"`
	TimeoutSeconds   int      `json:"timeout,omitempty"`
}

// CommandOutcome reports one command's result. Stdout and Stderr are capped.
type CommandOutcome struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	TimedOut bool   `json:"timed_out,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RunCommandsResult is the output of RunCommands.
type RunCommandsResult struct {
	CommandResults []CommandOutcome `json:"command_results"`
}

// RunCommands executes shell commands sequentially in the working directory.
// A failing or timed-out command is reported in its outcome and does not
// stop the remaining commands.
func (s *Service) RunCommands(ctx context.Context, params RunCommandsParams) (*RunCommandsResult, error) {
	if len(params.Commands) == 0 {
		return nil, &agent.ValidationError{Field: "commands", Msg: "must not be empty"}
	}
	ws, err := agent.NewWorkspace(s.dir(params.WorkingDirectory))
	if err != nil {
		return nil, err
	}
	timeout := defaultCommandTimeout
	if params.TimeoutSeconds > 0 {
		timeout = time.Duration(params.TimeoutSeconds) * time.Second
	}

	result := &RunCommandsResult{CommandResults: make([]CommandOutcome, 0, len(params.Commands))}
	for _, command := range params.Commands {
		s.logger.Debug("running command", "command", truncateLog(command, 100))
		cmdResult, err := ws.RunCommand(ctx, command, timeout)
		if err != nil {
			result.CommandResults = append(result.CommandResults, CommandOutcome{
				Command: command, ExitCode: -1, Error: err.Error(),
			})
			continue
		}
		result.CommandResults = append(result.CommandResults, CommandOutcome{
			Command:  command,
			ExitCode: cmdResult.ExitCode,
			Stdout:   truncateLog(cmdResult.Stdout, commandOutputLimit),
			Stderr:   truncateLog(cmdResult.Stderr, commandOutputLimit),
			TimedOut: cmdResult.TimedOut,
		})
	}
	return result, nil
}

// StatusParams are the inputs for GetExecutionStatus.
type StatusParams struct {
	IncludeHistory bool `json:"include_history,omitempty"`
}

// Status is the output of GetExecutionStatus.
type Status struct {
	CurrentExecution    *agent.ExecutionRecord   `json:"current_execution"`
	ExecutorInitialized bool                     `json:"executor_initialized"`
	ExecutionHistory    []*agent.ExecutionRecord `json:"execution_history,omitempty"`
}

// GetExecutionStatus reports the current or most recent execution, and
// optionally the retained history.
func (s *Service) GetExecutionStatus(params StatusParams) *Status {
	status := &Status{
		CurrentExecution:    s.executor.History().Current(),
		ExecutorInitialized: true,
	}
	if params.IncludeHistory {
		status.ExecutionHistory = s.executor.History().List()
	}
	return status
}

func truncateLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
