// Package agent implements the autonomous code-task execution core.
//
// An Executor drives a multi-turn conversation with an LLM provider: each
// iteration sends the conversation so far plus a fixed tool catalog, then
// dispatches any requested tool calls against a path-confined Workspace
// before asking the model again. A run terminates on a final text answer,
// on the iteration cap, or on an unrecoverable provider failure, and always
// produces a structured ExecutionRecord.
//
// The package is organized around these core concepts:
//
//   - Executor: the task state machine. One run at a time; a second
//     Execute while a run is active fails fast with ErrBusy.
//   - Dispatcher: translates a named tool call (read_file, write_file,
//     edit_file, list_files, search_code, run_command) into a workspace
//     operation and a textual result.
//   - Workspace: the filesystem/shell surface, confining every path to
//     the run's working directory.
//   - Tracker: before/after content snapshots per touched path, classified
//     into created/modified/deleted by digest comparison.
//   - History: append-only in-memory store of past execution records.
//   - EventEmitter: typed event stream for host applications.
//
// # Quick Start
//
//	client, err := llm.NewClientFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	exec := agent.NewExecutor(client, agent.WithModel("claude-sonnet-4-5-20250929"))
//
//	rec, err := exec.Execute(ctx, agent.TaskRequest{
//	    Description: "Add a --verbose flag to main.go",
//	    Dir:         "/path/to/project",
//	})
package agent
