package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/martinemde/codetask/llm"
)

// DispatcherConfig bounds tool behavior.
type DispatcherConfig struct {
	MaxListResults    int
	MaxSearchResults  int
	DefaultCmdTimeout time.Duration
	MaxCmdTimeout     time.Duration
	StreamCap         int // per-stream stdout/stderr cap in run_command results
	ToolCharLimits    map[string]int
}

// DefaultDispatcherConfig returns the default tool bounds.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxListResults:    100,
		MaxSearchResults:  100,
		DefaultCmdTimeout: 30 * time.Second,
		MaxCmdTimeout:     10 * time.Minute,
		StreamCap:         2000,
	}
}

// toolHandler executes one named tool against the workspace.
type toolHandler func(ctx context.Context, args map[string]interface{}) (string, error)

// Dispatcher translates a named tool call into a workspace operation and a
// textual result, fully synchronously. Mutating operations notify the
// Tracker so the run's change summary stays accurate.
type Dispatcher struct {
	ws       *Workspace
	tracker  *Tracker
	config   DispatcherConfig
	handlers map[string]toolHandler
}

// NewDispatcher creates a Dispatcher bound to a workspace and tracker.
func NewDispatcher(ws *Workspace, tracker *Tracker, config DispatcherConfig) *Dispatcher {
	d := &Dispatcher{ws: ws, tracker: tracker, config: config}
	d.handlers = map[string]toolHandler{
		"read_file":   d.readFile,
		"write_file":  d.writeFile,
		"edit_file":   d.editFile,
		"list_files":  d.listFiles,
		"search_code": d.searchCode,
		"run_command": d.runCommand,
	}
	return d
}

// Catalog returns the fixed tool definitions offered to the model each turn.
func (d *Dispatcher) Catalog() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "read_file",
			Description: "Read the contents of a file. Use this before modifying files to understand the current state.",
			Parameters: objectSchema(map[string]interface{}{
				"path": stringParam("Path to the file, relative to the working directory."),
			}, "path"),
		},
		{
			Name:        "write_file",
			Description: "Write content to a file. Creates a new file or overwrites an existing one, creating parent directories as needed.",
			Parameters: objectSchema(map[string]interface{}{
				"path":    stringParam("Path to the file, relative to the working directory."),
				"content": stringParam("Full content to write to the file."),
			}, "path", "content"),
		},
		{
			Name:        "edit_file",
			Description: "Edit a file by replacing one exact occurrence of old_content. More precise than rewriting the whole file; old_content must be unique.",
			Parameters: objectSchema(map[string]interface{}{
				"path":        stringParam("Path to the file, relative to the working directory."),
				"old_content": stringParam("Exact content to find and replace."),
				"new_content": stringParam("New content to insert."),
			}, "path", "old_content", "new_content"),
		},
		{
			Name:        "list_files",
			Description: "List files matching a glob pattern (e.g. '*.go', '**/*.ts'). Results are sorted.",
			Parameters: objectSchema(map[string]interface{}{
				"pattern":   stringParam("Glob pattern to match file names."),
				"directory": stringParam("Directory to list, relative to the working directory. Default: '.'"),
			}, "pattern"),
		},
		{
			Name:        "search_code",
			Description: "Search file contents with a regex. Returns matching lines with file paths and line numbers.",
			Parameters: objectSchema(map[string]interface{}{
				"query":        stringParam("Regex pattern to search for."),
				"file_pattern": stringParam("Restrict to files whose name matches this glob (e.g. '*.py')."),
				"case_sensitive": map[string]interface{}{
					"type":        "boolean",
					"description": "Case sensitive search. Default: true.",
				},
			}, "query"),
		},
		{
			Name:        "run_command",
			Description: "Execute a shell command in the working directory. Use for testing, building, installing dependencies.",
			Parameters: objectSchema(map[string]interface{}{
				"command": stringParam("Shell command to execute."),
				"timeout": map[string]interface{}{
					"type":        "integer",
					"description": "Timeout in seconds. Default: 30.",
				},
			}, "command"),
		},
	}
}

// Dispatch executes one tool call and returns its textual result. A
// ToolError return is a recoverable, model-visible failure; the caller turns
// it into an error tool result rather than aborting the run.
func (d *Dispatcher) Dispatch(ctx context.Context, call llm.ToolCall) (string, error) {
	handler, ok := d.handlers[call.Name]
	if !ok {
		return "", newToolError(ErrKindBadArgument, "", "unknown tool: %s", call.Name)
	}
	args, err := parseToolArguments(call.Arguments)
	if err != nil {
		return "", err
	}
	result, err := handler(ctx, args)
	if err != nil {
		return "", err
	}
	return TruncateToolOutput(result, call.Name, d.config.ToolCharLimits), nil
}

func (d *Dispatcher) readFile(_ context.Context, args map[string]interface{}) (string, error) {
	path, err := requireString(args, "path")
	if err != nil {
		return "", err
	}
	d.tracker.SnapshotIfUntracked(path)
	content, err := d.ws.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("File content (%d chars):\n%s", len(content), content), nil
}

func (d *Dispatcher) writeFile(_ context.Context, args map[string]interface{}) (string, error) {
	path, err := requireString(args, "path")
	if err != nil {
		return "", err
	}
	content, err := requireString(args, "content")
	if err != nil {
		return "", err
	}
	d.tracker.SnapshotIfUntracked(path)
	created, err := d.ws.WriteFile(path, content)
	if err != nil {
		return "", err
	}
	d.tracker.RecordAfter(path)
	verb := "Overwrote"
	if created {
		verb = "Created"
	}
	return fmt.Sprintf("%s %s (%d bytes)", verb, path, len(content)), nil
}

func (d *Dispatcher) editFile(_ context.Context, args map[string]interface{}) (string, error) {
	path, err := requireString(args, "path")
	if err != nil {
		return "", err
	}
	oldContent, err := requireString(args, "old_content")
	if err != nil {
		return "", err
	}
	newContent, _ := getString(args, "new_content")

	d.tracker.SnapshotIfUntracked(path)
	if err := d.ws.EditFile(path, oldContent, newContent); err != nil {
		return "", err
	}
	d.tracker.RecordAfter(path)
	return fmt.Sprintf("Successfully edited %s", path), nil
}

// DeleteFile is not in the model-facing catalog; it is exposed through the
// batch modification path at the service boundary.
func (d *Dispatcher) DeleteFile(path string) (string, error) {
	d.tracker.SnapshotIfUntracked(path)
	if err := d.ws.DeleteFile(path); err != nil {
		return "", err
	}
	d.tracker.RecordAfter(path)
	return fmt.Sprintf("Deleted %s", path), nil
}

func (d *Dispatcher) listFiles(_ context.Context, args map[string]interface{}) (string, error) {
	pattern, err := requireString(args, "pattern")
	if err != nil {
		return "", err
	}
	dir, _ := getString(args, "directory")

	files, err := d.ws.ListFiles(pattern, dir, d.config.MaxListResults)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "No files matched the pattern.", nil
	}
	return fmt.Sprintf("Found %d files:\n%s", len(files), strings.Join(files, "\n")), nil
}

func (d *Dispatcher) searchCode(_ context.Context, args map[string]interface{}) (string, error) {
	query, err := requireString(args, "query")
	if err != nil {
		return "", err
	}
	filePattern, _ := getString(args, "file_pattern")
	caseSensitive := true
	if v, ok := getBool(args, "case_sensitive"); ok {
		caseSensitive = v
	}

	matches, err := d.ws.SearchCode(query, filePattern, caseSensitive, d.config.MaxSearchResults)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "No matches found.", nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d matches:\n", len(matches))
	for _, m := range matches {
		fmt.Fprintf(&sb, "%s:%d:%s\n", m.Path, m.Line, m.Text)
	}
	return sb.String(), nil
}

func (d *Dispatcher) runCommand(ctx context.Context, args map[string]interface{}) (string, error) {
	command, err := requireString(args, "command")
	if err != nil {
		return "", err
	}
	timeout := d.config.DefaultCmdTimeout
	if secs, ok := getInt(args, "timeout"); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	if timeout > d.config.MaxCmdTimeout {
		timeout = d.config.MaxCmdTimeout
	}

	result, err := d.ws.RunCommand(ctx, command, timeout)
	if err != nil {
		return "", err
	}
	if result.TimedOut {
		return "", newToolError(ErrKindTimedOut, "",
			"command timed out after %v\npartial stdout:\n%s\npartial stderr:\n%s",
			timeout, capString(result.Stdout, d.config.StreamCap), capString(result.Stderr, d.config.StreamCap))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Exit code: %d\n", result.ExitCode)
	if result.Stdout != "" {
		fmt.Fprintf(&sb, "STDOUT:\n%s\n", capString(result.Stdout, d.config.StreamCap))
	}
	if result.Stderr != "" {
		fmt.Fprintf(&sb, "STDERR:\n%s\n", capString(result.Stderr, d.config.StreamCap))
	}
	return sb.String(), nil
}

func capString(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}

// Schema helpers.

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringParam(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// Argument helpers.

func parseToolArguments(raw json.RawMessage) (map[string]interface{}, error) {
	var args map[string]interface{}
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, newToolError(ErrKindBadArgument, "", "invalid tool arguments: %v", err)
	}
	return args, nil
}

func getString(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func requireString(args map[string]interface{}, key string) (string, error) {
	s, ok := getString(args, key)
	if !ok || s == "" {
		return "", newToolError(ErrKindBadArgument, "", "%s is required", key)
	}
	return s, nil
}

func getInt(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func getBool(args map[string]interface{}, key string) (bool, bool) {
	v, ok := args[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
