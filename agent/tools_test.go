package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/martinemde/codetask/llm"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *Workspace, *Tracker) {
	t.Helper()
	ws := newTestWorkspace(t)
	tracker := NewTracker(ws.Root())
	return NewDispatcher(ws, tracker, DefaultDispatcherConfig()), ws, tracker
}

func call(t *testing.T, name string, args map[string]interface{}) llm.ToolCall {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	return llm.ToolCall{ID: "tc-1", Name: name, Arguments: raw}
}

func TestCatalogListsAllTools(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	defs := d.Catalog()

	want := map[string]bool{
		"read_file": false, "write_file": false, "edit_file": false,
		"list_files": false, "search_code": false, "run_command": false,
	}
	for _, def := range defs {
		if _, ok := want[def.Name]; !ok {
			t.Errorf("unexpected tool %q in catalog", def.Name)
		}
		want[def.Name] = true
		if def.Description == "" {
			t.Errorf("tool %q has no description", def.Name)
		}
		if def.Parameters["type"] != "object" {
			t.Errorf("tool %q schema is not an object", def.Name)
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %q missing from catalog", name)
		}
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), call(t, "rm_rf", nil))
	if ToolErrorKindOf(err) != ErrKindBadArgument {
		t.Errorf("kind = %q, want %q", ToolErrorKindOf(err), ErrKindBadArgument)
	}
}

func TestDispatchMissingRequiredArgument(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), call(t, "read_file", map[string]interface{}{}))
	if ToolErrorKindOf(err) != ErrKindBadArgument {
		t.Errorf("kind = %q, want %q", ToolErrorKindOf(err), ErrKindBadArgument)
	}
}

func TestDispatchMalformedArguments(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), llm.ToolCall{
		ID: "tc-1", Name: "read_file", Arguments: json.RawMessage(`not json`),
	})
	if ToolErrorKindOf(err) != ErrKindBadArgument {
		t.Errorf("kind = %q, want %q", ToolErrorKindOf(err), ErrKindBadArgument)
	}
}

func TestDispatchReadFile(t *testing.T) {
	d, ws, _ := newTestDispatcher(t)
	writeTestFile(t, ws, "a.txt", "hello")

	out, err := d.Dispatch(context.Background(), call(t, "read_file", map[string]interface{}{"path": "a.txt"}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "File content (5 chars)") || !strings.Contains(out, "hello") {
		t.Errorf("unexpected result: %q", out)
	}
}

func TestDispatchWriteFileReportsCreateVsOverwrite(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	out, err := d.Dispatch(context.Background(), call(t, "write_file", map[string]interface{}{
		"path": "a.txt", "content": "v1",
	}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.HasPrefix(out, "Created") {
		t.Errorf("first write: %q, want Created prefix", out)
	}

	out, err = d.Dispatch(context.Background(), call(t, "write_file", map[string]interface{}{
		"path": "a.txt", "content": "v2",
	}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.HasPrefix(out, "Overwrote") {
		t.Errorf("second write: %q, want Overwrote prefix", out)
	}
}

func TestDispatchEditFile(t *testing.T) {
	d, ws, _ := newTestDispatcher(t)
	writeTestFile(t, ws, "a.txt", "one two three")

	out, err := d.Dispatch(context.Background(), call(t, "edit_file", map[string]interface{}{
		"path": "a.txt", "old_content": "two", "new_content": "2",
	}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "edited a.txt") {
		t.Errorf("unexpected result: %q", out)
	}
	content, _ := ws.ReadFile("a.txt")
	if content != "one 2 three" {
		t.Errorf("content = %q", content)
	}
}

func TestDispatchListFiles(t *testing.T) {
	d, ws, _ := newTestDispatcher(t)
	writeTestFile(t, ws, "a.go", "")
	writeTestFile(t, ws, "b.go", "")

	out, err := d.Dispatch(context.Background(), call(t, "list_files", map[string]interface{}{"pattern": "*.go"}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "Found 2 files") {
		t.Errorf("unexpected result: %q", out)
	}

	out, err = d.Dispatch(context.Background(), call(t, "list_files", map[string]interface{}{"pattern": "*.rs"}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "No files matched") {
		t.Errorf("unexpected empty result: %q", out)
	}
}

func TestDispatchSearchCode(t *testing.T) {
	d, ws, _ := newTestDispatcher(t)
	writeTestFile(t, ws, "a.txt", "needle here\nnothing\nneedle again")

	out, err := d.Dispatch(context.Background(), call(t, "search_code", map[string]interface{}{"query": "needle"}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "Found 2 matches") || !strings.Contains(out, "a.txt:1:") {
		t.Errorf("unexpected result: %q", out)
	}
}

func TestDispatchRunCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	out, err := d.Dispatch(context.Background(), call(t, "run_command", map[string]interface{}{"command": "echo hi"}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "Exit code: 0") || !strings.Contains(out, "hi") {
		t.Errorf("unexpected result: %q", out)
	}
}

func TestDispatchRunCommandTimeout(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), call(t, "run_command", map[string]interface{}{
		"command": "sleep 10", "timeout": 1,
	}))
	if ToolErrorKindOf(err) != ErrKindTimedOut {
		t.Errorf("kind = %q, want %q", ToolErrorKindOf(err), ErrKindTimedOut)
	}
}

func TestDispatchUpdatesTracker(t *testing.T) {
	d, _, tracker := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), call(t, "write_file", map[string]interface{}{
		"path": "new.txt", "content": "x",
	}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	summary := tracker.Summarize()
	if summary.FilesCreated != 1 {
		t.Errorf("FilesCreated = %d, want 1: %+v", summary.FilesCreated, summary)
	}
}

func TestDeleteFileUpdatesTracker(t *testing.T) {
	d, ws, tracker := newTestDispatcher(t)
	writeTestFile(t, ws, "doomed.txt", "x")

	out, err := d.DeleteFile("doomed.txt")
	if err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if !strings.Contains(out, "Deleted doomed.txt") {
		t.Errorf("unexpected result: %q", out)
	}
	summary := tracker.Summarize()
	if summary.FilesDeleted != 1 {
		t.Errorf("FilesDeleted = %d, want 1: %+v", summary.FilesDeleted, summary)
	}
}
