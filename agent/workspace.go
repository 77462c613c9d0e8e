package agent

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"syscall"
	"time"
)

// Workspace is the filesystem and shell surface for one working directory.
// Every path is resolved relative to the root; a path that escapes the root
// via traversal fails with a path_violation ToolError. This confinement is
// the sole sandboxing guarantee the system offers.
type Workspace struct {
	root string
}

// NewWorkspace creates a Workspace rooted at dir. The directory must exist.
func NewWorkspace(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace: directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace: not a directory: %s", dir)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute working directory.
func (w *Workspace) Root() string { return w.root }

// resolve joins path with the root and rejects anything that escapes it.
func (w *Workspace) resolve(path string) (string, error) {
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(w.root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", newToolError(ErrKindPathViolation, path, "path escapes working directory")
	}
	return candidate, nil
}

// Rel returns path relative to the workspace root when possible.
func (w *Workspace) Rel(path string) string {
	if rel, err := filepath.Rel(w.root, path); err == nil {
		return rel
	}
	return path
}

// ReadFile returns the contents of path.
func (w *Workspace) ReadFile(path string) (string, error) {
	resolved, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", newToolError(ErrKindNotFound, path, "file does not exist")
		}
		return "", newToolError(ErrKindReadError, path, "%v", err)
	}
	return string(data), nil
}

// FileExists reports whether path exists inside the workspace.
func (w *Workspace) FileExists(path string) bool {
	resolved, err := w.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(resolved)
	return err == nil
}

// WriteFile creates or overwrites path, creating parent directories as
// needed. It reports whether the file was newly created.
func (w *Workspace) WriteFile(path, content string) (created bool, err error) {
	resolved, err := w.resolve(path)
	if err != nil {
		return false, err
	}
	_, statErr := os.Stat(resolved)
	created = os.IsNotExist(statErr)

	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return false, newToolError(ErrKindWriteError, path, "failed to create directory: %v", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return false, newToolError(ErrKindWriteError, path, "%v", err)
	}
	return created, nil
}

// EditFile replaces one exact occurrence of oldContent in path. The match
// must be unique: zero occurrences and ambiguous occurrences both fail with
// no_match and leave the file untouched, rather than guessing which one was
// meant.
func (w *Workspace) EditFile(path, oldContent, newContent string) error {
	content, err := w.ReadFile(path)
	if err != nil {
		return err
	}

	count := strings.Count(content, oldContent)
	if count == 0 {
		return newToolError(ErrKindNoMatch, path, "old_content not found in file")
	}
	if count > 1 {
		return newToolError(ErrKindNoMatch, path, "old_content occurs %d times; provide more context to make it unique", count)
	}

	_, err = w.WriteFile(path, strings.Replace(content, oldContent, newContent, 1))
	return err
}

// DeleteFile removes path from the workspace.
func (w *Workspace) DeleteFile(path string) error {
	resolved, err := w.resolve(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(resolved); os.IsNotExist(err) {
		return newToolError(ErrKindNotFound, path, "file does not exist")
	}
	if err := os.Remove(resolved); err != nil {
		return newToolError(ErrKindWriteError, path, "%v", err)
	}
	return nil
}

// ListFiles returns workspace-relative paths of files under dir matching a
// glob pattern, sorted lexicographically and capped at max. A pattern
// containing "**" matches recursively.
func (w *Workspace) ListFiles(pattern, dir string, max int) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	if dir == "" {
		dir = "."
	}
	base, err := w.resolve(dir)
	if err != nil {
		return nil, err
	}

	var matches []string
	if idx := strings.Index(pattern, "**"); idx >= 0 {
		suffix := strings.TrimPrefix(pattern[idx+2:], "/")
		if suffix == "" {
			suffix = "*"
		}
		err = filepath.WalkDir(base, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if ok, _ := filepath.Match(suffix, d.Name()); ok {
				matches = append(matches, p)
			}
			return nil
		})
		if err != nil {
			return nil, newToolError(ErrKindReadError, dir, "%v", err)
		}
	} else {
		raw, err := filepath.Glob(filepath.Join(base, pattern))
		if err != nil {
			return nil, newToolError(ErrKindPatternError, "", "invalid glob pattern: %v", err)
		}
		for _, m := range raw {
			if info, err := os.Stat(m); err == nil && !info.IsDir() {
				matches = append(matches, m)
			}
		}
	}

	result := make([]string, 0, len(matches))
	for _, m := range matches {
		result = append(result, w.Rel(m))
	}
	sort.Strings(result)
	if max > 0 && len(result) > max {
		result = result[:max]
	}
	return result, nil
}

// SearchMatch is one line matched by SearchCode.
type SearchMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// SearchCode runs a regex search over files in the workspace, optionally
// restricted to files whose base name matches filePattern. Results are
// capped at max matches.
func (w *Workspace) SearchCode(query, filePattern string, caseSensitive bool, max int) ([]SearchMatch, error) {
	expr := query
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, newToolError(ErrKindPatternError, "", "invalid regex %q: %v", query, err)
	}
	if max <= 0 {
		max = 100
	}

	var matches []SearchMatch
	walkErr := filepath.WalkDir(w.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			// Skip VCS and other hidden directories.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filePattern != "" && filePattern != "*" {
			if ok, _ := filepath.Match(filePattern, d.Name()); !ok {
				return nil
			}
		}
		if len(matches) >= max {
			return filepath.SkipAll
		}

		f, err := os.Open(p)
		if err != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if re.MatchString(line) {
				matches = append(matches, SearchMatch{Path: w.Rel(p), Line: lineNo, Text: line})
				if len(matches) >= max {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, newToolError(ErrKindReadError, "", "%v", walkErr)
	}
	return matches, nil
}

// CommandResult holds the outcome of a shell command execution.
type CommandResult struct {
	Command  string        `json:"command"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	TimedOut bool          `json:"timed_out"`
	Duration time.Duration `json:"-"`
}

// RunCommand executes a shell command in the working directory. On timeout
// the process group is killed and the result reports TimedOut with whatever
// output was captured, rather than hanging the loop.
func (w *Workspace) RunCommand(ctx context.Context, command string, timeout time.Duration) (*CommandResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "/bin/bash", "-c", command)
	cmd.Dir = w.root

	// Process group so a timeout kills children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil
	}
	// Do not wait forever on grandchildren holding the output pipes open.
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &CommandResult{
		Command:  command,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			result.ExitCode = -1
			return result, nil
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, newToolError(ErrKindWriteError, "", "failed to run command: %v", err)
		}
	}
	return result, nil
}
