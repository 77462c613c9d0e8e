package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Snapshot captures the observable state of one file at a point in time.
// For a missing file only Path and Exists are meaningful.
type Snapshot struct {
	Path    string    `json:"path"`
	Digest  string    `json:"digest,omitempty"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Exists  bool      `json:"exists"`
}

// ChangeKind is the tagged classification of one tracked path, computed from
// its before and after snapshots.
type ChangeKind string

const (
	ChangeCreated   ChangeKind = "created"
	ChangeModified  ChangeKind = "modified"
	ChangeDeleted   ChangeKind = "deleted"
	ChangeUnchanged ChangeKind = "unchanged"
)

// ChangeEntry is one classified file change.
type ChangeEntry struct {
	Path         string     `json:"path"`
	Kind         ChangeKind `json:"kind"`
	BeforeDigest string     `json:"before_digest,omitempty"`
	AfterDigest  string     `json:"after_digest,omitempty"`
}

// ChangeSummary aggregates the classified changes of one tracking epoch.
// Unchanged paths are omitted.
type ChangeSummary struct {
	TotalChanges  int      `json:"total_changes"`
	FilesCreated  int      `json:"files_created"`
	FilesModified int      `json:"files_modified"`
	FilesDeleted  int      `json:"files_deleted"`
	Created       []string `json:"created_files"`
	Modified      []string `json:"modified_files"`
	Deleted       []string `json:"deleted_files"`
}

func (s ChangeSummary) clone() ChangeSummary {
	out := s
	out.Created = append([]string(nil), s.Created...)
	out.Modified = append([]string(nil), s.Modified...)
	out.Deleted = append([]string(nil), s.Deleted...)
	return out
}

// Tracker answers "what changed?" for a working directory across one task
// run. A path acquires its "before" snapshot the first time it is touched;
// later touches never overwrite it. Digest equality is the sole source of
// truth for "modified": size or timestamp differences alone do not qualify.
type Tracker struct {
	mu     sync.Mutex
	root   string
	before map[string]Snapshot
	after  map[string]Snapshot
}

// NewTracker creates a Tracker for the given working directory.
func NewTracker(dir string) *Tracker {
	t := &Tracker{}
	t.Reset(dir)
	return t
}

// Reset clears all tracked snapshots and starts a new tracking epoch for
// dir. Idempotent.
func (t *Tracker) Reset(dir string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = dir
	t.before = make(map[string]Snapshot)
	t.after = make(map[string]Snapshot)
}

// SnapshotIfUntracked captures the "before" snapshot for path if none is
// tracked yet. Subsequent touches of the same path are no-ops.
func (t *Tracker) SnapshotIfUntracked(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.before[path]; ok {
		return
	}
	t.before[path] = t.takeSnapshot(path)
}

// RecordAfter recomputes the current snapshot for path after a mutating
// tool call, without discarding the original "before" snapshot.
func (t *Tracker) RecordAfter(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.before[path]; !ok {
		// Callers snapshot before mutating; this keeps the path tracked
		// even if that step was skipped.
		t.before[path] = Snapshot{Path: path}
	}
	t.after[path] = t.takeSnapshot(path)
}

// Tracked returns the tracked paths, sorted.
func (t *Tracker) Tracked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	paths := make([]string, 0, len(t.before))
	for p := range t.before {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Classify computes the change kind for one tracked path from its before
// snapshot and the current file state.
func (t *Tracker) Classify(path string) ChangeEntry {
	t.mu.Lock()
	before, ok := t.before[path]
	t.mu.Unlock()
	if !ok {
		before = Snapshot{Path: path}
	}
	return classify(before, t.currentSnapshot(path))
}

// Summarize classifies every tracked path against its current on-disk state
// and returns counts plus the created/modified/deleted path lists. Calling
// it twice without intervening mutations yields identical results.
func (t *Tracker) Summarize() ChangeSummary {
	var summary ChangeSummary
	for _, path := range t.Tracked() {
		entry := t.Classify(path)
		switch entry.Kind {
		case ChangeCreated:
			summary.Created = append(summary.Created, path)
		case ChangeModified:
			summary.Modified = append(summary.Modified, path)
		case ChangeDeleted:
			summary.Deleted = append(summary.Deleted, path)
		}
	}
	summary.FilesCreated = len(summary.Created)
	summary.FilesModified = len(summary.Modified)
	summary.FilesDeleted = len(summary.Deleted)
	summary.TotalChanges = summary.FilesCreated + summary.FilesModified + summary.FilesDeleted
	return summary
}

func classify(before, current Snapshot) ChangeEntry {
	entry := ChangeEntry{Path: before.Path, BeforeDigest: before.Digest, AfterDigest: current.Digest}
	switch {
	case !before.Exists && current.Exists:
		entry.Kind = ChangeCreated
		entry.BeforeDigest = ""
	case before.Exists && !current.Exists:
		entry.Kind = ChangeDeleted
		entry.AfterDigest = ""
	case before.Exists && current.Exists && before.Digest != current.Digest:
		entry.Kind = ChangeModified
	default:
		entry.Kind = ChangeUnchanged
	}
	return entry
}

// takeSnapshot must be called with t.mu held.
func (t *Tracker) takeSnapshot(path string) Snapshot {
	return snapshotFile(t.root, path)
}

// currentSnapshot takes t.mu itself.
func (t *Tracker) currentSnapshot(path string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.takeSnapshot(path)
}

// snapshotFile computes the digest, size and mtime for path under root.
func snapshotFile(root, path string) Snapshot {
	snap := Snapshot{Path: path}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, path)
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return snap
	}
	snap.Exists = true
	snap.Size = info.Size()
	snap.ModTime = info.ModTime()

	f, err := os.Open(full)
	if err != nil {
		return snap
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return snap
	}
	snap.Digest = hex.EncodeToString(h.Sum(nil))
	return snap
}
