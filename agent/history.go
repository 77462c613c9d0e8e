package agent

import "sync"

// DefaultHistoryLimit bounds how many finished runs the in-memory history
// retains before evicting the oldest.
const DefaultHistoryLimit = 100

// History holds finished execution records plus the record of the run in
// progress, newest last. It is safe for concurrent use; all reads return
// deep copies.
type History struct {
	mu      sync.RWMutex
	limit   int
	records []*ExecutionRecord
	current *ExecutionRecord
}

// NewHistory creates a History retaining at most limit finished records.
// A non-positive limit means DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// SetCurrent publishes a snapshot of the run in progress. The executor
// calls this at state transitions; the stored copy is never mutated, so
// readers see a consistent record.
func (h *History) SetCurrent(record *ExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = record.Clone()
}

// Append stores a finished record and clears the run in progress. The
// oldest record is evicted at the retention limit.
func (h *History) Append(record *ExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = nil
	h.records = append(h.records, record)
	if len(h.records) > h.limit {
		h.records = h.records[len(h.records)-h.limit:]
	}
}

// Current returns a copy of the most recent record: the run in progress if
// one exists, otherwise the latest finished run. Nil if nothing has run.
func (h *History) Current() *ExecutionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current != nil {
		return h.current.Clone()
	}
	if len(h.records) == 0 {
		return nil
	}
	return h.records[len(h.records)-1].Clone()
}

// List returns copies of all retained finished records, oldest first.
func (h *History) List() []*ExecutionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*ExecutionRecord, len(h.records))
	for i, r := range h.records {
		out[i] = r.Clone()
	}
	return out
}

// Len reports the number of retained finished records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
