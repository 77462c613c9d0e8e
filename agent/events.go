package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of execution event.
type EventKind string

const (
	EventRunStart      EventKind = "run_start"
	EventModelRequest  EventKind = "model_request"
	EventToolCallStart EventKind = "tool_call_start"
	EventToolCallEnd   EventKind = "tool_call_end"
	EventRunEnd        EventKind = "run_end"
	EventWarning       EventKind = "warning"
	EventError         EventKind = "error"
)

// Event is a typed event emitted during a task run.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	RunID     string                 `json:"run_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers typed events to the host application via a buffered
// channel. Events are dropped rather than blocking the execution loop.
type EventEmitter struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an EventEmitter with a buffered channel.
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		ch: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the channel. If the emitter is closed or the
// channel is full, the event is silently dropped.
func (e *EventEmitter) Emit(kind EventKind, runID string, data map[string]interface{}) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{
		Kind:      kind,
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
