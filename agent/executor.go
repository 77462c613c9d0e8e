package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/martinemde/codetask/llm"
)

// DefaultMaxIterations caps tool-exchange rounds when a request does not
// set its own limit.
const DefaultMaxIterations = 20

// invocationResultLimit bounds tool results as stored in the execution
// record. The model always sees the full (tool-limit-truncated) output.
const invocationResultLimit = 500

// Executor drives the agent loop: it sends the conversation to the model,
// executes the tool calls it requests, and repeats until the model answers
// with plain text or the iteration cap is reached. One run at a time;
// concurrent Execute calls fail fast with ErrBusy.
type Executor struct {
	client        *llm.Client
	model         string
	provider      string
	maxIterations int
	history       *History
	events        *EventEmitter

	mu   sync.Mutex
	busy bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithModel sets the model identifier sent with every request.
func WithModel(model string) ExecutorOption {
	return func(e *Executor) { e.model = model }
}

// WithExecutorProvider pins requests to a named provider instead of the
// client's default.
func WithExecutorProvider(provider string) ExecutorOption {
	return func(e *Executor) { e.provider = provider }
}

// WithMaxIterations sets the default iteration cap for requests that do not
// carry their own.
func WithMaxIterations(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithHistory sets the history store finished runs are appended to.
func WithHistory(h *History) ExecutorOption {
	return func(e *Executor) { e.history = h }
}

// WithEvents attaches an emitter that receives execution events for all
// runs of this executor.
func WithEvents(emitter *EventEmitter) ExecutorOption {
	return func(e *Executor) { e.events = emitter }
}

// NewExecutor creates an Executor backed by client.
func NewExecutor(client *llm.Client, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client:        client,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.history == nil {
		e.history = NewHistory(0)
	}
	return e
}

// History returns the executor's history store.
func (e *Executor) History() *History {
	return e.history
}

// Busy reports whether a run is in progress.
func (e *Executor) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

func (e *Executor) tryAcquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return false
	}
	e.busy = true
	return true
}

func (e *Executor) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

// Execute runs one code task to completion. It returns the execution record
// for every run that started, alongside the error that ended it when the
// run failed. Validation failures and ErrBusy return a nil record: no run
// state was created.
//
// An iteration is one completed tool-exchange round. A model response
// without tool calls ends the run as completed without consuming a round,
// so a task the model answers immediately records zero iterations.
func (e *Executor) Execute(ctx context.Context, req TaskRequest) (*ExecutionRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !e.tryAcquire() {
		return nil, ErrBusy
	}
	defer e.release()

	ws, err := NewWorkspace(req.Dir)
	if err != nil {
		return nil, err
	}

	maxIterations := req.MaxIterations
	if maxIterations == 0 {
		maxIterations = e.maxIterations
	}

	record := &ExecutionRecord{
		ID:               uuid.NewString(),
		TaskDescription:  req.Description,
		WorkingDirectory: ws.Root(),
		State:            StateInit,
		StartedAt:        time.Now(),
		ToolInvocations:  []ToolInvocation{},
	}
	e.history.SetCurrent(record)
	e.events.Emit(EventRunStart, record.ID, map[string]interface{}{
		"task": req.Description,
		"dir":  ws.Root(),
	})

	tracker := NewTracker(ws.Root())
	dispatcher := NewDispatcher(ws, tracker, DefaultDispatcherConfig())

	systemPrompt, skipped := buildSystemPrompt(ws, req.ContextFiles)
	for _, path := range skipped {
		e.events.Emit(EventWarning, record.ID, map[string]interface{}{
			"message": fmt.Sprintf("context file not readable, skipping: %s", path),
		})
	}

	messages := []llm.Message{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(req.Description),
	}
	toolDefs := dispatcher.Catalog()

	record.State = StateRunning
	e.history.SetCurrent(record)

	runErr := e.runLoop(ctx, record, dispatcher, messages, toolDefs, maxIterations)

	record.Duration = time.Since(record.StartedAt)
	record.FileChanges = tracker.Summarize()
	record.Success = record.State == StateCompleted
	e.history.Append(record)
	e.events.Emit(EventRunEnd, record.ID, map[string]interface{}{
		"state":      string(record.State),
		"iterations": record.Iterations,
	})

	return record, runErr
}

// runLoop advances the conversation until a terminal state is reached. It
// mutates record in place and returns the error that failed the run, if any.
func (e *Executor) runLoop(ctx context.Context, record *ExecutionRecord, dispatcher *Dispatcher, messages []llm.Message, toolDefs []llm.ToolDefinition, maxIterations int) error {
	round := 0
	for {
		e.events.Emit(EventModelRequest, record.ID, map[string]interface{}{
			"round": round,
		})
		resp, err := e.client.Complete(ctx, llm.Request{
			Model:    e.model,
			Provider: e.provider,
			Messages: messages,
			ToolDefs: toolDefs,
		})
		if err != nil {
			record.State = StateFailed
			record.Iterations = round
			record.Error = err.Error()
			e.events.Emit(EventError, record.ID, map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}

		text := resp.Text()
		calls := resp.ToolCalls()

		if len(calls) == 0 {
			if text == "" {
				err := fmt.Errorf("model returned neither text nor tool calls")
				record.State = StateFailed
				record.Iterations = round
				record.Error = err.Error()
				return err
			}
			record.State = StateCompleted
			record.Iterations = round
			record.FinalMessage = text
			return nil
		}

		if round >= maxIterations {
			record.State = StateIterationExceeded
			record.Iterations = maxIterations
			record.FinalMessage = text
			return nil
		}

		messages = append(messages, llm.AssistantMessage(text, calls))

		results := make([]llm.ToolResult, 0, len(calls))
		for _, call := range calls {
			e.events.Emit(EventToolCallStart, record.ID, map[string]interface{}{
				"tool": call.Name,
			})
			output, toolErr := dispatcher.Dispatch(ctx, call)
			isError := toolErr != nil
			if isError {
				output = fmt.Sprintf("Error: %s", toolErr.Error())
			}
			results = append(results, llm.ToolResult{
				ToolCallID: call.ID,
				Content:    output,
				IsError:    isError,
			})
			record.ToolInvocations = append(record.ToolInvocations, ToolInvocation{
				Tool:      call.Name,
				Input:     call.Arguments,
				Result:    truncateForRecord(output, invocationResultLimit),
				Iteration: round,
				IsError:   isError,
			})
			e.events.Emit(EventToolCallEnd, record.ID, map[string]interface{}{
				"tool":  call.Name,
				"error": isError,
			})
		}
		messages = append(messages, llm.ToolResultsMessage(results))

		round++
		record.Iterations = round
		e.history.SetCurrent(record)
	}
}
