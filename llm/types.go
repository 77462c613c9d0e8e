// Package llm provides a provider-agnostic client for large language models,
// wrapping gollm behind a small request/response interface with tool calling.
package llm

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-initiated tool invocation.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is produced by executing a tool call.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// ToolDefinition describes a tool for the model. Parameters is a JSON Schema.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolChoice controls whether and how the model uses tools.
type ToolChoice struct {
	Mode     string `json:"mode"` // "auto", "none", "required"
	ToolName string `json:"tool_name,omitempty"`
}

// Message is the fundamental unit of conversation. A message carries text,
// tool calls (assistant), or tool results (tool role); the conversation order
// is the causal order of the exchange and must be preserved.
type Message struct {
	Role        Role         `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Text: text}
}

// UserMessage creates a user Message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantMessage creates an assistant Message with text and any tool calls.
func AssistantMessage(text string, toolCalls []ToolCall) Message {
	return Message{Role: RoleAssistant, Text: text, ToolCalls: toolCalls}
}

// ToolResultsMessage creates a tool Message carrying execution results.
func ToolResultsMessage(results []ToolResult) Message {
	return Message{Role: RoleTool, ToolResults: results}
}

// FinishReason describes why generation stopped.
type FinishReason struct {
	Reason string `json:"reason"` // "stop", "length", "tool_calls", "error", "other"
	Raw    string `json:"raw,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns a new Usage that is the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Request is the input type for Complete.
type Request struct {
	Model      string           `json:"model"`
	Messages   []Message        `json:"messages"`
	Provider   string           `json:"provider,omitempty"`
	ToolDefs   []ToolDefinition `json:"tools,omitempty"`
	ToolChoice *ToolChoice      `json:"tool_choice,omitempty"`
	MaxTokens  *int             `json:"max_tokens,omitempty"`
}

// Response is the output of Complete.
type Response struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Provider     string       `json:"provider"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
}

// Text returns the text of the response message.
func (r Response) Text() string {
	return strings.TrimSpace(r.Message.Text)
}

// ToolCalls returns the tool calls requested by the response message, in the
// order the model issued them.
func (r Response) ToolCalls() []ToolCall {
	return r.Message.ToolCalls
}
