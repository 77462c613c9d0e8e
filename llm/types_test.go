package llm

import (
	"encoding/json"
	"testing"
)

func TestMessageConstructors(t *testing.T) {
	sys := SystemMessage("be helpful")
	if sys.Role != RoleSystem || sys.Text != "be helpful" {
		t.Errorf("unexpected system message: %+v", sys)
	}

	user := UserMessage("do the thing")
	if user.Role != RoleUser {
		t.Errorf("unexpected user role: %v", user.Role)
	}

	calls := []ToolCall{{ID: "c1", Name: "read_file", Arguments: json.RawMessage(`{"path":"a.txt"}`)}}
	asst := AssistantMessage("reading", calls)
	if asst.Role != RoleAssistant || len(asst.ToolCalls) != 1 {
		t.Errorf("unexpected assistant message: %+v", asst)
	}

	results := ToolResultsMessage([]ToolResult{{ToolCallID: "c1", Content: "hello"}})
	if results.Role != RoleTool || len(results.ToolResults) != 1 {
		t.Errorf("unexpected tool results message: %+v", results)
	}
}

func TestResponseAccessors(t *testing.T) {
	resp := Response{
		Message: Message{
			Role: RoleAssistant,
			Text: "  done  ",
			ToolCalls: []ToolCall{
				{ID: "c1", Name: "write_file"},
				{ID: "c2", Name: "run_command"},
			},
		},
	}
	if resp.Text() != "done" {
		t.Errorf("Text should trim whitespace, got %q", resp.Text())
	}
	calls := resp.ToolCalls()
	if len(calls) != 2 || calls[0].ID != "c1" || calls[1].ID != "c2" {
		t.Errorf("ToolCalls must preserve issue order, got %+v", calls)
	}
}

func TestUsageAdd(t *testing.T) {
	a := Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	b := Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}
	sum := a.Add(b)
	if sum.InputTokens != 11 || sum.OutputTokens != 7 || sum.TotalTokens != 18 {
		t.Errorf("unexpected sum: %+v", sum)
	}
}
