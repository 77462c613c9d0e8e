package agent

import "fmt"

// TruncationMode specifies how oversized output is cut.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// Default character limits per tool before results go back to the model.
var defaultToolCharLimits = map[string]int{
	"read_file":   50000,
	"run_command": 30000,
	"search_code": 20000,
	"list_files":  20000,
	"edit_file":   10000,
	"write_file":  1000,
}

// Default truncation modes per tool.
var defaultTruncationModes = map[string]TruncationMode{
	"read_file":   TruncateHeadTail,
	"run_command": TruncateHeadTail,
	"search_code": TruncateTail,
	"list_files":  TruncateTail,
	"edit_file":   TruncateTail,
	"write_file":  TruncateTail,
}

// TruncateOutput applies character-based truncation to output.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}

	removed := len(output) - maxChars
	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[WARNING: Tool output was truncated. First %d characters were removed.]\n\n", removed) +
			output[len(output)-maxChars:]
	default: // head_tail
		half := maxChars / 2
		return output[:half] +
			fmt.Sprintf("\n\n[WARNING: Tool output was truncated. %d characters were removed from the middle. "+
				"Re-run the tool with more targeted parameters if you need the missing parts.]\n\n", removed) +
			output[len(output)-half:]
	}
}

// TruncateToolOutput applies the per-tool truncation policy to a tool result.
func TruncateToolOutput(output, toolName string, charLimits map[string]int) string {
	maxChars, ok := charLimits[toolName]
	if !ok {
		maxChars, ok = defaultToolCharLimits[toolName]
		if !ok {
			maxChars = 30000
		}
	}

	mode, ok := defaultTruncationModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}
	return TruncateOutput(output, maxChars, mode)
}

// truncateForRecord shortens raw result text for storage in a tool
// invocation record.
func truncateForRecord(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "... [truncated]"
}

// truncateWithMarker cuts content at max bytes and appends an explicit
// truncation marker, used for oversized context files and batch reads.
func truncateWithMarker(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + fmt.Sprintf("\n\n[... truncated, %d of %d bytes shown]", max, len(content))
}
