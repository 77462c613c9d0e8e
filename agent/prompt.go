package agent

import (
	"fmt"
	"strings"
)

// maxContextFileBytes caps how much of each context file is inlined into
// the system prompt.
const maxContextFileBytes = 10_000

const systemPromptTemplate = `You are an expert coding assistant executing tasks in the directory: %s

Your capabilities:
1. Read and analyze code files
2. Write new code files
3. Modify existing files
4. Execute shell commands
5. Search through codebases

Guidelines:
- Always verify file existence before modifying
- Use relative paths from the working directory
- Provide clear explanations for changes
- Follow best practices and existing code style
- Handle errors gracefully
- Test changes when possible

Current working directory: %s
`

// buildSystemPrompt renders the run's system prompt, inlining readable
// context files. Files that cannot be read are reported back as warnings
// rather than failing the run.
func buildSystemPrompt(ws *Workspace, contextFiles []string) (prompt string, skipped []string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, systemPromptTemplate, ws.Root(), ws.Root())

	if len(contextFiles) > 0 {
		sb.WriteString("\nRelevant context files:\n")
		for _, path := range contextFiles {
			content, err := ws.ReadFile(path)
			if err != nil {
				skipped = append(skipped, path)
				continue
			}
			fmt.Fprintf(&sb, "\n--- %s ---\n%s\n", path, truncateWithMarker(content, maxContextFileBytes))
		}
	}
	return sb.String(), skipped
}
