package relay

import (
	"strings"

	"github.com/gincol-ia/ollama-api/utils/types"
)

// BuildContextPrompt flattens prior turns into a single text prompt for
// the generate endpoint, which has no structured history. Each turn is
// rendered as "<label>: <content>" with blank lines between turns,
// followed by the current prompt and a trailing assistant cue.
func BuildContextPrompt(history []types.ChatMessage, prompt string) string {
	var b strings.Builder
	for _, msg := range history {
		label := "Assistant"
		if msg.Role == "user" {
			label = "User"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(prompt)
	b.WriteString("\n\nAssistant:")
	return b.String()
}
