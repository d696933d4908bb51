package openai

import (
	"fmt"
	"strings"

	"easyread/internal/llm"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

// BuildPrompt creates the chat messages for an Easy Read rewrite request.
// Keep terms ride on the system message so the model treats them as an
// instruction rather than document content.
func BuildPrompt(text string, keepTerms []string) []Message {
	system := llm.SimplifyPrompt()
	if clause := keepTermsClause(keepTerms); clause != "" {
		system = strings.TrimRight(system, "\n") + "\n\n" + clause
	}
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	}
}

func keepTermsClause(keepTerms []string) string {
	kept := make([]string, 0, len(keepTerms))
	for _, term := range keepTerms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		kept = append(kept, term)
	}
	if len(kept) == 0 {
		return ""
	}
	return fmt.Sprintf("Keep these words exactly as written: %s.", strings.Join(kept, ", "))
}
