package llm

import _ "embed"

var (
	//go:embed prompts/simplify_v1.txt
	simplifyPromptV1 string
)

// SimplifyPrompt returns the system instruction for the Easy Read rewrite.
func SimplifyPrompt() string {
	return simplifyPromptV1
}
