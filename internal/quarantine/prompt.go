package quarantine

import "strings"

// substitute performs literal `{{name}}` placeholder replacement; prompts
// are plain strings sourced from the store, never a templating language
// (pkg/models.DualLlmConfig doc comment).
func substitute(prompt string, values map[string]string) string {
	for name, value := range values {
		prompt = strings.ReplaceAll(prompt, "{{"+name+"}}", value)
	}
	return prompt
}
