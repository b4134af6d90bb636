package enrich

import (
	"strings"
	"unicode/utf8"
)

// inputPlaceholder is the substitution marker the user prompt template
// must contain.
const inputPlaceholder = "{input_text}"

// BuildUserPrompt substitutes the document text into the configured
// template, truncating the text to at most maxChars bytes first so
// prompts stay within the model's context budget. The cut lands on a
// rune boundary so the service never receives broken UTF-8.
func BuildUserPrompt(template, inputText string, maxChars int) string {
	if maxChars > 0 && len(inputText) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(inputText[cut]) {
			cut--
		}
		inputText = inputText[:cut]
	}
	return strings.ReplaceAll(template, inputPlaceholder, inputText)
}
