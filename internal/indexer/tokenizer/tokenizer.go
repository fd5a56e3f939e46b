// Package tokenizer provides text tokenisation for the skill index.
// It lower-cases input, turns every rune that is not a letter, digit,
// whitespace or hyphen into a separator, and splits on whitespace. Hyphens
// survive so compound skill names such as "typescript-tdd" stay one token.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize breaks text into lowercased word tokens. Empty input yields an
// empty (non-nil) slice.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, isSeparator)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if word == "" {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isSeparator reports whether r splits tokens. Punctuation is treated the
// same as whitespace.
func isSeparator(r rune) bool {
	if r == '-' {
		return false
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	return true
}
