package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// span is a half-open byte range [start, end) inside a lower-cased message.
type span struct {
	start int
	end   int
}

// isWordRune reports whether r belongs to a word. Hyphens count as word
// characters so "typescript" does not match inside "typescript-tdd".
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

// bounded reports whether s[start:end] has no word rune directly on either
// side. Only the neighbours are inspected, so phrases that begin or end
// with punctuation still match literally.
func bounded(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

// mentions returns every whole-word occurrence of phrase in s. Both are
// expected to be lower-cased already. The search is a plain substring scan;
// no character in phrase has special meaning.
func mentions(s, phrase string) []span {
	if phrase == "" {
		return nil
	}
	var out []span
	offset := 0
	for offset <= len(s)-len(phrase) {
		i := strings.Index(s[offset:], phrase)
		if i < 0 {
			break
		}
		start := offset + i
		end := start + len(phrase)
		if bounded(s, start, end) {
			out = append(out, span{start: start, end: end})
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
	return out
}

// containsWithin reports whether a whole-word occurrence of phrase lies
// entirely inside s[from:to]. Boundaries are checked against all of s, so a
// word cut in half by the window edge does not count.
func containsWithin(s, phrase string, from, to int) bool {
	for _, m := range mentions(s, phrase) {
		if m.start >= from && m.end <= to {
			return true
		}
		if m.start >= to {
			break
		}
	}
	return false
}

// endsWithWord reports whether prefix ends with phrase as a whole word.
func endsWithWord(prefix, phrase string) bool {
	if !strings.HasSuffix(prefix, phrase) {
		return false
	}
	return bounded(prefix, len(prefix)-len(phrase), len(prefix))
}

// runesBefore returns the byte offset n runes before pos, clamped to 0.
func runesBefore(s string, pos, n int) int {
	for i := 0; i < n && pos > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:pos])
		pos -= size
	}
	return pos
}

// runesAfter returns the byte offset n runes after pos, clamped to len(s).
func runesAfter(s string, pos, n int) int {
	for i := 0; i < n && pos < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[pos:])
		pos += size
	}
	return pos
}
