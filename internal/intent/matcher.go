// Package intent detects whether a message asks for a named skill, and
// whether that request is negated. It is a heuristic companion to the BM25
// ranker and keeps no state between calls.
//
// Three strategies can produce a match:
//
//   - word boundary: the skill name appears as a whole word
//   - intent: an intent word ("use", "apply", ...) sits directly before the
//     name, or within a short window after it
//   - keyword: one of the skill's alias keywords appears as a whole word
//
// A negation phrase ("don't", "avoid", ...) shortly before any mention of
// the skill overrides every positive strategy.
package intent

import (
	"fmt"
	"strings"
	"unicode"
)

// Pattern labels reported in Result.Pattern.
const (
	PatternWordBoundary = "word-boundary"
	PatternIntentBefore = "intent-before"
	PatternIntentAfter  = "intent-after"
	PatternKeyword      = "keyword"
)

// Result is the outcome of testing one skill name against one message.
// Matches is always false when HasNegation is true.
type Result struct {
	Matches     bool   `json:"matches"`
	Pattern     string `json:"pattern,omitempty"`
	HasNegation bool   `json:"has_negation"`
}

// Match tests message against name and its alias keywords under cfg.
func Match(message, name string, keywords []string, cfg Config) Result {
	text := strings.ToLower(message)
	nameMentions := mentions(text, strings.ToLower(strings.TrimSpace(name)))
	aliases := normalizeKeywords(keywords)

	pattern := ""
	if cfg.WordBoundary && len(nameMentions) > 0 {
		pattern = PatternWordBoundary
	}
	if pattern == "" && cfg.IntentDetection {
		pattern = detectIntent(text, nameMentions, cfg)
	}
	if pattern == "" {
		for _, kw := range aliases {
			if len(mentions(text, kw)) > 0 {
				pattern = fmt.Sprintf("%s:%s", PatternKeyword, kw)
				break
			}
		}
	}

	var result Result
	if cfg.NegationDetection {
		all := nameMentions
		for _, kw := range aliases {
			all = append(all, mentions(text, kw)...)
		}
		result.HasNegation = isNegated(text, all, cfg)
	}
	if pattern != "" && !result.HasNegation {
		result.Matches = true
		result.Pattern = pattern
	}
	return result
}

// FindMatches runs Match for every name and returns the ones that matched,
// in input order.
func FindMatches(message string, names []string, keywordsByName map[string][]string, cfg Config) []string {
	matched := make([]string, 0)
	for _, name := range names {
		if Match(message, name, keywordsByName[name], cfg).Matches {
			matched = append(matched, name)
		}
	}
	return matched
}

// detectIntent looks for an intent word immediately before a mention, or
// within the intent window after it.
func detectIntent(text string, nameMentions []span, cfg Config) string {
	for _, m := range nameMentions {
		prefix := text[:m.start]
		trimmed := strings.TrimRightFunc(prefix, unicode.IsSpace)
		if len(trimmed) < len(prefix) {
			for _, kw := range cfg.IntentKeywords {
				if endsWithWord(trimmed, kw) {
					return fmt.Sprintf("%s:%s", PatternIntentBefore, kw)
				}
			}
		}
		windowEnd := runesAfter(text, m.end, cfg.IntentWindow)
		for _, kw := range cfg.IntentKeywords {
			if containsWithin(text, kw, m.end, windowEnd) {
				return fmt.Sprintf("%s:%s", PatternIntentAfter, kw)
			}
		}
	}
	return ""
}

// isNegated reports whether a negation phrase lies inside the negation
// window before one of the mentions.
func isNegated(text string, all []span, cfg Config) bool {
	for _, m := range all {
		windowStart := runesBefore(text, m.start, cfg.NegationWindow)
		for _, neg := range cfg.NegationKeywords {
			if containsWithin(text, neg, windowStart, m.start) {
				return true
			}
		}
	}
	return false
}
