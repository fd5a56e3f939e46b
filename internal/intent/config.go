package intent

import "strings"

// Default window sizes, measured in runes.
const (
	DefaultIntentWindow   = 20
	DefaultNegationWindow = 50
)

// DefaultIntentKeywords returns the words that signal a request to use a
// skill. Each call returns a new slice.
func DefaultIntentKeywords() []string {
	return []string{"use", "apply", "follow", "implement", "load", "get", "show", "with"}
}

// DefaultNegationKeywords returns the phrases that cancel a nearby
// mention. Each call returns a new slice.
func DefaultNegationKeywords() []string {
	return []string{"don't", "do not", "avoid", "skip", "ignore", "without", "except", "excluding"}
}

// Config is a fully resolved matcher configuration. Build one with
// DefaultConfig and WithKeywords; the zero value disables every strategy.
type Config struct {
	WordBoundary      bool     `json:"word_boundary" yaml:"wordBoundary"`
	IntentDetection   bool     `json:"intent_detection" yaml:"intentDetection"`
	NegationDetection bool     `json:"negation_detection" yaml:"negationDetection"`
	IntentKeywords    []string `json:"intent_keywords" yaml:"intentKeywords"`
	NegationKeywords  []string `json:"negation_keywords" yaml:"negationKeywords"`
	IntentWindow      int      `json:"intent_window" yaml:"intentWindow"`
	NegationWindow    int      `json:"negation_window" yaml:"negationWindow"`
}

// DefaultConfig enables all strategies with the default keyword lists.
func DefaultConfig() Config {
	return Config{
		WordBoundary:      true,
		IntentDetection:   true,
		NegationDetection: true,
		IntentKeywords:    normalizeKeywords(DefaultIntentKeywords()),
		NegationKeywords:  normalizeKeywords(DefaultNegationKeywords()),
		IntentWindow:      DefaultIntentWindow,
		NegationWindow:    DefaultNegationWindow,
	}
}

// WithKeywords returns a copy of c whose intent and negation lists are
// extended with the extras. Entries are lower-cased, trimmed and
// deduplicated; c itself is not modified.
func (c Config) WithKeywords(extraIntent, extraNegation []string) Config {
	c.IntentKeywords = normalizeKeywords(append(append([]string{}, c.IntentKeywords...), extraIntent...))
	c.NegationKeywords = normalizeKeywords(append(append([]string{}, c.NegationKeywords...), extraNegation...))
	return c
}

func normalizeKeywords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
