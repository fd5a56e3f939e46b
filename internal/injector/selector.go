// Package injector decides which skills to inject for an incoming message.
// It combines the BM25 ranker with the intent/negation matcher: in relevance
// mode the ranker proposes candidates and the matcher vetoes negated ones; in
// heuristic mode the matcher alone decides.
package injector

import (
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/intent"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/searcher/ranker"
)

// Mode names reported in selections and metrics.
const (
	ModeRelevance = "relevance"
	ModeHeuristic = "heuristic"
)

// Config selects the mode and carries the resolved ranking and matching
// parameters.
type Config struct {
	RelevanceEnabled bool
	Ranking          ranker.Config
	Matching         intent.Config
}

// DefaultConfig enables relevance mode with default ranking and matching.
func DefaultConfig() Config {
	return Config{
		RelevanceEnabled: true,
		Ranking:          ranker.DefaultConfig(),
		Matching:         intent.DefaultConfig(),
	}
}

// Mode returns the mode name for c.
func (c Config) Mode() string {
	if c.RelevanceEnabled {
		return ModeRelevance
	}
	return ModeHeuristic
}

// Selection is one skill chosen for injection. Score is set in relevance
// mode, Pattern in heuristic mode.
type Selection struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score,omitempty"`
	Pattern string  `json:"pattern,omitempty"`
}

// Outcome is the full result of one selection, including the candidates
// that were dropped because of a negation.
type Outcome struct {
	Mode       string      `json:"mode"`
	Selections []Selection `json:"selections"`
	Negated    []string    `json:"negated,omitempty"`
}

// Names returns the selected skill names in order.
func (o Outcome) Names() []string {
	names := make([]string, len(o.Selections))
	for i, s := range o.Selections {
		names[i] = s.Name
	}
	return names
}

// Selector is an immutable snapshot of the corpus plus configuration. It is
// safe for concurrent use.
type Selector struct {
	corpus   *index.Corpus
	names    []string
	keywords map[string][]string
	cfg      Config
}

// NewSelector builds a Selector over corpus. keywords maps skill names to
// alias keywords; it is copied.
func NewSelector(corpus *index.Corpus, keywords map[string][]string, cfg Config) *Selector {
	kw := make(map[string][]string, len(keywords))
	for name, list := range keywords {
		kw[name] = append([]string(nil), list...)
	}
	return &Selector{
		corpus:   corpus,
		names:    corpus.Names(),
		keywords: kw,
		cfg:      cfg,
	}
}

// Corpus returns the corpus the selector ranks against.
func (s *Selector) Corpus() *index.Corpus {
	return s.corpus
}

// Config returns the selector configuration.
func (s *Selector) Config() Config {
	return s.cfg
}

// Keywords returns the alias keywords for name.
func (s *Selector) Keywords(name string) []string {
	return append([]string(nil), s.keywords[name]...)
}

// ProcessMessage returns the ordered skill names to inject for rawText.
func (s *Selector) ProcessMessage(rawText string) []string {
	return s.Select(rawText).Names()
}

// Select runs the configured mode against message.
func (s *Selector) Select(message string) Outcome {
	out := Outcome{Mode: s.cfg.Mode(), Selections: []Selection{}}
	if len(s.names) == 0 || message == "" {
		return out
	}
	if s.cfg.RelevanceEnabled {
		s.selectRelevant(message, &out)
	} else {
		s.selectHeuristic(message, &out)
	}
	return out
}

func (s *Selector) selectRelevant(message string, out *Outcome) {
	seen := make(map[string]struct{})
	candidates := ranker.TopN(message, s.names, s.corpus, s.cfg.Ranking.MaxResults, s.cfg.Ranking)
	for _, c := range candidates {
		// A zero score means no query term hit the document at all.
		if c.Score <= 0 {
			continue
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		if intent.Match(message, c.Name, s.keywords[c.Name], s.cfg.Matching).HasNegation {
			out.Negated = append(out.Negated, c.Name)
			continue
		}
		out.Selections = append(out.Selections, Selection{Name: c.Name, Score: c.Score})
	}
}

func (s *Selector) selectHeuristic(message string, out *Outcome) {
	seen := make(map[string]struct{})
	for _, name := range s.names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		r := intent.Match(message, name, s.keywords[name], s.cfg.Matching)
		if r.HasNegation {
			out.Negated = append(out.Negated, name)
			continue
		}
		if r.Matches {
			out.Selections = append(out.Selections, Selection{Name: name, Pattern: r.Pattern})
		}
	}
}
