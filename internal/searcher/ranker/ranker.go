// Package ranker scores free-text queries against an index.Corpus with
// BM25 and returns the skills above a threshold in descending order.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/indexer/tokenizer"
)

// ScoredSkill pairs a skill name with its BM25 score.
type ScoredSkill struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Rank scores query against every name, where names[i] is the name of
// document i in corpus. Entries below cfg.Threshold are dropped and the rest
// are sorted by descending score. Equal scores keep their order in names;
// callers should not depend on that.
func Rank(query string, names []string, corpus *index.Corpus, cfg Config) []ScoredSkill {
	queryTokens := tokenizer.Tokenize(query)
	result := make([]ScoredSkill, 0, len(names))
	for pos, name := range names {
		score := scoreTokens(queryTokens, pos, corpus, cfg)
		if score < cfg.Threshold {
			continue
		}
		result = append(result, ScoredSkill{Name: name, Score: score})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result
}

// TopN is Rank truncated to the first n entries. An n larger than the number
// of candidates returns all of them.
func TopN(query string, names []string, corpus *index.Corpus, n int, cfg Config) []ScoredSkill {
	if n <= 0 {
		return []ScoredSkill{}
	}
	result := Rank(query, names, corpus, cfg)
	if len(result) > n {
		result = result[:n]
	}
	return result
}
