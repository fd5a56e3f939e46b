package ranker

import (
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/indexer/tokenizer"
)

// Score computes the BM25 relevance of query against the document at
// position. Out-of-range positions score 0.
func Score(query string, position int, corpus *index.Corpus, cfg Config) float64 {
	return scoreTokens(tokenizer.Tokenize(query), position, corpus, cfg)
}

// scoreTokens sums one contribution per query token, duplicates included.
func scoreTokens(queryTokens []string, position int, corpus *index.Corpus, cfg Config) float64 {
	doc, ok := corpus.Document(position)
	if !ok {
		return 0
	}
	avgDocLength := corpus.AverageDocumentLength()
	docLength := float64(doc.Len())
	score := 0.0
	for _, term := range queryTokens {
		idf, ok := corpus.IDF(term)
		if !ok {
			continue
		}
		tf := float64(index.TermFrequency(term, doc))
		score += idf * computeTFNorm(tf, docLength, avgDocLength, cfg)
	}
	return score
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64, cfg Config) float64 {
	if avgDocLength == 0 || termFreq == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + cfg.K1*(1-cfg.B+cfg.B*lengthRatio)
	return (termFreq * (cfg.K1 + 1)) / denominator
}
