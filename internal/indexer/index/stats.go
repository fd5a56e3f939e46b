package index

import "math"

// Document is the immutable token sequence of one indexed skill.
type Document []string

// Len returns the number of tokens in the document.
func (d Document) Len() int {
	return len(d)
}

// Contains reports whether term occurs at least once in the document.
func (d Document) Contains(term string) bool {
	for _, tok := range d {
		if tok == term {
			return true
		}
	}
	return false
}

// TermFrequency counts the tokens in doc equal to term. Comparison is exact;
// callers must normalise through the tokenizer first.
func TermFrequency(term string, doc Document) int {
	count := 0
	for _, tok := range doc {
		if tok == term {
			count++
		}
	}
	return count
}

// InverseDocumentFrequency returns ln((N-n+0.5)/(n+0.5)+1) where N is
// totalDocs and n is the number of docs containing term.
func InverseDocumentFrequency(term string, docs []Document, totalDocs int) float64 {
	docFreq := 0
	for _, doc := range docs {
		if doc.Contains(term) {
			docFreq++
		}
	}
	return computeIDF(totalDocs, docFreq)
}

func computeIDF(totalDocs int, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}
