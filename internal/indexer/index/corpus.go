// Package index builds the immutable skill corpus that the ranker scores
// against. A Corpus is constructed once from a snapshot of every known
// skill and never changes afterwards; a changed skill set means building a
// new Corpus.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/indexer/tokenizer"
)

// Entry is one named item to index. The indexed text is Name followed by
// Body.
type Entry struct {
	Name string
	Body string
}

// Corpus is the precomputed index over a fixed set of skills. Position i
// of Names corresponds to document i. All methods are safe for concurrent
// use because nothing is mutated after Build returns.
type Corpus struct {
	names        []string
	positions    map[string]int
	documents    []Document
	avgDocLength float64
	idf          map[string]float64
	fingerprint  string
}

// Build tokenises every entry in order and precomputes the average document
// length and the IDF of every distinct token. When a name repeats, the first
// entry wins.
func Build(entries []Entry) *Corpus {
	c := &Corpus{
		names:     make([]string, 0, len(entries)),
		positions: make(map[string]int, len(entries)),
		documents: make([]Document, 0, len(entries)),
	}
	totalTokens := 0
	for _, e := range entries {
		if _, dup := c.positions[e.Name]; dup {
			continue
		}
		doc := Document(tokenizer.Tokenize(e.Name + " " + e.Body))
		c.positions[e.Name] = len(c.documents)
		c.names = append(c.names, e.Name)
		c.documents = append(c.documents, doc)
		totalTokens += doc.Len()
	}

	// An empty corpus reports an average length of 0 rather than NaN.
	if len(c.documents) > 0 {
		c.avgDocLength = float64(totalTokens) / float64(len(c.documents))
	}

	docFreq := make(map[string]int)
	for _, doc := range c.documents {
		seen := make(map[string]struct{}, len(doc))
		for _, tok := range doc {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			docFreq[tok]++
		}
	}
	c.idf = make(map[string]float64, len(docFreq))
	for term, n := range docFreq {
		c.idf[term] = computeIDF(len(c.documents), n)
	}
	c.fingerprint = fingerprint(entries, c.names)
	return c
}

// BuildFromMap indexes a name-to-body mapping. Names are sorted so that
// positions are deterministic across runs.
func BuildFromMap(bodies map[string]string) *Corpus {
	names := make([]string, 0, len(bodies))
	for name := range bodies {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, Entry{Name: name, Body: bodies[name]})
	}
	return Build(entries)
}

// Names returns a copy of the name list in document order.
func (c *Corpus) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Position returns the document position of name.
func (c *Corpus) Position(name string) (int, bool) {
	pos, ok := c.positions[name]
	return pos, ok
}

// Document returns the document at position pos. The second result is false
// when pos is out of range.
func (c *Corpus) Document(pos int) (Document, bool) {
	if pos < 0 || pos >= len(c.documents) {
		return nil, false
	}
	return c.documents[pos], true
}

// TotalDocuments returns the number of indexed documents.
func (c *Corpus) TotalDocuments() int {
	return len(c.documents)
}

// AverageDocumentLength returns the mean token count, or 0 for an empty
// corpus.
func (c *Corpus) AverageDocumentLength() float64 {
	return c.avgDocLength
}

// IDF returns the cached inverse document frequency of term. Terms that never
// appear in the corpus report 0 and false.
func (c *Corpus) IDF(term string) (float64, bool) {
	v, ok := c.idf[term]
	return v, ok
}

// Vocabulary returns the number of distinct terms with a cached IDF.
func (c *Corpus) Vocabulary() int {
	return len(c.idf)
}

// Fingerprint identifies the exact content this corpus was built from.
func (c *Corpus) Fingerprint() string {
	return c.fingerprint
}

func fingerprint(entries []Entry, kept []string) string {
	h := sha256.New()
	bodies := make(map[string]string, len(kept))
	for _, e := range entries {
		if _, ok := bodies[e.Name]; !ok {
			bodies[e.Name] = e.Body
		}
	}
	for _, name := range kept {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(bodies[name]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
