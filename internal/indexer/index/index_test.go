package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermFrequency(t *testing.T) {
	doc := Document{"go", "test", "go", "bench", "go"}
	assert.Equal(t, 3, TermFrequency("go", doc))
	assert.Equal(t, 1, TermFrequency("bench", doc))
	assert.Equal(t, 0, TermFrequency("rust", doc))
	assert.Equal(t, 0, TermFrequency("Go", doc), "comparison is case-sensitive")
	assert.Equal(t, 0, TermFrequency("go", nil))
}

func TestInverseDocumentFrequency(t *testing.T) {
	docs := []Document{
		{"alpha", "beta"},
		{"alpha", "gamma"},
		{"alpha", "delta"},
	}

	// n = 3, N = 3: ln(0.5/3.5 + 1)
	assert.InDelta(t, math.Log(0.5/3.5+1), InverseDocumentFrequency("alpha", docs, 3), 1e-12)
	// n = 1, N = 3: ln(2.5/1.5 + 1)
	assert.InDelta(t, math.Log(2.5/1.5+1), InverseDocumentFrequency("beta", docs, 3), 1e-12)
	// n = 0: ln(3.5/0.5 + 1) = ln(8)
	assert.InDelta(t, math.Log(8), InverseDocumentFrequency("omega", docs, 3), 1e-12)
}

func TestInverseDocumentFrequencyMonotonic(t *testing.T) {
	const total = 10
	prev := math.Inf(1)
	for n := 0; n <= total; n++ {
		idf := computeIDF(total, n)
		assert.GreaterOrEqual(t, idf, 0.0)
		assert.LessOrEqual(t, idf, prev, "idf must not increase with document frequency (n=%d)", n)
		prev = idf
	}
	assert.Greater(t, computeIDF(total, total), 0.0)
	assert.Less(t, computeIDF(1000, 1000), math.Ln2)
}

func TestBuild(t *testing.T) {
	c := Build([]Entry{
		{Name: "typescript-tdd", Body: "TypeScript development with test-driven development"},
		{Name: "security-review", Body: "Review code for security flaws"},
	})

	require.Equal(t, 2, c.TotalDocuments())
	assert.Equal(t, []string{"typescript-tdd", "security-review"}, c.Names())

	doc, ok := c.Document(0)
	require.True(t, ok)
	assert.Equal(t, Document{"typescript-tdd", "typescript", "development", "with", "test-driven", "development"}, doc)

	doc1, ok := c.Document(1)
	require.True(t, ok)
	assert.Equal(t, 6, doc1.Len())
	assert.InDelta(t, 6.0, c.AverageDocumentLength(), 1e-12)

	pos, ok := c.Position("security-review")
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	_, ok = c.Document(2)
	assert.False(t, ok)
	_, ok = c.Document(-1)
	assert.False(t, ok)
}

func TestBuildIDFCacheCoversExactlyCorpusTerms(t *testing.T) {
	c := Build([]Entry{
		{Name: "a", Body: "x y"},
		{Name: "b", Body: "y z z"},
	})
	terms := map[string]struct{}{}
	for i := 0; i < c.TotalDocuments(); i++ {
		doc, _ := c.Document(i)
		for _, tok := range doc {
			terms[tok] = struct{}{}
		}
	}
	assert.Equal(t, len(terms), c.Vocabulary())
	for term := range terms {
		got, ok := c.IDF(term)
		require.True(t, ok, term)
		docs := []Document{}
		for i := 0; i < c.TotalDocuments(); i++ {
			doc, _ := c.Document(i)
			docs = append(docs, doc)
		}
		assert.InDelta(t, InverseDocumentFrequency(term, docs, c.TotalDocuments()), got, 1e-12, term)
	}
	_, ok := c.IDF("missing")
	assert.False(t, ok)
}

func TestBuildEmptyCorpus(t *testing.T) {
	c := Build(nil)
	assert.Equal(t, 0, c.TotalDocuments())
	assert.Equal(t, 0.0, c.AverageDocumentLength())
	assert.False(t, math.IsNaN(c.AverageDocumentLength()))
	assert.Empty(t, c.Names())
	assert.Equal(t, 0, c.Vocabulary())

	fromMap := BuildFromMap(map[string]string{})
	assert.Equal(t, 0, fromMap.TotalDocuments())
	assert.Equal(t, 0.0, fromMap.AverageDocumentLength())
}

func TestBuildDuplicateNameKeepsFirst(t *testing.T) {
	c := Build([]Entry{
		{Name: "dup", Body: "first body"},
		{Name: "other", Body: "something"},
		{Name: "dup", Body: "second body"},
	})
	require.Equal(t, 2, c.TotalDocuments())
	doc, _ := c.Document(0)
	assert.Contains(t, doc, "first")
	assert.NotContains(t, doc, "second")
}

func TestBuildFromMapSortsNames(t *testing.T) {
	c := BuildFromMap(map[string]string{
		"zeta":  "last",
		"alpha": "first",
		"mid":   "middle",
	})
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, c.Names())
}

func TestFingerprint(t *testing.T) {
	a := Build([]Entry{{Name: "a", Body: "one"}})
	b := Build([]Entry{{Name: "a", Body: "one"}})
	c := Build([]Entry{{Name: "a", Body: "two"}})
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestNamesReturnsCopy(t *testing.T) {
	c := Build([]Entry{{Name: "a", Body: "one"}})
	names := c.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"a"}, c.Names())
}
