package ranker

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/indexer/index"
)

func testCorpus() *index.Corpus {
	return index.Build([]index.Entry{
		{Name: "typescript-tdd", Body: "TypeScript development with test-driven development"},
		{Name: "security-review", Body: "Review code for security vulnerabilities and injection flaws in web applications"},
		{Name: "python-data", Body: "Python data analysis with pandas"},
	})
}

func TestScoreConcreteScenario(t *testing.T) {
	c := index.Build([]index.Entry{
		{Name: "A", Body: "TypeScript development with test-driven development"},
	})
	score := Score("typescript development", 0, c, DefaultConfig())
	assert.Greater(t, score, 0.0)
}

func TestScoreMatchesFormula(t *testing.T) {
	c := testCorpus()
	cfg := DefaultConfig()
	doc, ok := c.Document(0)
	require.True(t, ok)

	want := 0.0
	for _, term := range []string{"typescript", "development"} {
		idf, ok := c.IDF(term)
		require.True(t, ok)
		tf := float64(index.TermFrequency(term, doc))
		want += idf * (tf * (cfg.K1 + 1)) /
			(tf + cfg.K1*(1-cfg.B+cfg.B*float64(doc.Len())/c.AverageDocumentLength()))
	}
	assert.InDelta(t, want, Score("typescript development", 0, c, cfg), 1e-12)
}

func TestScoreDuplicateQueryTokensCountTwice(t *testing.T) {
	c := testCorpus()
	once := Score("security", 1, c, DefaultConfig())
	twice := Score("security security", 1, c, DefaultConfig())
	require.Greater(t, once, 0.0)
	assert.InDelta(t, 2*once, twice, 1e-12)
}

func TestScoreZeroOverlap(t *testing.T) {
	c := testCorpus()
	for pos := 0; pos < c.TotalDocuments(); pos++ {
		assert.Equal(t, 0.0, Score("kubernetes helm charts", pos, c, DefaultConfig()))
	}
	assert.Equal(t, 0.0, Score("", 0, c, DefaultConfig()))
}

func TestScoreOutOfBounds(t *testing.T) {
	c := testCorpus()
	assert.Equal(t, 0.0, Score("typescript", -1, c, DefaultConfig()))
	assert.Equal(t, 0.0, Score("typescript", c.TotalDocuments(), c, DefaultConfig()))
	assert.Equal(t, 0.0, Score("typescript", 0, index.Build(nil), DefaultConfig()))
}

func TestScoreNonNegative(t *testing.T) {
	c := testCorpus()
	queries := []string{"typescript", "security review", "python pandas data", "development development", "flaws"}
	for _, q := range queries {
		for pos := 0; pos < c.TotalDocuments(); pos++ {
			s := Score(q, pos, c, DefaultConfig())
			assert.GreaterOrEqual(t, s, 0.0, "query %q pos %d", q, pos)
			assert.False(t, math.IsNaN(s))
		}
	}
}

func TestScoreK1Sensitivity(t *testing.T) {
	// "development" appears twice in document 0, so tf differs from the
	// length-normalisation factor and k1 has a visible effect.
	c := testCorpus()
	low := DefaultConfig()
	low.K1 = 0.5
	high := DefaultConfig()
	high.K1 = 3.0
	sLow := Score("development", 0, c, low)
	sHigh := Score("development", 0, c, high)
	assert.NotEqual(t, sLow, sHigh)
	assert.Greater(t, sHigh, sLow, "larger k1 gives higher term frequency more weight")
}

func TestScoreBSensitivity(t *testing.T) {
	// Document 1 is longer than average, so length normalisation matters.
	c := testCorpus()
	doc, _ := c.Document(1)
	require.NotEqual(t, float64(doc.Len()), c.AverageDocumentLength())

	none := DefaultConfig()
	none.B = 0
	full := DefaultConfig()
	full.B = 1
	sNone := Score("security", 1, c, none)
	sFull := Score("security", 1, c, full)
	assert.NotEqual(t, sNone, sFull)
	assert.Greater(t, sNone, sFull, "a long document is penalised by full normalisation")
}

func TestScoreBZeroDisablesLengthNormalisation(t *testing.T) {
	c := testCorpus()
	cfg := DefaultConfig()
	cfg.B = 0
	idf, _ := c.IDF("security")
	// With b=0 the denominator is tf + k1.
	want := idf * (1 * (cfg.K1 + 1)) / (1 + cfg.K1)
	assert.InDelta(t, want, Score("security", 1, c, cfg), 1e-12)
}

func TestRankOrdersAndFilters(t *testing.T) {
	c := testCorpus()
	names := c.Names()

	all := Rank("typescript development security", names, c, DefaultConfig())
	require.Len(t, all, 3, "threshold 0 keeps zero-score entries")
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}
	assert.Equal(t, "typescript-tdd", all[0].Name)

	cfg := DefaultConfig()
	cfg.Threshold = 0.5
	filtered := Rank("typescript development security", names, c, cfg)
	for _, r := range filtered {
		assert.GreaterOrEqual(t, r.Score, cfg.Threshold)
	}
	assert.NotContains(t, namesOf(filtered), "python-data")
}

func TestRankUnrelatedQueryWithThreshold(t *testing.T) {
	c := index.BuildFromMap(map[string]string{
		"A": "TypeScript development with test-driven development",
		"B": "Security review checklist",
	})
	cfg := DefaultConfig()
	cfg.Threshold = 1.0
	assert.Empty(t, Rank("unrelated topic", c.Names(), c, cfg))
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	c := index.Build([]index.Entry{
		{Name: "one", Body: "shared words"},
		{Name: "two", Body: "shared words"},
		{Name: "three", Body: "shared words"},
	})
	got := Rank("shared", c.Names(), c, DefaultConfig())
	assert.Equal(t, []string{"one", "two", "three"}, namesOf(got))
}

func TestRankEmptyInputs(t *testing.T) {
	empty := index.Build(nil)
	assert.Empty(t, Rank("anything", nil, empty, DefaultConfig()))
	assert.Empty(t, TopN("anything", nil, empty, 3, DefaultConfig()))
}

func TestTopN(t *testing.T) {
	c := testCorpus()
	names := c.Names()

	top1 := TopN("typescript development", names, c, 1, DefaultConfig())
	require.Len(t, top1, 1)
	assert.Equal(t, "typescript-tdd", top1[0].Name)

	assert.Len(t, TopN("typescript", names, c, 10, DefaultConfig()), 3)
	assert.Empty(t, TopN("typescript", names, c, 0, DefaultConfig()))

	full := Rank("security typescript", names, c, DefaultConfig())
	assert.Equal(t, full[:2], TopN("security typescript", names, c, 2, DefaultConfig()))
}

func TestConfigApply(t *testing.T) {
	k1 := 2.0
	b := 0.0
	maxResults := 5
	cfg := DefaultConfig().Apply(Overrides{K1: &k1, B: &b, MaxResults: &maxResults})
	assert.Equal(t, 2.0, cfg.K1)
	assert.Equal(t, 0.0, cfg.B)
	assert.Equal(t, DefaultThreshold, cfg.Threshold)
	assert.Equal(t, 5, cfg.MaxResults)

	assert.Equal(t, DefaultConfig(), DefaultConfig().Apply(Overrides{}))
}

func namesOf(results []ScoredSkill) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Name
	}
	return out
}

func BenchmarkRank(b *testing.B) {
	entries := make([]index.Entry, 0, 200)
	for i := 0; i < 200; i++ {
		entries = append(entries, index.Entry{
			Name: fmt.Sprintf("skill-%d", i),
			Body: "test-driven development security review python typescript golang benchmarks",
		})
	}
	c := index.Build(entries)
	names := c.Names()
	cfg := DefaultConfig()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = TopN("please review the typescript security", names, c, 3, cfg)
	}
}
