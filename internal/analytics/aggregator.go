package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalInjections  int64            `json:"total_injections"`
	EmptySelections  int64            `json:"empty_selections"`
	NegationDrops    int64            `json:"negation_drops"`
	CacheHits        int64            `json:"cache_hits"`
	CacheMisses      int64            `json:"cache_misses"`
	ByMode           map[string]int64 `json:"by_mode"`
	AvgLatencyUs     float64          `json:"avg_latency_us"`
	P50LatencyUs     int64            `json:"p50_latency_us"`
	P95LatencyUs     int64            `json:"p95_latency_us"`
	P99LatencyUs     int64            `json:"p99_latency_us"`
	TopSkills        []SkillCount     `json:"top_skills"`
	TopNegated       []SkillCount     `json:"top_negated"`
	InjectionsPerMin float64          `json:"injections_per_minute"`
}

type SkillCount struct {
	Skill string `json:"skill"`
	Count int64  `json:"count"`
}

// EventSource drives the aggregator; *kafka.Consumer satisfies it.
type EventSource interface {
	Start(ctx context.Context) error
}

type Aggregator struct {
	mu              sync.RWMutex
	totalInjections atomic.Int64
	emptySelections atomic.Int64
	negationDrops   atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
	latencies       []int64
	next            int
	byMode          map[string]int64
	selected        map[string]int64
	negated         map[string]int64
	startTime       time.Time

	source EventSource
	logger *slog.Logger
}

// NewAggregator creates an Aggregator. source may be nil when events are
// recorded directly.
func NewAggregator(source EventSource) *Aggregator {
	return &Aggregator{
		latencies: make([]int64, 0, 1024),
		byMode:    make(map[string]int64),
		selected:  make(map[string]int64),
		negated:   make(map[string]int64),
		startTime: time.Now(),
		source:    source,
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// SetSource attaches the event source after construction, which lets the
// consumer be built with HandleEvent(agg).
func (a *Aggregator) SetSource(source EventSource) {
	a.source = source
}

func (a *Aggregator) Start(ctx context.Context) error {
	if a.source == nil {
		<-ctx.Done()
		return nil
	}
	a.logger.Info("analytics aggregator starting")
	return a.source.Start(ctx)
}

// HandleEvent returns a Kafka MessageHandler feeding agg. Undecodable
// messages are logged and skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[InjectionEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Record folds one event into the running totals.
func (a *Aggregator) Record(event InjectionEvent) {
	a.totalInjections.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if len(event.Selected) == 0 {
		a.emptySelections.Add(1)
	}
	a.negationDrops.Add(int64(len(event.Negated)))

	a.mu.Lock()
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyUs)
	} else {
		a.latencies[a.next] = event.LatencyUs
		a.next = (a.next + 1) % maxLatencySamples
	}
	a.byMode[event.Mode]++
	for _, name := range event.Selected {
		a.selected[name]++
	}
	for _, name := range event.Negated {
		a.negated[name]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalInjections: a.totalInjections.Load(),
		EmptySelections: a.emptySelections.Load(),
		NegationDrops:   a.negationDrops.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ByMode:          make(map[string]int64, len(a.byMode)),
	}
	for mode, n := range a.byMode {
		stats.ByMode[mode] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyUs = float64(sum) / float64(len(sorted))
		stats.P50LatencyUs = percentile(sorted, 50)
		stats.P95LatencyUs = percentile(sorted, 95)
		stats.P99LatencyUs = percentile(sorted, 99)
	}
	stats.TopSkills = topN(a.selected, 10)
	stats.TopNegated = topN(a.negated, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.InjectionsPerMin = float64(stats.TotalInjections) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n highest counts; equal counts are ordered by name.
func topN(counts map[string]int64, n int) []SkillCount {
	result := make([]SkillCount, 0, len(counts))
	for skill, count := range counts {
		result = append(result, SkillCount{Skill: skill, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Skill < result[j].Skill
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
