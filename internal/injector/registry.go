package injector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/skills"
	apperrors "github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/metrics"
)

// Snapshot is one published generation of the corpus.
type Snapshot struct {
	Selector *Selector
	Skills   map[string]skills.Skill
	LoadedAt time.Time
}

// ReloadResult describes a completed reload.
type ReloadResult struct {
	Skills      int       `json:"skills"`
	Fingerprint string    `json:"fingerprint"`
	Changed     bool      `json:"changed"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// Registry owns the active Snapshot. Readers load it without locking;
// Reload builds a fresh corpus and publishes it with a single atomic store.
type Registry struct {
	source  skills.Source
	cfg     Config
	metrics *metrics.Metrics
	current atomic.Pointer[Snapshot]
	reload  sync.Mutex
	logger  *slog.Logger
}

// NewRegistry creates an empty Registry. m may be nil.
func NewRegistry(source skills.Source, cfg Config, m *metrics.Metrics) *Registry {
	return &Registry{
		source:  source,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "skill-registry"),
	}
}

// Reload fetches the skills from the source and swaps in a new Selector.
// A reload that overlaps another returns ErrReloadInProgress. On failure
// the previous snapshot stays active.
func (r *Registry) Reload(ctx context.Context) (ReloadResult, error) {
	if !r.reload.TryLock() {
		return ReloadResult{}, apperrors.ErrReloadInProgress
	}
	defer r.reload.Unlock()

	start := time.Now()
	list, err := r.source.ListSkills(ctx)
	if err != nil {
		r.recordReload("error")
		r.logger.Error("corpus reload failed", "error", err)
		return ReloadResult{}, fmt.Errorf("%w: %v", apperrors.ErrCorpusUnavailable, err)
	}

	snap := buildSnapshot(list, r.cfg)
	previous := r.current.Swap(snap)

	result := ReloadResult{
		Skills:      snap.Selector.Corpus().TotalDocuments(),
		Fingerprint: snap.Selector.Corpus().Fingerprint(),
		Changed:     previous == nil || previous.Selector.Corpus().Fingerprint() != snap.Selector.Corpus().Fingerprint(),
		LoadedAt:    snap.LoadedAt,
	}
	r.recordReload("ok")
	if r.metrics != nil {
		r.metrics.CorpusDocuments.Set(float64(result.Skills))
	}
	r.logger.Info("corpus reloaded",
		"skills", result.Skills,
		"fingerprint", result.Fingerprint,
		"changed", result.Changed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func buildSnapshot(list []skills.Skill, cfg Config) *Snapshot {
	corpus := index.Build(skills.Entries(list))
	byName := make(map[string]skills.Skill, len(list))
	for _, s := range list {
		if _, dup := byName[s.Name]; !dup {
			byName[s.Name] = s
		}
	}
	return &Snapshot{
		Selector: NewSelector(corpus, skills.KeywordMap(list), cfg),
		Skills:   byName,
		LoadedAt: time.Now().UTC(),
	}
}

func (r *Registry) recordReload(status string) {
	if r.metrics != nil {
		r.metrics.CorpusReloadsTotal.WithLabelValues(status).Inc()
	}
}

// Current returns the active snapshot, or ErrCorpusUnavailable before the
// first successful reload.
func (r *Registry) Current() (*Snapshot, error) {
	snap := r.current.Load()
	if snap == nil {
		return nil, apperrors.ErrCorpusUnavailable
	}
	return snap, nil
}

// Selector returns the active selector.
func (r *Registry) Selector() (*Selector, error) {
	snap, err := r.Current()
	if err != nil {
		return nil, err
	}
	return snap.Selector, nil
}

// Skill looks up one skill in the active snapshot.
func (r *Registry) Skill(name string) (skills.Skill, error) {
	snap, err := r.Current()
	if err != nil {
		return skills.Skill{}, err
	}
	s, ok := snap.Skills[name]
	if !ok {
		return skills.Skill{}, apperrors.Newf(apperrors.ErrSkillNotFound, http.StatusNotFound, "no skill named %q", name)
	}
	return s, nil
}

// Skills lists the active skills sorted by name.
func (r *Registry) Skills() ([]skills.Skill, error) {
	snap, err := r.Current()
	if err != nil {
		return nil, err
	}
	list := make([]skills.Skill, 0, len(snap.Skills))
	for _, s := range snap.Skills {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}
