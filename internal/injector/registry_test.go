package injector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/intent"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/skills"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/metrics"
)

type fakeSource struct {
	mu    sync.Mutex
	list  []skills.Skill
	err   error
	calls int
	block chan struct{}
}

func (f *fakeSource) ListSkills(ctx context.Context) ([]skills.Skill, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	list, err := f.list, f.err
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return list, err
}

func (f *fakeSource) set(list []skills.Skill, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list, f.err = list, err
}

func sampleSkills() []skills.Skill {
	return []skills.Skill{
		{Name: "typescript-tdd", Description: "TypeScript development with test-driven development", Keywords: []string{"tdd"}},
		{Name: "python-data", Description: "Python data analysis with pandas and notebooks"},
	}
}

func TestRegistryBeforeReload(t *testing.T) {
	r := NewRegistry(&fakeSource{}, DefaultConfig(), nil)
	_, err := r.Current()
	assert.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)
	_, err = r.Selector()
	assert.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)
	_, err = r.Skills()
	assert.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)
}

func TestRegistryReload(t *testing.T) {
	src := &fakeSource{list: sampleSkills()}
	m := metrics.New(prometheus.NewRegistry())
	r := NewRegistry(src, DefaultConfig(), m)

	first, err := r.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Skills)
	assert.True(t, first.Changed)
	assert.NotEmpty(t, first.Fingerprint)

	second, err := r.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	list, err := r.Skills()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "python-data", list[0].Name)

	sel, err := r.Selector()
	require.NoError(t, err)
	assert.Equal(t, []string{"typescript-tdd"}, sel.ProcessMessage("typescript please"))
}

func TestRegistryReloadFailureKeepsSnapshot(t *testing.T) {
	src := &fakeSource{list: sampleSkills()}
	r := NewRegistry(src, DefaultConfig(), nil)
	first, err := r.Reload(context.Background())
	require.NoError(t, err)

	src.set(nil, errors.New("disk gone"))
	_, err = r.Reload(context.Background())
	require.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)
	assert.Contains(t, err.Error(), "disk gone")

	snap, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, snap.Selector.Corpus().Fingerprint())
}

func TestRegistryReloadInProgress(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{list: sampleSkills(), block: block}
	r := NewRegistry(src, DefaultConfig(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := r.Reload(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls == 1
	}, time.Second, 5*time.Millisecond)

	_, err := r.Reload(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrReloadInProgress)

	close(block)
	require.NoError(t, <-done)
}

func TestRegistrySkill(t *testing.T) {
	r := NewRegistry(&fakeSource{list: sampleSkills()}, DefaultConfig(), nil)
	_, err := r.Reload(context.Background())
	require.NoError(t, err)

	s, err := r.Skill("python-data")
	require.NoError(t, err)
	assert.Contains(t, s.Description, "pandas")

	_, err = r.Skill("missing")
	require.ErrorIs(t, err, apperrors.ErrSkillNotFound)
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatusCode(err))
}

func TestRegistryDuplicateNamesFirstWins(t *testing.T) {
	list := []skills.Skill{
		{Name: "dup", Description: "first"},
		{Name: "dup", Description: "second"},
	}
	r := NewRegistry(&fakeSource{list: list}, DefaultConfig(), nil)
	_, err := r.Reload(context.Background())
	require.NoError(t, err)
	s, err := r.Skill("dup")
	require.NoError(t, err)
	assert.Equal(t, "first", s.Description)
}

type recordingPublisher struct {
	events []kafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event kafka.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func TestNotifier(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNotifier(pub, "instance-a")
	require.NoError(t, n.Notify(context.Background(), "api", ReloadResult{Skills: 4, Fingerprint: "abc"}))
	require.Len(t, pub.events, 1)
	assert.Equal(t, "instance-a", pub.events[0].Key)

	update := pub.events[0].Value.(CorpusUpdate)
	assert.Equal(t, "instance-a", update.Origin)
	assert.Equal(t, "api", update.Reason)
	assert.Equal(t, "abc", update.Fingerprint)
	assert.Equal(t, 4, update.Skills)

	data, err := json.Marshal(update)
	require.NoError(t, err)
	decoded, err := kafka.DecodeJSON[CorpusUpdate](data)
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Skills)
	assert.Contains(t, string(data), `"skills":4`)

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.Notify(context.Background(), "api", ReloadResult{}))
	assert.NoError(t, NewNotifier(nil, "x").Notify(context.Background(), "api", ReloadResult{}))
}

type countingReloader struct {
	calls int
	err   error
}

func (c *countingReloader) Reload(context.Context) (ReloadResult, error) {
	c.calls++
	return ReloadResult{Fingerprint: "f"}, c.err
}

func encodeUpdate(t *testing.T, origin string) []byte {
	t.Helper()
	data, err := json.Marshal(CorpusUpdate{Origin: origin, Reason: "test"})
	require.NoError(t, err)
	return data
}

func TestHandleCorpusUpdate(t *testing.T) {
	reloader := &countingReloader{}
	handle := HandleCorpusUpdate(reloader, "self")
	ctx := context.Background()

	require.NoError(t, handle(ctx, nil, encodeUpdate(t, "self")))
	assert.Equal(t, 0, reloader.calls, "own updates are ignored")

	require.NoError(t, handle(ctx, nil, encodeUpdate(t, "peer")))
	assert.Equal(t, 1, reloader.calls)

	require.NoError(t, handle(ctx, nil, []byte("not json")))
	assert.Equal(t, 1, reloader.calls)

	reloader.err = apperrors.ErrReloadInProgress
	assert.NoError(t, handle(ctx, nil, encodeUpdate(t, "peer")))

	reloader.err = apperrors.ErrCorpusUnavailable
	assert.ErrorIs(t, handle(ctx, nil, encodeUpdate(t, "peer")), apperrors.ErrCorpusUnavailable)
}

func TestConfigFromSettings(t *testing.T) {
	cfg := ConfigFromSettings(config.InjectionConfig{
		RelevanceEnabled:  true,
		K1:                1.2,
		B:                 0,
		Threshold:         0.5,
		MaxResults:        5,
		WordBoundary:      true,
		IntentDetection:   false,
		NegationDetection: true,
		IntentKeywords:    []string{" Activate "},
		NegationKeywords:  []string{"never"},
	})

	assert.Equal(t, ModeRelevance, cfg.Mode())
	assert.Equal(t, 1.2, cfg.Ranking.K1)
	assert.Equal(t, 0.0, cfg.Ranking.B, "explicit zero b is kept")
	assert.Equal(t, 0.5, cfg.Ranking.Threshold)
	assert.Equal(t, 5, cfg.Ranking.MaxResults)

	assert.True(t, cfg.Matching.WordBoundary)
	assert.False(t, cfg.Matching.IntentDetection)
	assert.True(t, cfg.Matching.NegationDetection)
	assert.Contains(t, cfg.Matching.IntentKeywords, "activate")
	assert.Contains(t, cfg.Matching.IntentKeywords, "use")
	assert.Contains(t, cfg.Matching.NegationKeywords, "never")
	assert.Equal(t, intent.DefaultIntentWindow, cfg.Matching.IntentWindow)

	assert.Equal(t, ModeHeuristic, ConfigFromSettings(config.InjectionConfig{}).Mode())
}
