package injector

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/tracing"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string]Outcome
	err  error
}

func (c *mapCache) GetOrCompute(_ context.Context, fingerprint, message string, compute func() (Outcome, error)) (Outcome, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return Outcome{}, false, c.err
	}
	key := fingerprint + "|" + strings.ToLower(message)
	if out, ok := c.data[key]; ok {
		return out, true, nil
	}
	out, err := compute()
	if err != nil {
		return Outcome{}, false, err
	}
	c.data[key] = out
	return out, false, nil
}

type eventSink struct {
	events []analytics.InjectionEvent
}

func (s *eventSink) Track(e analytics.InjectionEvent) {
	s.events = append(s.events, e)
}

func loadedRegistry(t *testing.T, cfg Config) *Registry {
	t.Helper()
	r := NewRegistry(&fakeSource{list: sampleSkills()}, cfg, nil)
	_, err := r.Reload(context.Background())
	require.NoError(t, err)
	return r
}

func TestServiceInject(t *testing.T) {
	sink := &eventSink{}
	svc := NewService(loadedRegistry(t, DefaultConfig()), WithTracker(sink))

	ctx := logger.WithRequestID(context.Background(), "req-1")
	res, err := svc.Inject(ctx, "typescript please")
	require.NoError(t, err)
	assert.Equal(t, []string{"typescript-tdd"}, res.Names())
	assert.Equal(t, ModeRelevance, res.Mode)
	assert.False(t, res.CacheHit)
	assert.NotEmpty(t, res.Fingerprint)

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.Equal(t, analytics.EventInjection, ev.Type)
	assert.Equal(t, []string{"typescript-tdd"}, ev.Selected)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, len("typescript please"), ev.MessageBytes)
	assert.Equal(t, res.Fingerprint, ev.Fingerprint)
}

func TestServiceInjectUsesCache(t *testing.T) {
	c := &mapCache{data: make(map[string]Outcome)}
	svc := NewService(loadedRegistry(t, DefaultConfig()), WithCache(c))

	first, err := svc.Inject(context.Background(), "Pandas notebooks")
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := svc.Inject(context.Background(), "pandas notebooks")
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Names(), second.Names())

	c.err = errors.New("boom")
	_, err = svc.Inject(context.Background(), "pandas")
	assert.EqualError(t, err, "boom")
}

func TestServiceInjectBeforeLoad(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(NewRegistry(&fakeSource{}, DefaultConfig(), nil), WithMetrics(m))
	_, err := svc.Inject(context.Background(), "anything")
	assert.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatusCode(err))
}

func TestServiceInjectMessageLimit(t *testing.T) {
	svc := NewService(loadedRegistry(t, DefaultConfig()), WithMaxMessageBytes(8))
	_, err := svc.Inject(context.Background(), "a message that is far too long")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, http.StatusRequestEntityTooLarge, apperrors.HTTPStatusCode(err))

	_, err = svc.Inject(context.Background(), "pandas")
	assert.NoError(t, err)
}

func TestServiceInjectRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := NewService(loadedRegistry(t, DefaultConfig()), WithMetrics(m))

	_, err := svc.Inject(context.Background(), "typescript please")
	require.NoError(t, err)
	_, err = svc.Inject(context.Background(), "nothing relevant")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "skill_injections_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "outcome" {
					counts[l.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 1.0, counts["selected"])
	assert.Equal(t, 1.0, counts["empty"])
}

func TestServiceInjectAddsSpans(t *testing.T) {
	svc := NewService(loadedRegistry(t, DefaultConfig()))
	ctx, root := tracing.StartSpan(context.Background(), "request", "trace-1")
	_, err := svc.Inject(ctx, "typescript please")
	require.NoError(t, err)
	root.End()

	children := root.ChildSpans()
	require.Len(t, children, 1)
	assert.Equal(t, "injector.select", children[0].Name)
	assert.Equal(t, "trace-1", children[0].TraceID)
	require.Len(t, children[0].ChildSpans(), 1)
	assert.Equal(t, "selector.compute", children[0].ChildSpans()[0].Name)
}
