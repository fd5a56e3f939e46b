package injector

import (
	"context"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/tracing"
)

// OutcomeCache is satisfied by *cache.SelectionCache.
type OutcomeCache interface {
	GetOrCompute(ctx context.Context, fingerprint, message string, compute func() (Outcome, error)) (Outcome, bool, error)
}

// EventTracker is satisfied by *analytics.Collector.
type EventTracker interface {
	Track(event analytics.InjectionEvent)
}

// Result is an Outcome plus request metadata.
type Result struct {
	Outcome
	CacheHit    bool          `json:"cache_hit"`
	Fingerprint string        `json:"fingerprint"`
	Latency     time.Duration `json:"-"`
}

type ServiceOption func(*Service)

// WithCache enables result caching.
func WithCache(c OutcomeCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithTracker sends an InjectionEvent per request to t.
func WithTracker(t EventTracker) ServiceOption {
	return func(s *Service) { s.tracker = t }
}

// WithMetrics records Prometheus metrics per request.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithMaxMessageBytes rejects longer messages with ErrInvalidInput. Zero
// disables the check.
func WithMaxMessageBytes(n int) ServiceOption {
	return func(s *Service) { s.maxMessageBytes = n }
}

// Service is the request-level entry point shared by the HTTP and RPC
// transports.
type Service struct {
	registry        *Registry
	cache           OutcomeCache
	tracker         EventTracker
	metrics         *metrics.Metrics
	maxMessageBytes int
}

func NewService(registry *Registry, opts ...ServiceOption) *Service {
	s := &Service{registry: registry}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry the service selects from.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Inject selects the skills for message against the active corpus.
func (s *Service) Inject(ctx context.Context, message string) (Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if s.maxMessageBytes > 0 && len(message) > s.maxMessageBytes {
		return Result{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge,
			"message is %d bytes, limit is %d", len(message), s.maxMessageBytes)
	}

	snap, err := s.registry.Current()
	if err != nil {
		s.recordError()
		return Result{}, err
	}
	selector := snap.Selector
	fingerprint := selector.Corpus().Fingerprint()

	ctx, span := tracing.StartChildSpan(ctx, "injector.select")
	defer span.End()
	span.SetAttr("mode", selector.Config().Mode())

	compute := func() (Outcome, error) {
		_, child := tracing.StartChildSpan(ctx, "selector.compute")
		defer child.End()
		return selector.Select(message), nil
	}

	var out Outcome
	cacheHit := false
	cacheStatus := "none"
	if s.cache != nil {
		out, cacheHit, err = s.cache.GetOrCompute(ctx, fingerprint, message, compute)
		if err != nil {
			s.recordError()
			return Result{}, err
		}
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		out, _ = compute()
	}
	span.SetAttr("cache", cacheStatus)
	span.SetAttr("selected", len(out.Selections))

	result := Result{
		Outcome:     out,
		CacheHit:    cacheHit,
		Fingerprint: fingerprint,
		Latency:     time.Since(start),
	}
	s.record(result, cacheStatus)
	if s.tracker != nil {
		s.tracker.Track(analytics.InjectionEvent{
			Type:         analytics.EventInjection,
			Mode:         out.Mode,
			Selected:     out.Names(),
			Negated:      out.Negated,
			MessageBytes: len(message),
			LatencyUs:    result.Latency.Microseconds(),
			CacheHit:     cacheHit,
			Fingerprint:  fingerprint,
			RequestID:    logger.RequestID(ctx),
			Timestamp:    time.Now().UTC(),
		})
	}

	log.Debug("skills selected",
		"mode", out.Mode,
		"selected", out.Names(),
		"negated", out.Negated,
		"cache", cacheStatus,
		"latency_us", result.Latency.Microseconds(),
	)
	return result, nil
}

func (s *Service) record(r Result, cacheStatus string) {
	if s.metrics == nil {
		return
	}
	outcome := "selected"
	if len(r.Selections) == 0 {
		outcome = "empty"
	}
	s.metrics.InjectionsTotal.WithLabelValues(r.Mode, outcome).Inc()
	s.metrics.SelectionLatency.WithLabelValues(cacheStatus).Observe(r.Latency.Seconds())
	s.metrics.SelectionSize.Observe(float64(len(r.Selections)))
	for _, sel := range r.Selections {
		s.metrics.SkillsSelectedTotal.WithLabelValues(sel.Name).Inc()
	}
	for _, name := range r.Negated {
		s.metrics.NegationDropsTotal.WithLabelValues(name).Inc()
	}
}

func (s *Service) recordError() {
	if s.metrics == nil {
		return
	}
	s.metrics.InjectionsTotal.WithLabelValues(s.registry.cfg.Mode(), "error").Inc()
}
