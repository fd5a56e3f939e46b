package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/tracing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDPropagated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "hook-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "hook-123", seen)
	assert.Equal(t, "hook-123", rec.Header().Get(RequestIDHeader))
}

func TestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	rec := httptest.NewRecorder()
	Timeout(10*time.Millisecond)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.JSONEq(t, `{"error":"request timed out"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Timeout(time.Second)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTimeoutKeepsHandlerResponse(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Skill-Count", "2")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	})
	rec := httptest.NewRecorder()
	Timeout(time.Second)(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Skill-Count"))
	assert.Equal(t, "created", rec.Body.String())
}

func TestTimeoutDisabled(t *testing.T) {
	h := okHandler()
	rec := httptest.NewRecorder()
	Timeout(0)(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/inject", nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["status"] == "418" && labels["path"] == "/api/v1/inject" {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestTracingUsesRequestID(t *testing.T) {
	var span *tracing.Span
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span = tracing.SpanFromContext(r.Context())
	})
	h := RequestID(Tracing(tracing.NewSampler(0))(inner))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inject", nil)
	req.Header.Set(RequestIDHeader, "trace-me")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, span)
	assert.Equal(t, "trace-me", span.TraceID)
	assert.Equal(t, "POST /api/v1/inject", span.Name)
	status, ok := span.Attr("status")
	assert.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
}

func TestLimiterAllow(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewLimiter(2, time.Second)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	now = now.Add(500 * time.Millisecond)
	assert.True(t, l.Allow("a"), "one token refilled")
	assert.False(t, l.Allow("a"))

	now = now.Add(10 * time.Second)
	l.sweep()
	assert.Empty(t, l.buckets)
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimit(NewLimiter(1, time.Hour))(okHandler())

	send := func(path, client string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if client != "" {
			req.Header.Set(ClientIDHeader, client)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("/api/v1/inject", "hook"))
	assert.Equal(t, http.StatusTooManyRequests, send("/api/v1/inject", "hook"))
	assert.Equal(t, http.StatusOK, send("/api/v1/inject", "other"))
	assert.Equal(t, http.StatusOK, send("/health/ready", "hook"))
	assert.Equal(t, http.StatusOK, send("/api/v1/inject", ""))
	assert.Equal(t, http.StatusTooManyRequests, send("/api/v1/inject", ""))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/api/v1/skills/{name}", normalizePath("/api/v1/skills/python-data"))
	assert.Equal(t, "/api/v1/skills", normalizePath("/api/v1/skills"))
}
