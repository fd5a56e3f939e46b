package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/tracing"
)

// Tracing opens a root span per request, using the request ID as trace ID,
// and logs the span tree for sampled requests. It must run inside RequestID.
func Tracing(sampler *tracing.Sampler) func(http.Handler) http.Handler {
	log := slog.Default().With("component", "tracing")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.StartSpan(r.Context(), r.Method+" "+r.URL.Path, logger.RequestID(r.Context()))
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))
			span.SetAttr("status", sw.status)
			span.End()
			if sampler.Sample() {
				span.Log(log)
			}
		})
	}
}
