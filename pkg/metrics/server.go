package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// StartServer exposes GET /metrics on its own port, outside the API
// middleware chain, and returns the function that stops it. A port that
// cannot be bound is logged and metrics stay unexported.
func StartServer(port int) (shutdown func(context.Context) error) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		slog.Error("metrics listener failed", "addr", server.Addr, "error", err)
		return func(context.Context) error { return nil }
	}

	slog.Info("metrics server listening", "addr", ln.Addr().String())
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	return server.Shutdown
}
