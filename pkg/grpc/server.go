// Package grpc is a small JSON-over-TCP RPC layer used by the host hook to
// reach the injection service without an HTTP round trip.
//
// Protocol: newline-delimited JSON over a persistent TCP connection. Each
// request carries a method name, a correlation ID and an optional trace ID
// that the server places in the handler context as the request ID.
//
//	s := grpc.NewServer(2 * time.Second)
//	s.Register(proto.MethodProcessMessage, func(ctx context.Context, req json.RawMessage) (any, error) {
//	    var in proto.ProcessMessageRequest
//	    if err := json.Unmarshal(req, &in); err != nil {
//	        return nil, err
//	    }
//	    ...
//	})
//	go s.Serve(":9000")
//
//	c, _ := grpc.Dial("localhost:9000")
//	var out proto.ProcessMessageResponse
//	err := c.Call(ctx, proto.MethodProcessMessage, &proto.ProcessMessageRequest{Message: msg}, &out)
package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/logger"
)

// HandlerFunc processes an RPC request and returns a response or error.
type HandlerFunc func(ctx context.Context, req json.RawMessage) (any, error)

// Request is the wire format for an RPC request.
type Request struct {
	Method  string          `json:"method"`
	ID      string          `json:"id"`
	TraceID string          `json:"trace_id,omitempty"`
	Params  json.RawMessage `json:"params"`
}

// Response is the wire format for an RPC response.
type Response struct {
	ID    string `json:"id"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Server is a lightweight JSON-over-TCP RPC server.
type Server struct {
	handlers map[string]HandlerFunc
	timeout  time.Duration
	listener net.Listener
	logger   *slog.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
	conns    map[net.Conn]struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a server. timeout bounds each handler call; zero means
// no limit.
func NewServer(timeout time.Duration) *Server {
	return &Server{
		handlers: make(map[string]HandlerFunc),
		timeout:  timeout,
		logger:   slog.Default().With("component", "rpc-server"),
		conns:    make(map[net.Conn]struct{}),
		done:     make(chan struct{}),
	}
}

// Register adds a handler for the given RPC method name.
// Method names follow the "Service.Method" convention.
func (s *Server) Register(method string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
	s.logger.Debug("method registered", "method", method)
}

// Serve listens on addr and blocks until Stop is called.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.ServeListener(ln)
}

// ServeListener accepts connections on ln until Stop is called.
func (s *Server) ServeListener(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	select {
	case <-s.done:
		ln.Close()
		return nil
	default:
	}
	s.logger.Info("rpc server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
				s.logger.Error("accept error", "error", err)
				continue
			}
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			return
		}
		resp := s.dispatch(req)
		if err := encoder.Encode(resp); err != nil {
			s.logger.Error("write error", "method", req.Method, "error", err)
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	s.mu.RLock()
	handler, exists := s.handlers[req.Method]
	s.mu.RUnlock()

	resp := Response{ID: req.ID}
	if !exists {
		resp.Error = fmt.Sprintf("unknown method: %s", req.Method)
		return resp
	}

	ctx := context.Background()
	if req.TraceID != "" {
		ctx = logger.WithRequestID(ctx, req.TraceID)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	data, err := invoke(ctx, handler, req.Params)
	if err != nil {
		logger.FromContext(ctx).Warn("rpc handler failed", "method", req.Method, "error", err)
		resp.Error = err.Error()
		return resp
	}
	resp.Data = data
	return resp
}

// invoke runs handler and reports a panic as an error.
func invoke(ctx context.Context, handler HandlerFunc, params json.RawMessage) (data any, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.FromContext(ctx).Error("rpc handler panicked", "panic", p)
			data, err = nil, fmt.Errorf("internal error: %v", p)
		}
	}()
	return handler(ctx, params)
}

// MethodCount returns the number of registered methods.
func (s *Server) MethodCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every open connection, then waits for the
// connection goroutines to exit.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
		s.logger.Info("rpc server stopped")
	})
}
