// Package proto defines the messages exchanged over the JSON-over-TCP RPC
// layer (see pkg/grpc). The host hook calls InjectionService.ProcessMessage
// once per user prompt and injects the returned skills.
package proto

// Method names registered by the injection service.
const (
	MethodProcessMessage = "InjectionService.ProcessMessage"
	MethodStats          = "InjectionService.Stats"
	MethodReload         = "InjectionService.Reload"
)

// HealthCheckResponse mirrors the gRPC health check status values.
type HealthCheckResponse struct {
	Status string `json:"status"` // SERVING, NOT_SERVING, UNKNOWN
}

// ProcessMessageRequest carries the raw prompt text.
type ProcessMessageRequest struct {
	Message string `json:"message"`
}

// ProcessMessageResponse lists the skills to inject, in order.
type ProcessMessageResponse struct {
	Skills    []Selection `json:"skills"`
	Negated   []string    `json:"negated,omitempty"`
	Mode      string      `json:"mode"`
	CacheHit  bool        `json:"cache_hit"`
	LatencyUs int64       `json:"latency_us"`
}

// Selection is one chosen skill with its body so the hook can inject it
// without a second call.
type Selection struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score,omitempty"`
	Pattern string  `json:"pattern,omitempty"`
	Content string  `json:"content,omitempty"`
}

type StatsRequest struct{}

// StatsResponse describes the active corpus.
type StatsResponse struct {
	Skills      int     `json:"skills"`
	Fingerprint string  `json:"fingerprint"`
	AvgLength   float64 `json:"avg_length"`
	Terms       int     `json:"terms"`
	Mode        string  `json:"mode"`
	LoadedAt    int64   `json:"loaded_at"`
}

type ReloadRequest struct{}

type ReloadResponse struct {
	Skills      int    `json:"skills"`
	Fingerprint string `json:"fingerprint"`
	Changed     bool   `json:"changed"`
}
