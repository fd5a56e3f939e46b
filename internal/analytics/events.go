package analytics

import "time"

type EventType string

const (
	EventInjection EventType = "injection"
)

// InjectionEvent records the outcome of one selection request.
type InjectionEvent struct {
	Type         EventType `json:"type"`
	Mode         string    `json:"mode"`
	Selected     []string  `json:"selected"`
	Negated      []string  `json:"negated,omitempty"`
	MessageBytes int       `json:"message_bytes"`
	LatencyUs    int64     `json:"latency_us"`
	CacheHit     bool      `json:"cache_hit"`
	Fingerprint  string    `json:"fingerprint"`
	RequestID    string    `json:"request_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
