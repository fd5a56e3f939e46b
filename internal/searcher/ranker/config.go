package ranker

// Default BM25 parameters.
const (
	DefaultK1         = 1.5
	DefaultB          = 0.75
	DefaultThreshold  = 0.0
	DefaultMaxResults = 3
)

// Config holds the BM25 tuning parameters and the result filters for one
// ranking call.
type Config struct {
	K1         float64 `json:"k1" yaml:"k1"`
	B          float64 `json:"b" yaml:"b"`
	Threshold  float64 `json:"threshold" yaml:"threshold"`
	MaxResults int     `json:"max_results" yaml:"maxResults"`
}

// DefaultConfig returns k1=1.5, b=0.75, threshold=0 and three results.
func DefaultConfig() Config {
	return Config{
		K1:         DefaultK1,
		B:          DefaultB,
		Threshold:  DefaultThreshold,
		MaxResults: DefaultMaxResults,
	}
}

// Overrides carries caller-supplied values. Nil fields keep the value of
// the Config they are applied to, so an explicit zero (b=0) is preserved.
type Overrides struct {
	K1         *float64
	B          *float64
	Threshold  *float64
	MaxResults *int
}

// Apply returns a copy of c with every non-nil override applied.
func (c Config) Apply(o Overrides) Config {
	if o.K1 != nil {
		c.K1 = *o.K1
	}
	if o.B != nil {
		c.B = *o.B
	}
	if o.Threshold != nil {
		c.Threshold = *o.Threshold
	}
	if o.MaxResults != nil {
		c.MaxResults = *o.MaxResults
	}
	return c
}
