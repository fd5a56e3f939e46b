// Package config loads application configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem (Server, RPC, Postgres, Kafka, Redis, Skills, Injection, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Skill source kinds accepted in SkillsConfig.Source.
const (
	SourceDir      = "dir"
	SourcePostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RPC       RPCConfig       `yaml:"rpc"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Skills    SkillsConfig    `yaml:"skills"`
	Injection InjectionConfig `yaml:"injection"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration   `yaml:"requestTimeout"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig bounds requests per client. Requests <= 0 disables it.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// RPCConfig controls the JSON-over-TCP endpoint used by the host hook.
type RPCConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	InjectionEvents string `yaml:"injectionEvents"`
	CorpusUpdates   string `yaml:"corpusUpdates"`
}

// RedisConfig holds Redis connection and selection-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// SkillsConfig selects where skill documents are loaded from.
type SkillsConfig struct {
	Source      string        `yaml:"source"`
	Dir         string        `yaml:"dir"`
	LoadTimeout time.Duration `yaml:"loadTimeout"`
}

// InjectionConfig is the configuration surface of the selection engine.
// Extra keyword lists extend the built-in defaults rather than replace them.
type InjectionConfig struct {
	RelevanceEnabled  bool     `yaml:"relevanceEnabled"`
	K1                float64  `yaml:"k1"`
	B                 float64  `yaml:"b"`
	Threshold         float64  `yaml:"threshold"`
	MaxResults        int      `yaml:"maxResults"`
	WordBoundary      bool     `yaml:"wordBoundary"`
	IntentDetection   bool     `yaml:"intentDetection"`
	NegationDetection bool     `yaml:"negationDetection"`
	IntentKeywords    []string `yaml:"intentKeywords"`
	NegationKeywords  []string `yaml:"negationKeywords"`
	MaxMessageBytes   int      `yaml:"maxMessageBytes"`
}

// AnalyticsConfig controls injection event collection and snapshotting.
type AnalyticsConfig struct {
	BufferSize        int           `yaml:"bufferSize"`
	SnapshotInterval  time.Duration `yaml:"snapshotInterval"`
	SnapshotRetention time.Duration `yaml:"snapshotRetention"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging for inject requests.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Skills.Source {
	case SourceDir:
		if c.Skills.Dir == "" {
			return fmt.Errorf("skills.dir is required when skills.source is %q", SourceDir)
		}
	case SourcePostgres:
	default:
		return fmt.Errorf("unknown skills.source %q", c.Skills.Source)
	}
	if c.Injection.K1 < 0 {
		return fmt.Errorf("injection.k1 must be non-negative, got %v", c.Injection.K1)
	}
	if c.Injection.B < 0 || c.Injection.B > 1 {
		return fmt.Errorf("injection.b must be within [0, 1], got %v", c.Injection.B)
	}
	if c.Server.RateLimit.Requests > 0 && c.Server.RateLimit.Window <= 0 {
		return fmt.Errorf("server.rateLimit.window must be positive when requests is set")
	}
	if c.Injection.MaxResults < 0 {
		return fmt.Errorf("injection.maxResults must be non-negative, got %d", c.Injection.MaxResults)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  5 * time.Second,
			RateLimit: RateLimitConfig{
				Requests: 600,
				Window:   time.Minute,
			},
		},
		RPC: RPCConfig{
			Enabled: true,
			Port:    9000,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "skillinjection",
			User:            "skillinjection",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "skill-injection-group",
			Topics: KafkaTopics{
				InjectionEvents: "injection-events",
				CorpusUpdates:   "skill-corpus-updates",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			Timeout:  100 * time.Millisecond,
			CacheTTL: 5 * time.Minute,
		},
		Skills: SkillsConfig{
			Source:      SourceDir,
			Dir:         "skills",
			LoadTimeout: 10 * time.Second,
		},
		Injection: InjectionConfig{
			RelevanceEnabled:  true,
			K1:                1.5,
			B:                 0.75,
			Threshold:         0.0,
			MaxResults:        3,
			WordBoundary:      true,
			IntentDetection:   true,
			NegationDetection: true,
			MaxMessageBytes:   64 << 10,
		},
		Analytics: AnalyticsConfig{
			BufferSize:        10000,
			SnapshotInterval:  time.Minute,
			SnapshotRetention: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	envInt("SI_SERVER_PORT", &cfg.Server.Port)
	envInt("SI_SERVER_RATE_LIMIT", &cfg.Server.RateLimit.Requests)
	envInt("SI_RPC_PORT", &cfg.RPC.Port)
	envBool("SI_RPC_ENABLED", &cfg.RPC.Enabled)

	envString("SI_POSTGRES_HOST", &cfg.Postgres.Host)
	envInt("SI_POSTGRES_PORT", &cfg.Postgres.Port)
	envString("SI_POSTGRES_DATABASE", &cfg.Postgres.Database)
	envString("SI_POSTGRES_USER", &cfg.Postgres.User)
	envString("SI_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	envString("SI_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)

	envBool("SI_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("SI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}

	envBool("SI_REDIS_ENABLED", &cfg.Redis.Enabled)
	envString("SI_REDIS_ADDR", &cfg.Redis.Addr)
	envString("SI_REDIS_PASSWORD", &cfg.Redis.Password)

	envString("SI_SKILLS_SOURCE", &cfg.Skills.Source)
	envString("SI_SKILLS_DIR", &cfg.Skills.Dir)

	envBool("SI_INJECTION_RELEVANCE_ENABLED", &cfg.Injection.RelevanceEnabled)
	envFloat("SI_INJECTION_K1", &cfg.Injection.K1)
	envFloat("SI_INJECTION_B", &cfg.Injection.B)
	envFloat("SI_INJECTION_THRESHOLD", &cfg.Injection.Threshold)
	envInt("SI_INJECTION_MAX_RESULTS", &cfg.Injection.MaxResults)
	envBool("SI_INJECTION_NEGATION_DETECTION", &cfg.Injection.NegationDetection)

	envString("SI_LOGGING_LEVEL", &cfg.Logging.Level)
	envString("SI_LOGGING_FORMAT", &cfg.Logging.Format)
	envBool("SI_TRACING_ENABLED", &cfg.Tracing.Enabled)
	envBool("SI_METRICS_ENABLED", &cfg.Metrics.Enabled)
	envInt("SI_METRICS_PORT", &cfg.Metrics.Port)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
