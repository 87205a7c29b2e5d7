// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the ops HTTP server,
// logging, persistence, observability, and every numeric tunable of the
// donor-search engine (ring limits, retry ceilings, cache bounds, delays).
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines HTTP security-header settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          // ENABLE_HSTS
	HSTSMaxAge time.Duration // HSTS_MAX_AGE
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DelayBounds is the [Min, Max] window a computed round delay is clamped to.
type DelayBounds struct {
	Min time.Duration
	Max time.Duration
}

// SearchConfig holds the tunables of the donor-search state machine.
type SearchConfig struct {
	MaxNeighborSearchLevel   int // SEARCH_MAX_NEIGHBOR_LEVEL
	MaxGeohashesPerExecution int // SEARCH_MAX_GEOHASHES_PER_EXECUTION (queue length that stops ring expansion)
	MaxGeohashesPerRound     int // SEARCH_MAX_GEOHASHES_PER_ROUND (cells queried per invocation)
	NeighborGeohashLength    int // SEARCH_GEOHASH_LENGTH (cell resolution of the ring)

	MaxRetryCount           int // SEARCH_MAX_RETRY_COUNT
	MaxReinstatedRetryCount int // SEARCH_MAX_REINSTATED_RETRY_COUNT

	ContinueDelay       time.Duration // SEARCH_CONTINUE_DELAY
	MaxEnqueueDelay     time.Duration // SEARCH_MAX_ENQUEUE_DELAY (native queue delay cap)
	MaxVisibilityDelay  time.Duration // SEARCH_MAX_VISIBILITY_DELAY (visibility extension cap)
	UrgentDelay         DelayBounds   // SEARCH_URGENT_MIN_DELAY / SEARCH_URGENT_MAX_DELAY
	RegularDelay        DelayBounds   // SEARCH_REGULAR_MIN_DELAY / SEARCH_REGULAR_MAX_DELAY
	ReinstateMultiplier float64       // SEARCH_REINSTATE_MULTIPLIER
	ReinstateMaxDelay   time.Duration // SEARCH_REINSTATE_MAX_DELAY

	DistanceTieBreak string // SEARCH_DISTANCE_TIE_BREAK: farthest|nearest
}

// CacheConfig bounds the donor-location cache.
type CacheConfig struct {
	Backend        string        // CACHE_BACKEND: memory|redis
	MaxEntries     int           // CACHE_MAX_ENTRIES
	MaxBytes       int64         // CACHE_MAX_BYTES (aggregate estimated size)
	TTL            time.Duration // CACHE_TTL
	GeohashLength  int           // CACHE_GEOHASH_LENGTH (key prefix length)
	QueryPageLimit int           // CACHE_QUERY_PAGE_LIMIT
}

// RedisConfig configures the shared cache backend.
type RedisConfig struct {
	Addr     string // REDIS_ADDR
	Password string // REDIS_PASSWORD
	DB       int    // REDIS_DB
	Prefix   string // REDIS_KEY_PREFIX
}

// QueueConfig drives the round worker pool over the round queue.
type QueueConfig struct {
	Workers           int           // QUEUE_WORKERS
	BatchSize         int           // QUEUE_BATCH_SIZE
	PollInterval      time.Duration // QUEUE_POLL_INTERVAL
	VisibilityTimeout time.Duration // QUEUE_VISIBILITY_TIMEOUT
	MaxReceives       int           // QUEUE_MAX_RECEIVES (then dead-letter)
	RetryBaseDelay    time.Duration // QUEUE_RETRY_BASE_DELAY
}

// KafkaConfig configures event intake and notification publishing.
type KafkaConfig struct {
	Enabled            bool     // KAFKA_ENABLED
	Brokers            []string // KAFKA_BROKERS (csv)
	RequestEventsTopic string   // KAFKA_REQUEST_EVENTS_TOPIC
	NotificationsTopic string   // KAFKA_NOTIFICATIONS_TOPIC
	GroupID            string   // KAFKA_GROUP_ID
}

// NotifyConfig throttles outbound notifications.
type NotifyConfig struct {
	RateRPS    float64 // NOTIFY_RATE_RPS (tokens per second, 0 = unlimited)
	RateBurst  int     // NOTIFY_RATE_BURST
	MaxRetries uint64  // NOTIFY_MAX_RETRIES
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	GinMode           string        // debug|release|test
	APIBasePath       string        // base path for ops API routes
	SwaggerEnabled    bool          // enable Swagger UI route
	ShutdownTimeout   time.Duration // graceful shutdown budget
	MaxBodyBytes      int64         // request body cap

	// HTTP rate limiting (per client IP)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Persistence
	DBPath string // SQLite path

	CORS     CORSConfig
	Security SecurityConfig
	OTEL     OTELConfig
	Search   SearchConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Kafka    KafkaConfig
	Notify   NotifyConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		APIBasePath:       normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),
		SwaggerEnabled:    getbool("SWAGGER_ENABLED", false),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),

		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		DBPath: getenv("DB_PATH", "donor-search.db"),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "donor-search"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
		Search: SearchConfig{
			MaxNeighborSearchLevel:   getint("SEARCH_MAX_NEIGHBOR_LEVEL", 15),
			MaxGeohashesPerExecution: getint("SEARCH_MAX_GEOHASHES_PER_EXECUTION", 340),
			MaxGeohashesPerRound:     getint("SEARCH_MAX_GEOHASHES_PER_ROUND", 50),
			NeighborGeohashLength:    getint("SEARCH_GEOHASH_LENGTH", 6),
			MaxRetryCount:            getint("SEARCH_MAX_RETRY_COUNT", 5),
			MaxReinstatedRetryCount:  getint("SEARCH_MAX_REINSTATED_RETRY_COUNT", 3),
			ContinueDelay:            getdur("SEARCH_CONTINUE_DELAY", 1*time.Minute),
			MaxEnqueueDelay:          getdur("SEARCH_MAX_ENQUEUE_DELAY", 15*time.Minute),
			MaxVisibilityDelay:       getdur("SEARCH_MAX_VISIBILITY_DELAY", 12*time.Hour),
			UrgentDelay: DelayBounds{
				Min: getdur("SEARCH_URGENT_MIN_DELAY", 15*time.Minute),
				Max: getdur("SEARCH_URGENT_MAX_DELAY", 2*time.Hour),
			},
			RegularDelay: DelayBounds{
				Min: getdur("SEARCH_REGULAR_MIN_DELAY", 1*time.Hour),
				Max: getdur("SEARCH_REGULAR_MAX_DELAY", 12*time.Hour),
			},
			ReinstateMultiplier: getfloat("SEARCH_REINSTATE_MULTIPLIER", 2.0),
			ReinstateMaxDelay:   getdur("SEARCH_REINSTATE_MAX_DELAY", 24*time.Hour),
			DistanceTieBreak:    strings.ToLower(getenv("SEARCH_DISTANCE_TIE_BREAK", "farthest")),
		},
		Cache: CacheConfig{
			Backend:        strings.ToLower(getenv("CACHE_BACKEND", "memory")),
			MaxEntries:     getint("CACHE_MAX_ENTRIES", 1000),
			MaxBytes:       int64(getint("CACHE_MAX_BYTES", 32<<20)),
			TTL:            getdur("CACHE_TTL", 10*time.Minute),
			GeohashLength:  getint("CACHE_GEOHASH_LENGTH", 4),
			QueryPageLimit: getint("CACHE_QUERY_PAGE_LIMIT", 500),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
			Prefix:   getenv("REDIS_KEY_PREFIX", "donorcache:"),
		},
		Queue: QueueConfig{
			Workers:           getint("QUEUE_WORKERS", 4),
			BatchSize:         getint("QUEUE_BATCH_SIZE", 10),
			PollInterval:      getdur("QUEUE_POLL_INTERVAL", 2*time.Second),
			VisibilityTimeout: getdur("QUEUE_VISIBILITY_TIMEOUT", 5*time.Minute),
			MaxReceives:       getint("QUEUE_MAX_RECEIVES", 8),
			RetryBaseDelay:    getdur("QUEUE_RETRY_BASE_DELAY", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:            getbool("KAFKA_ENABLED", false),
			Brokers:            splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			RequestEventsTopic: getenv("KAFKA_REQUEST_EVENTS_TOPIC", "donation-request-events"),
			NotificationsTopic: getenv("KAFKA_NOTIFICATIONS_TOPIC", "donor-notifications"),
			GroupID:            getenv("KAFKA_GROUP_ID", "donor-search"),
		},
		Notify: NotifyConfig{
			RateRPS:    getfloat("NOTIFY_RATE_RPS", 50),
			RateBurst:  getint("NOTIFY_RATE_BURST", 100),
			MaxRetries: uint64(getint("NOTIFY_MAX_RETRIES", 3)),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxBodyBytes < 1 {
		return cfg, errors.New("MAX_BODY_BYTES must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if err := cfg.Search.validate(); err != nil {
		return cfg, err
	}
	if cfg.Cache.GeohashLength < 1 || cfg.Cache.GeohashLength > cfg.Search.NeighborGeohashLength {
		return cfg, errors.New("CACHE_GEOHASH_LENGTH must be in [1, SEARCH_GEOHASH_LENGTH]")
	}
	if cfg.Cache.MaxEntries < 1 || cfg.Cache.MaxBytes < 1 || cfg.Cache.TTL <= 0 {
		return cfg, errors.New("CACHE_MAX_ENTRIES, CACHE_MAX_BYTES and CACHE_TTL must be > 0")
	}
	if cfg.Cache.QueryPageLimit < 1 {
		return cfg, errors.New("CACHE_QUERY_PAGE_LIMIT must be >= 1")
	}
	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return cfg, errors.New("CACHE_BACKEND must be memory or redis")
	}
	if cfg.Queue.Workers < 1 || cfg.Queue.BatchSize < 1 || cfg.Queue.MaxReceives < 1 {
		return cfg, errors.New("QUEUE_WORKERS, QUEUE_BATCH_SIZE and QUEUE_MAX_RECEIVES must be >= 1")
	}
	if cfg.Queue.PollInterval <= 0 || cfg.Queue.VisibilityTimeout <= 0 || cfg.Queue.RetryBaseDelay <= 0 {
		return cfg, errors.New("queue durations must be positive")
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return cfg, errors.New("KAFKA_BROKERS must not be empty when KAFKA_ENABLED")
	}
	if cfg.Notify.RateRPS < 0 {
		return cfg, errors.New("NOTIFY_RATE_RPS must be >= 0")
	}
	if cfg.Notify.RateBurst < 1 {
		return cfg, errors.New("NOTIFY_RATE_BURST must be >= 1")
	}

	return cfg, nil
}

// For returns the delay window of an urgency level ("URGENT" or anything else).
func (s SearchConfig) For(urgency string) DelayBounds {
	if strings.EqualFold(urgency, "URGENT") {
		return s.UrgentDelay
	}
	return s.RegularDelay
}

func (s SearchConfig) validate() error {
	if s.MaxNeighborSearchLevel < 0 {
		return errors.New("SEARCH_MAX_NEIGHBOR_LEVEL must be >= 0")
	}
	if s.MaxGeohashesPerExecution < 1 || s.MaxGeohashesPerRound < 1 {
		return errors.New("SEARCH_MAX_GEOHASHES_PER_EXECUTION and SEARCH_MAX_GEOHASHES_PER_ROUND must be >= 1")
	}
	if s.NeighborGeohashLength < 1 || s.NeighborGeohashLength > 12 {
		return errors.New("SEARCH_GEOHASH_LENGTH must be in [1,12]")
	}
	if s.MaxRetryCount < 0 || s.MaxReinstatedRetryCount < 0 {
		return errors.New("retry ceilings must be >= 0")
	}
	if s.ContinueDelay < 0 || s.MaxEnqueueDelay <= 0 || s.MaxVisibilityDelay <= 0 {
		return errors.New("SEARCH_CONTINUE_DELAY must be >= 0 and enqueue/visibility caps > 0")
	}
	for _, b := range []DelayBounds{s.UrgentDelay, s.RegularDelay} {
		if b.Min <= 0 || b.Max < b.Min {
			return errors.New("delay bounds must satisfy 0 < min <= max")
		}
	}
	if s.ReinstateMultiplier < 1 {
		return errors.New("SEARCH_REINSTATE_MULTIPLIER must be >= 1")
	}
	if s.ReinstateMaxDelay < s.UrgentDelay.Max || s.ReinstateMaxDelay < s.RegularDelay.Max {
		return errors.New("SEARCH_REINSTATE_MAX_DELAY must be >= both max delays")
	}
	switch s.DistanceTieBreak {
	case "farthest", "nearest":
	default:
		return errors.New("SEARCH_DISTANCE_TIE_BREAK must be farthest or nearest")
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
