package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

type Config struct {
	LogLevel string
	Language string

	APIBaseURL    string
	ShortTimeout  time.Duration
	MediumTimeout time.Duration
	LongTimeout   time.Duration

	RateLimitPerSecond float64
	RateLimitBurst     int

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	BreakerEnabled      bool
	BreakerMinRequests  int
	BreakerOpenTimeout  time.Duration

	StatePath  string
	ExportPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	PostgresDSN string

	NATSURL           string
	NATSJobSubject    string
	NATSEventsSubject string
	NATSQueueGroup    string

	StepDelay        time.Duration
	CatalogPageSize  int
	ResultCacheSize  int
	ResultCacheTTL   time.Duration
	OptionsFile      string
	AcceptedTypes    []string
	MaxFiles         int
	MaxFileSizeMB    int
	JobTimeout       time.Duration
	WorkerConcurrent int

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		LogLevel: mustEnv("VISION_LOG_LEVEL", "info"),
		Language: mustEnv("VISION_LANGUAGE", ""),

		APIBaseURL:    strings.TrimRight(mustEnv("VISION_API_BASE_URL", "http://localhost:8080/api"), "/"),
		ShortTimeout:  mustEnvDuration("VISION_TIMEOUT_SHORT", 30*time.Second),
		MediumTimeout: mustEnvDuration("VISION_TIMEOUT_MEDIUM", 60*time.Second),
		LongTimeout:   mustEnvDuration("VISION_TIMEOUT_LONG", 360*time.Second),

		RateLimitPerSecond: mustEnvFloat("VISION_RATE_LIMIT_RPS", 10),
		RateLimitBurst:     mustEnvInt("VISION_RATE_LIMIT_BURST", 20),

		RetryMaxAttempts:    mustEnvInt("VISION_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoff: mustEnvDuration("VISION_RETRY_INITIAL_BACKOFF", 200*time.Millisecond),
		RetryMaxBackoff:     mustEnvDuration("VISION_RETRY_MAX_BACKOFF", 2*time.Second),
		BreakerEnabled:      mustEnvBool("VISION_BREAKER_ENABLED", true),
		BreakerMinRequests:  mustEnvInt("VISION_BREAKER_MIN_REQUESTS", 10),
		BreakerOpenTimeout:  mustEnvDuration("VISION_BREAKER_OPEN_TIMEOUT", 30*time.Second),

		StatePath:  mustEnv("VISION_STATE_PATH", defaultStatePath()),
		ExportPath: mustEnv("VISION_EXPORT_PATH", "./exports"),

		RedisAddr:     mustEnv("VISION_REDIS_ADDR", ""),
		RedisPassword: mustEnv("VISION_REDIS_PASSWORD", ""),
		RedisDB:       mustEnvInt("VISION_REDIS_DB", 0),
		RedisPrefix:   mustEnv("VISION_REDIS_PREFIX", "vision:"),

		PostgresDSN: mustEnv("VISION_POSTGRES_DSN", ""),

		NATSURL:           mustEnv("VISION_NATS_URL", ""),
		NATSJobSubject:    mustEnv("VISION_NATS_JOB_SUBJECT", "vision.jobs"),
		NATSEventsSubject: mustEnv("VISION_NATS_EVENTS_SUBJECT", "vision.runs"),
		NATSQueueGroup:    mustEnv("VISION_NATS_QUEUE_GROUP", "vision-workers"),

		StepDelay:        mustEnvDuration("VISION_STEP_DELAY", 500*time.Millisecond),
		CatalogPageSize:  mustEnvInt("VISION_CATALOG_PAGE_SIZE", 20),
		ResultCacheSize:  mustEnvInt("VISION_RESULT_CACHE_SIZE", 128),
		ResultCacheTTL:   mustEnvDuration("VISION_RESULT_CACHE_TTL", 30*time.Minute),
		OptionsFile:      mustEnv("VISION_OPTIONS_FILE", ""),
		AcceptedTypes:    mustEnvList("VISION_ACCEPTED_TYPES", []string{"image/*", "application/pdf"}),
		MaxFiles:         mustEnvInt("VISION_MAX_FILES", 1),
		MaxFileSizeMB:    mustEnvInt("VISION_MAX_FILE_SIZE_MB", 25),
		JobTimeout:       mustEnvDuration("VISION_JOB_TIMEOUT", 10*time.Minute),
		WorkerConcurrent: mustEnvInt("VISION_WORKER_CONCURRENCY", 1),

		WorkerMetricsPort: mustEnv("VISION_WORKER_METRICS_PORT", "9090"),
	}
}

// LoadProcessingOptions reads a YAML options profile. An empty path yields
// the defaults.
func LoadProcessingOptions(path string) (domain.ProcessingOptions, error) {
	opts := domain.DefaultProcessingOptions()
	if strings.TrimSpace(path) == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options file: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options file %s: %w", path, err)
	}
	return opts, nil
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "./data/state"
	}
	return dir + string(os.PathSeparator) + "vision-client"
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
