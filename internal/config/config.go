package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProviderConfig holds the payment provider credentials. KeySecret signs
// payment verification payloads, WebhookSecret signs webhook bodies.
type ProviderConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// TracingConfig configures the OTLP exporter.
type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

// SchedulerConfig controls the subscription expiry sweep.
type SchedulerConfig struct {
	ExpirySchedule string
	BatchSize      int
	LockExpiry     time.Duration
}

// Config is the process configuration, loaded once from the environment.
type Config struct {
	Environment    string
	ServiceVersion string
	HTTPAddr       string
	DatabaseURL    string
	RedisAddr      string
	Provider       ProviderConfig
	Tracing        TracingConfig
	Scheduler      SchedulerConfig
}

// Load reads configuration from the environment, honoring a local .env
// file when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Environment:    envString("TRAINCORE_ENV", "development"),
		ServiceVersion: envString("TRAINCORE_VERSION", "dev"),
		HTTPAddr:       envString("TRAINCORE_HTTP_ADDR", ":8080"),
		DatabaseURL:    envString("TRAINCORE_DATABASE_URL", ""),
		RedisAddr:      envString("TRAINCORE_REDIS_ADDR", ""),
		Provider: ProviderConfig{
			KeyID:         envString("TRAINCORE_PROVIDER_KEY_ID", ""),
			KeySecret:     envString("TRAINCORE_PROVIDER_KEY_SECRET", ""),
			WebhookSecret: envString("TRAINCORE_PROVIDER_WEBHOOK_SECRET", ""),
		},
		Tracing: TracingConfig{
			Enabled:          envBool("TRAINCORE_TRACING_ENABLED", false),
			ExporterEndpoint: envString("TRAINCORE_OTLP_ENDPOINT", ""),
			ExporterProtocol: envString("TRAINCORE_OTLP_PROTOCOL", "http"),
			SamplingRatio:    envFloat("TRAINCORE_TRACE_SAMPLING_RATIO", 1.0),
		},
		Scheduler: SchedulerConfig{
			ExpirySchedule: envString("TRAINCORE_EXPIRY_SCHEDULE", "@hourly"),
			BatchSize:      envInt("TRAINCORE_EXPIRY_BATCH_SIZE", 100),
			LockExpiry:     envDuration("TRAINCORE_EXPIRY_LOCK_TTL", 5*time.Minute),
		},
	}
}

// IsProduction reports whether the process runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func envString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
