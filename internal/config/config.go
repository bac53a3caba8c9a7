package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Gateway   GatewayConfig
	Backend   BackendConfig
	Processor ProcessorConfig
	Breaker   BreakerConfig
	JobState  JobStateConfig
	Storage   StorageConfig
	Callback  CallbackConfig
	Notify    NotifyConfig
	RateLimit RateLimitConfig
	Trace     TraceConfig
}

type GatewayConfig struct {
	Addr          string
	MaxUploadSize int64
}

type BackendConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type ProcessorConfig struct {
	BaseURL string
	Timeout time.Duration
}

type BreakerConfig struct {
	Threshold int
	Cooldown  time.Duration
}

type JobStateConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	TTL           time.Duration
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type CallbackConfig struct {
	Secret string
}

type NotifyConfig struct {
	SigningSecret string
	Timeout       time.Duration
	MaxAttempts   int
}

type RateLimitConfig struct {
	Enabled  bool
	Capacity int
	Window   time.Duration
}

type TraceConfig struct {
	ServiceName  string
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

func Load() Config {
	return Config{
		Gateway: GatewayConfig{
			Addr:          env("ARTSHIELD_ADDR", ":8080"),
			MaxUploadSize: envInt64("ARTSHIELD_MAX_UPLOAD_BYTES", 25<<20),
		},
		Backend: BackendConfig{
			BaseURL: env("ARTSHIELD_BACKEND_URL", "http://localhost:9100"),
			APIKey:  env("ARTSHIELD_BACKEND_API_KEY", ""),
			Timeout: envDuration("ARTSHIELD_BACKEND_TIMEOUT", 10*time.Second),
		},
		Processor: ProcessorConfig{
			BaseURL: env("ARTSHIELD_PROCESSOR_URL", "http://localhost:9200"),
			Timeout: envDuration("ARTSHIELD_PROCESSOR_TIMEOUT", 60*time.Second),
		},
		Breaker: BreakerConfig{
			Threshold: envInt("ARTSHIELD_BREAKER_THRESHOLD", 5),
			Cooldown:  envDuration("ARTSHIELD_BREAKER_COOLDOWN", 30*time.Second),
		},
		JobState: JobStateConfig{
			RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisDB:       envInt("REDIS_DB", 0),
			KeyPrefix:     env("ARTSHIELD_JOB_KEY_PREFIX", "artshield:job"),
			TTL:           envDuration("ARTSHIELD_JOB_TTL", time.Hour),
		},
		Storage: StorageConfig{
			Endpoint:  env("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: env("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: env("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    env("MINIO_BUCKET", "artshield-artifacts"),
			UseSSL:    envBool("MINIO_USE_SSL", false),
		},
		Callback: CallbackConfig{
			Secret: env("ARTSHIELD_CALLBACK_SECRET", ""),
		},
		Notify: NotifyConfig{
			SigningSecret: env("ARTSHIELD_NOTIFY_SECRET", ""),
			Timeout:       envDuration("ARTSHIELD_NOTIFY_TIMEOUT", 10*time.Second),
			MaxAttempts:   envInt("ARTSHIELD_NOTIFY_MAX_ATTEMPTS", 3),
		},
		RateLimit: RateLimitConfig{
			Enabled:  envBool("ARTSHIELD_RATE_LIMIT_ENABLED", true),
			Capacity: envInt("ARTSHIELD_RATE_LIMIT_CAPACITY", 30),
			Window:   envDuration("ARTSHIELD_RATE_LIMIT_WINDOW", time.Minute),
		},
		Trace: TraceConfig{
			ServiceName:  env("ARTSHIELD_TRACE_SERVICE", "artshield-gateway"),
			Exporter:     env("ARTSHIELD_TRACE_EXPORTER", "none"),
			OTLPEndpoint: env("ARTSHIELD_TRACE_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("ARTSHIELD_TRACE_OTLP_INSECURE", false),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt64(key string, fallback int64) int64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
