package config

import (
	"os"
	"strconv"
)

type Server struct {
	Port string
}

type Database struct {
	URL string
}

type Redis struct {
	URL string
}

// Gateway holds the upstream payment-aggregator settings. Nothing in the
// request-building code falls back to hard-coded credentials; everything
// comes from here.
type Gateway struct {
	BaseURL         string
	APIKey          string
	PGKey           string
	PGSecretKey     string
	DefaultSchoolID string
	TrusteeID       string
	TimeoutMs       int
}

type Auth struct {
	JWTSecret string
}

type Logs struct {
	LokiURL string
}

type Metrics struct {
	PushURL      string
	IntervalMs   int
	CommonLabels string
}

type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	Gateway  Gateway
	Auth     Auth
	Logs     Logs
	Metrics  Metrics
}

// Load reads configuration from the environment. Call godotenv.Load first
// if a .env file should be honored.
func Load() *Config {
	return &Config{
		Server: Server{
			Port: getEnv("PORT", "8080"),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: Redis{
			URL: os.Getenv("REDIS_URL"),
		},
		Gateway: Gateway{
			BaseURL:         getEnv("GATEWAY_BASE_URL", "https://dev-vanilla.edviron.com/erp"),
			APIKey:          os.Getenv("GATEWAY_API_KEY"),
			PGKey:           os.Getenv("PG_KEY"),
			PGSecretKey:     os.Getenv("PG_SECRET_KEY"),
			DefaultSchoolID: os.Getenv("DEFAULT_SCHOOL_ID"),
			TrusteeID:       os.Getenv("TRUSTEE_ID"),
			TimeoutMs:       getEnvInt("GATEWAY_TIMEOUT_MS", 10_000),
		},
		Auth: Auth{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Logs: Logs{
			LokiURL: os.Getenv("LOKI_URL"),
		},
		Metrics: Metrics{
			PushURL:      os.Getenv("METRICS_PUSH_URL"),
			IntervalMs:   getEnvInt("METRICS_PUSH_INTERVAL_MS", 10_000),
			CommonLabels: getEnv("METRICS_COMMON_LABELS", `service="school-payments"`),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
