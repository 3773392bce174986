package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Email      EmailConfig
	Summarizer SummarizerConfig
	Import     ImportConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// EmailConfig defines outbound e-mail delivery and webhook parameters.
type EmailConfig struct {
	APIKey            string
	From              string
	FromName          string
	ReplyTo           string
	TestMode          bool
	WebhookSigningKey string
}

// SummarizerConfig defines the closing-summary provider parameters.
type SummarizerConfig struct {
	APIKey         string
	BaseURL        string
	Models         []string
	MaxTokens      int
	Temperature    float32
	TimeoutSeconds int
	SweepMinutes   int
}

// ImportConfig bounds the CSV hardware bulk import.
type ImportConfig struct {
	MaxRows      int
	MaxSizeBytes int64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "carelog-api"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Email: EmailConfig{
			APIKey:            os.Getenv("EMAIL_API_KEY"),
			From:              getEnv("EMAIL_FROM", "support@carelog.example.com"),
			FromName:          getEnv("EMAIL_FROM_NAME", "Care Log Support"),
			ReplyTo:           getEnv("EMAIL_REPLY_TO", ""),
			TestMode:          getEnvAsBool("EMAIL_TEST_MODE", true),
			WebhookSigningKey: os.Getenv("EMAIL_WEBHOOK_SIGNING_KEY"),
		},
		Summarizer: SummarizerConfig{
			APIKey:         os.Getenv("SUMMARIZER_API_KEY"),
			BaseURL:        getEnv("SUMMARIZER_BASE_URL", ""),
			Models:         getEnvAsList("SUMMARIZER_MODELS", []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}),
			MaxTokens:      getEnvAsInt("SUMMARIZER_MAX_TOKENS", 300),
			Temperature:    float32(getEnvAsFloat("SUMMARIZER_TEMPERATURE", 0.4)),
			TimeoutSeconds: getEnvAsInt("SUMMARIZER_TIMEOUT_SECONDS", 30),
			SweepMinutes:   getEnvAsInt("SUMMARIZER_SWEEP_MINUTES", 60),
		},
		Import: ImportConfig{
			MaxRows:      getEnvAsInt("IMPORT_MAX_ROWS", 500),
			MaxSizeBytes: int64(getEnvAsInt("IMPORT_MAX_SIZE_BYTES", 5*1024*1024)),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-model summarization timeout.
func (s SummarizerConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// SweepInterval returns the backfill sweep period.
func (s SummarizerConfig) SweepInterval() time.Duration {
	if s.SweepMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.SweepMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
