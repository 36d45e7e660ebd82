package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Queue    QueueConfig
	Kiosk    KioskConfig
	Visit    VisitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `validate:"required"`
	Env                   string
	Host                  string
	Port                  string `validate:"required"`
	Version               string
	RequestTimeoutSeconds int    `validate:"min=0"`
	PublicBaseURL         string `validate:"required,url"`
	LoginURL              string `validate:"required"`
	CORSAllowOrigins      string
	CheckinPerMinute      int `validate:"min=0"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"min=0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token verification parameters.
type AuthConfig struct {
	JWTSecret             string `validate:"required"`
	AccessTokenTTLMinutes int    `validate:"min=0"`
}

// Queue strategies.
const (
	QueueStrategyDatabase = "database"
	QueueStrategyRedis    = "redis"
)

// QueueConfig selects how queue numbers are assigned.
type QueueConfig struct {
	Strategy   string `validate:"oneof=database redis"`
	MaxRetries int    `validate:"min=0,max=10"`
}

// KioskConfig controls the unattended venue display.
type KioskConfig struct {
	PollIntervalSeconds int     `validate:"min=1"`
	BoardSize           int     `validate:"min=1"`
	RefreshPerSecond    float64 `validate:"gt=0"`
	Username            string
	PasswordHash        string `validate:"required_with=Username"`
}

// Visit latch backends.
const (
	VisitBackendMemory = "memory"
	VisitBackendRedis  = "redis"
)

// VisitConfig controls the one-shot page visit latch.
type VisitConfig struct {
	Backend    string `validate:"oneof=memory redis"`
	TTLSeconds int    `validate:"min=1"`
}

var validate = validator.New()

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "blood-drive-checkin"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			PublicBaseURL:         getEnv("APP_PUBLIC_BASE_URL", "http://localhost:3000"),
			LoginURL:              getEnv("APP_LOGIN_URL", "/login"),
			CORSAllowOrigins:      os.Getenv("APP_CORS_ALLOW_ORIGINS"),
			CheckinPerMinute:      getEnvAsInt("APP_CHECKIN_PER_MINUTE", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
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
		},
		Queue: QueueConfig{
			Strategy:   getEnv("QUEUE_STRATEGY", QueueStrategyDatabase),
			MaxRetries: getEnvAsInt("QUEUE_MAX_RETRIES", 3),
		},
		Kiosk: KioskConfig{
			PollIntervalSeconds: getEnvAsInt("KIOSK_POLL_INTERVAL_SECONDS", 10),
			BoardSize:           getEnvAsInt("KIOSK_BOARD_SIZE", 10),
			RefreshPerSecond:    getEnvAsFloat("KIOSK_REFRESH_PER_SECOND", 1),
			Username:            os.Getenv("KIOSK_USERNAME"),
			PasswordHash:        os.Getenv("KIOSK_PASSWORD_HASH"),
		},
		Visit: VisitConfig{
			Backend:    getEnv("VISIT_LATCH_BACKEND", VisitBackendMemory),
			TTLSeconds: getEnvAsInt("VISIT_LATCH_TTL_SECONDS", 300),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints on the loaded configuration.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
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

// PollInterval returns the kiosk refresh period.
func (k KioskConfig) PollInterval() time.Duration {
	return time.Duration(k.PollIntervalSeconds) * time.Second
}

// TTL returns how long a visit outcome is remembered.
func (v VisitConfig) TTL() time.Duration {
	return time.Duration(v.TTLSeconds) * time.Second
}

// UsesRedis reports whether the queue strategy or the visit latch needs a Redis server.
func (c *Config) UsesRedis() bool {
	return c.Queue.Strategy == QueueStrategyRedis || c.Visit.Backend == VisitBackendRedis
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
