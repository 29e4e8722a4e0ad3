package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Circulation CirculationConfig
	Jobs        JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

// CirculationConfig chứa các tham số nghiệp vụ mượn / trả / giữ chỗ
type CirculationConfig struct {
	FinePerDay            decimal.Decimal // tiền phạt mỗi ngày trễ
	DefaultLoanDays       int             // due_date mặc định = loan_date + N ngày
	ReservationTTL        time.Duration   // expires_at mặc định = now + TTL
	ReservationCodePrefix string          // RSV-YYYYMMDD-000001
}

// JobsConfig cho cmd/worker (asynq)
type JobsConfig struct {
	Concurrency          int
	ExpireReservationsAt string // cron spec
	ExpireBatchSize      int
	ShutdownTimeout      time.Duration
}

// Load đọc config từ environment variables
func Load() (*Config, error) {
	finePerDay, err := getEnvDecimal("FINE_PER_DAY", "5000")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Library Circulation"),
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "library"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Circulation: CirculationConfig{
			FinePerDay:            finePerDay,
			DefaultLoanDays:       getEnvInt("LOAN_DEFAULT_DAYS", 3),
			ReservationTTL:        getEnvDuration("RESERVATION_TTL", 48*time.Hour),
			ReservationCodePrefix: getEnv("RESERVATION_CODE_PREFIX", "RSV"),
		},
		Jobs: JobsConfig{
			Concurrency:          getEnvInt("WORKER_CONCURRENCY", 10),
			ExpireReservationsAt: getEnv("JOB_EXPIRE_RESERVATIONS_CRON", "*/15 * * * *"),
			ExpireBatchSize:      getEnvInt("JOB_EXPIRE_BATCH_SIZE", 500),
			ShutdownTimeout:      getEnvDuration("WORKER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
	}

	// Validate critical config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate kiểm tra config có hợp lệ không
func (c *Config) Validate() error {
	if c.App.Environment == "production" && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD must be set in production")
	}
	if c.Circulation.FinePerDay.IsNegative() {
		return fmt.Errorf("FINE_PER_DAY must not be negative")
	}
	if c.Circulation.DefaultLoanDays < 1 {
		return fmt.Errorf("LOAN_DEFAULT_DAYS must be at least 1")
	}
	if c.Circulation.ReservationTTL <= 0 {
		return fmt.Errorf("RESERVATION_TTL must be positive")
	}
	if c.Circulation.ReservationCodePrefix == "" {
		return fmt.Errorf("RESERVATION_CODE_PREFIX must not be empty")
	}
	if c.Jobs.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDecimal: tiền thì không fallback im lặng, sai format là lỗi
func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(getEnv(key, defaultValue))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
