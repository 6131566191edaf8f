package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Outcome learning pipeline
	Learning LearningConfig

	// Alert delivery
	AlertEmail AlertEmailConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// LearningConfig holds settings for the scheduled learning run
type LearningConfig struct {
	Schedule           string        // 6-field cron (with seconds)
	LockTTL            time.Duration // run lock lifetime
	PriceEventLookback time.Duration // price-change events considered per run
	RecentWindow       time.Duration // "recent" comparisons for alert rules
	LogicVersionID     string        // active scoring logic version
	PatternLibraryPath string        // empty = embedded default library
}

// AlertEmailConfig holds transactional email API settings
type AlertEmailConfig struct {
	Enabled    bool
	APIURL     string
	APIKey     string
	From       string
	To         []string
	RatePerSec float64
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Learning: LearningConfig{
			Schedule:           getEnv("LEARNING_SCHEDULE", "0 0 3 * * 1"), // 월요일 03:00
			LockTTL:            getEnvAsDuration("LEARNING_LOCK_TTL", "30m"),
			PriceEventLookback: getEnvAsDuration("PRICE_EVENT_LOOKBACK", "168h"),
			RecentWindow:       getEnvAsDuration("RECENT_COMPARISON_WINDOW", "720h"),
			LogicVersionID:     getEnv("LOGIC_VERSION_ID", ""),
			PatternLibraryPath: getEnv("PATTERN_LIBRARY_PATH", ""),
		},

		AlertEmail: AlertEmailConfig{
			Enabled:    getEnvAsBool("ALERT_EMAIL_ENABLED", false),
			APIURL:     getEnv("ALERT_EMAIL_API_URL", ""),
			APIKey:     getEnv("ALERT_EMAIL_API_KEY", ""),
			From:       getEnv("ALERT_EMAIL_FROM", "alerts@projeval.local"),
			To:         getEnvAsList("ALERT_EMAIL_TO"),
			RatePerSec: getEnvAsFloat("ALERT_EMAIL_RATE_PER_SEC", 2),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Learning.Schedule); err != nil {
		return fmt.Errorf("LEARNING_SCHEDULE is invalid: %w", err)
	}

	if c.AlertEmail.Enabled {
		if c.AlertEmail.APIURL == "" {
			return fmt.Errorf("ALERT_EMAIL_API_URL is required when alert email is enabled")
		}
		if len(c.AlertEmail.To) == 0 {
			return fmt.Errorf("ALERT_EMAIL_TO is required when alert email is enabled")
		}
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
