package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Source registry (empty = embedded sources.yaml)
	SourcesFile string

	// Database (snapshot archive only)
	Database DatabaseConfig

	// External sources
	Sheets   SheetsConfig
	ETFCheck ETFCheckConfig
	HTTP     HTTPConfig

	// Aggregation
	Aggregator AggregatorConfig
	Snapshot   SnapshotConfig

	// Logging
	LogLevel  string
	LogFormat string
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

// SheetsConfig holds the Google Sheets ledger used for account totals
type SheetsConfig struct {
	BaseURL          string
	SpreadsheetID    string
	DefaultSheetName string
}

// ETFCheckConfig holds etfcheck.co.kr configuration
// 자격증명은 외부 입력으로만 취급
type ETFCheckConfig struct {
	BaseURL  string
	LoginURL string
	Email    string
	Password string
}

// HTTPConfig holds outbound HTTP settings shared by all adapters
type HTTPConfig struct {
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	UserAgent  string
}

// AggregatorConfig holds fan-out settings
type AggregatorConfig struct {
	Workers int
}

// SnapshotConfig holds the scheduled snapshot settings
type SnapshotConfig struct {
	Enabled  bool
	Schedule string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "3000"),
		Env:  getEnv("ENV", "development"),

		SourcesFile: getEnv("SOURCES_FILE", ""),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Sheets: SheetsConfig{
			BaseURL:          getEnv("SHEET_BASE_URL", "https://docs.google.com/spreadsheets/d"),
			SpreadsheetID:    getEnv("SHEET_ID", "18-fow21K94Xkb1iR2pCQfZYut9DxUPdKHZNam87odk4"),
			DefaultSheetName: getEnv("SHEET_DEFAULT_NAME", "계좌정보"),
		},

		ETFCheck: ETFCheckConfig{
			BaseURL:  getEnv("ETFCHECK_BASE_URL", "https://www.etfcheck.co.kr"),
			LoginURL: getEnv("ETFCHECK_LOGIN_URL", "https://www.etfcheck.co.kr/user/login"),
			Email:    getEnv("ETFCHECK_EMAIL", ""),
			Password: getEnv("ETFCHECK_PASSWORD", ""),
		},

		HTTP: HTTPConfig{
			Timeout:    getEnvAsDuration("HTTP_TIMEOUT", "60s"),
			RatePerSec: getEnvAsFloat("HTTP_RATE_PER_SEC", 5),
			Burst:      getEnvAsInt("HTTP_BURST", 5),
			UserAgent: getEnv("HTTP_USER_AGENT",
				"Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Mobile Safari/537.36"),
		},

		Aggregator: AggregatorConfig{
			Workers: getEnvAsInt("AGGREGATOR_WORKERS", 4),
		},

		Snapshot: SnapshotConfig{
			Enabled:  getEnvAsBool("SNAPSHOT_ENABLED", false),
			Schedule: getEnv("SNAPSHOT_SCHEDULE", "0 0 18 * * *"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Aggregator.Workers < 1 {
		return fmt.Errorf("AGGREGATOR_WORKERS must be at least 1")
	}

	if c.HTTP.RatePerSec <= 0 {
		return fmt.Errorf("HTTP_RATE_PER_SEC must be positive")
	}

	// 스냅샷 저장을 켤 때만 DB 필요
	if c.Snapshot.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when SNAPSHOT_ENABLED=true")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

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
