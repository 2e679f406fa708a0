package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for uploaded application documents.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig holds settings for the lender requirements cache.
// An empty Address disables the cache.
type RedisConfig struct {
	Address              string
	Password             string
	DB                   int
	RequirementsCacheTTL time.Duration
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig holds the policy values used by the job orchestrator and stage engine.
type EngineConfig struct {
	// OCRRetryWindow is the minimum time since last_retry_at before a failed
	// OCR job may be flipped back to pending by a new upload.
	OCRRetryWindow time.Duration
	OCRMaxRetries  int
	// BankingBatchSize is the number of uploaded bank statements required
	// before a banking-analysis job is created.
	BankingBatchSize        int
	BreakerFailureThreshold int
	BreakerCooldown         time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Redis    RedisConfig
	Log      LogConfig
	Engine   EngineConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "application-documents"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Redis: RedisConfig{
			Address:              getEnv("REDIS_ADDR", ""),
			Password:             getEnv("REDIS_PASSWORD", ""),
			DB:                   getEnvInt("REDIS_DB", 0),
			RequirementsCacheTTL: getEnvDuration("REQUIREMENTS_CACHE_TTL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Engine: EngineConfig{
			OCRRetryWindow:          getEnvDuration("OCR_RETRY_WINDOW", time.Hour),
			OCRMaxRetries:           getEnvInt("OCR_MAX_RETRIES", 3),
			BankingBatchSize:        getEnvInt("BANKING_BATCH_SIZE", 6),
			BreakerFailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			BreakerCooldown:         getEnvDuration("BREAKER_COOLDOWN", 30*time.Second),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("90s", "1h").
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d >= 0 {
			return d
		}
	}
	return def
}
