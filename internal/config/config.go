package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	// InsightCacheTTL bounds how long computed views are served before the
	// source tables are read again.
	InsightCacheTTL time.Duration

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Refresh   RefreshConfig
}

// RateLimitConfig bounds manual refresh triggers per caller. It needs redis.
type RateLimitConfig struct {
	Enabled          bool
	TriggerPerMinute float64
	TriggerBurst     int
}

// RedisConfig points at the redis instance used for the run lock.
// An empty Addr selects the database-backed lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RefreshConfig controls the derived-metrics refresh pipeline.
type RefreshConfig struct {
	Pipeline       string
	Interval       time.Duration
	RunTimeout     time.Duration
	SourceTimeout  time.Duration
	ReplaceTimeout time.Duration
	LockWait       time.Duration
	LockTTL        time.Duration
	Normalize      bool
	Schedule       bool
	// NodeID seeds the snowflake generator for run ids; unique per replica.
	NodeID int64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "telcopulse"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", ""),

		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "telco"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "telcopulse.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", false),

		InsightCacheTTL: getenvDuration("INSIGHT_CACHE_TTL", 5*time.Minute),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:          getenvBool("RATE_LIMIT_ENABLED", false),
			TriggerPerMinute: getenvFloat("RATE_LIMIT_REFRESH_PER_MINUTE", 1),
			TriggerBurst:     getenvInt("RATE_LIMIT_REFRESH_BURST", 2),
		},
		Refresh: RefreshConfig{
			Pipeline:       getenv("REFRESH_PIPELINE", "telco_derived"),
			Interval:       getenvDuration("REFRESH_INTERVAL", 24*time.Hour),
			RunTimeout:     getenvDuration("REFRESH_RUN_TIMEOUT", 30*time.Minute),
			SourceTimeout:  getenvDuration("REFRESH_SOURCE_TIMEOUT", 30*time.Second),
			ReplaceTimeout: getenvDuration("REFRESH_REPLACE_TIMEOUT", 2*time.Minute),
			LockWait:       getenvDuration("REFRESH_LOCK_WAIT", 10*time.Second),
			LockTTL:        getenvDuration("REFRESH_LOCK_TTL", 45*time.Minute),
			Normalize:      getenvBool("REFRESH_NORMALIZE", true),
			Schedule:       getenvBool("REFRESH_SCHEDULE", true),
			NodeID:         int64(getenvInt("REFRESH_NODE_ID", 1)),
		},
	}

	return cfg
}

// IsProduction reports whether the service runs in the production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
