package config

import (
	"os"
	"strconv"
	"time"

	"skybook/internal/audit"
	"skybook/internal/database"
	"skybook/internal/external"
	"skybook/internal/lock"
	"skybook/internal/messaging"
	"skybook/internal/service"
)

// Config holds the application configuration.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Performance monitoring
	PprofEnabled bool
	PprofPort    string

	// SweepInterval is how often the hold-expiry sweeper runs.
	SweepInterval time.Duration

	Database      database.Config
	Redis         lock.RedisConfig
	NATS          messaging.Config
	Elasticsearch audit.ElasticsearchConfig
	Pricing       external.PricingConfig
	Service       service.Config
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		// Performance monitoring
		PprofEnabled: getEnv("PPROF_ENABLED", "false") == "true",
		PprofPort:    getEnv("PPROF_PORT", "6060"),

		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "skybook"),
			Password:           getEnv("DB_PASSWORD", "skybook123"),
			DBName:             getEnv("DB_NAME", "skybook"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Redis: lock.RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "skybook"),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "skybook"),
			ClientID:  getEnv("NATS_CLIENT_ID", "skybook-api"),
			Enabled:   getEnv("NATS_ENABLED", "true") == "true",
		},

		Elasticsearch: audit.ElasticsearchConfig{
			URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:      getEnv("ELASTICSEARCH_AUDIT_INDEX", "booking-events"),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
			Enabled:    getEnv("ELASTICSEARCH_ENABLED", "false") == "true",
		},

		Pricing: external.PricingConfig{
			BaseURL: getEnv("PRICING_SERVICE_URL", "http://localhost:8090"),
			Timeout: time.Duration(getEnvInt("PRICING_TIMEOUT_SEC", 30)) * time.Second,
		},

		Service: service.Config{
			HoldDuration:   time.Duration(getEnvInt("HOLD_DURATION_SEC", 900)) * time.Second,
			IdempotencyTTL: time.Duration(getEnvInt("IDEMPOTENCY_TTL_SEC", 86400)) * time.Second,
			LockTTL:        time.Duration(getEnvInt("LOCK_TTL_SEC", 10)) * time.Second,
		},
	}
}

// getEnv returns an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
