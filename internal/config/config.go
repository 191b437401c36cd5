package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		Name           string
		Version        string
		Port           string
		Debug          bool
		LogLevel       string
		FrontendURL    string
		AllowedOrigins []string
	}
	DB struct {
		Driver     string
		URL        string
		Host       string
		Port       string
		User       string
		Password   string
		DBName     string
		SSLMode    string
		SQLitePath string
	}
	Redis struct {
		Enabled  bool
		Host     string
		Port     string
		Password string
		DB       int
	}
	Auth struct {
		SecretKey      string
		AccessTokenTTL time.Duration
	}
	NASA struct {
		APIKey string
		NEOURL string
	}
	Workers struct {
		Enabled            bool
		IngestInterval     time.Duration
		IngestInitialDelay time.Duration
		IngestRetryDelay   time.Duration
		AlertInterval      time.Duration
		AlertWindowDays    int
	}
	RateLimit struct {
		RequestsPerSecond int
		Burst             int
	}
}

func Load() *Config {
	cfg := &Config{}

	// App
	cfg.App.Name = getEnv("APP_NAME", "Cosmic Watch API")
	cfg.App.Version = getEnv("APP_VERSION", "1.0.0")
	cfg.App.Port = getEnv("PORT", "8080")
	cfg.App.Debug = getEnvAsBool("DEBUG", false)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.App.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:5173")
	cfg.App.AllowedOrigins = getEnvAsSlice("ALLOWED_ORIGINS",
		[]string{"http://localhost:5173", "http://localhost:3000"})

	// DB
	cfg.DB.Driver = getEnv("DB_DRIVER", "postgres")
	cfg.DB.URL = getEnv("DATABASE_URL", "")
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.DBName = getEnv("DB_NAME", "cosmic_watch")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.DB.SQLitePath = getEnv("SQLITE_PATH", "./data/cosmic_watch.db")

	// Redis
	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", true)
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnv("REDIS_PORT", "6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	// Auth
	cfg.Auth.SecretKey = getEnv("SECRET_KEY", "your-super-secret-key-change-in-production")
	cfg.Auth.AccessTokenTTL = time.Duration(getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24*7)) * time.Minute

	// NASA NeoWs
	cfg.NASA.APIKey = getEnv("NASA_API_KEY", "DEMO_KEY")
	cfg.NASA.NEOURL = getEnv("NASA_NEO_URL", "https://api.nasa.gov/neo/rest/v1")

	// Workers
	cfg.Workers.Enabled = getEnvAsBool("ENABLE_SCHEDULER", true)
	cfg.Workers.IngestInterval = getEnvAsDuration("WORKER_INGEST_INTERVAL", 6*time.Hour)
	cfg.Workers.IngestInitialDelay = getEnvAsDuration("WORKER_INGEST_INITIAL_DELAY", 30*time.Second)
	cfg.Workers.IngestRetryDelay = getEnvAsDuration("WORKER_INGEST_RETRY_DELAY", 30*time.Second)
	cfg.Workers.AlertInterval = getEnvAsDuration("WORKER_ALERT_INTERVAL", time.Hour)
	cfg.Workers.AlertWindowDays = getEnvAsInt("ALERT_WINDOW_DAYS", 30)

	// Rate Limit
	cfg.RateLimit.RequestsPerSecond = getEnvAsInt("RATE_LIMIT_RPS", 10)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 20)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if dur, err := time.ParseDuration(value); err == nil {
			return dur
		}
	}
	return defaultValue
}

// getEnvAsSlice читает список через запятую
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
