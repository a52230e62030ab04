package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds backend configuration loaded from environment variables.
type Config struct {
	ServerPort       string
	LogLevel         string
	DBDriver         string
	MySQLDSN         string
	SQLitePath       string
	ResetDB          bool
	RedisAddr        string
	RedisDB          int
	RedisPass        string
	JWTSecret        string
	JWTAccessTTL     time.Duration
	JWTRefreshWindow time.Duration
	VerifyTokenTTL   time.Duration
	AppBaseURL       string
	KafkaBroker      string
	KafkaTopic       string
	OTLPEndpoint     string
	SwaggerHost      string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is read first; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "4000"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DBDriver:         getEnv("DB_DRIVER", "mysql"),
		MySQLDSN:         getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/shipdesk?charset=utf8mb4&parseTime=True&loc=UTC"),
		SQLitePath:       getEnv("SQLITE_PATH", "shipdesk.db"),
		ResetDB:          getEnv("RESET_DB", "false") == "true",
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisPass:        os.Getenv("REDIS_PASSWORD"),
		JWTSecret:        getEnv("JWT_SECRET", "change-me"),
		JWTAccessTTL:     getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshWindow: getEnvDuration("JWT_REFRESH_WINDOW", 7*24*time.Hour),
		VerifyTokenTTL:   getEnvDuration("VERIFY_TOKEN_TTL", 24*time.Hour),
		AppBaseURL:       getEnv("APP_BASE_URL", "http://localhost:4200"),
		KafkaBroker:      os.Getenv("KAFKA_BROKER"),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "shipment-status"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SwaggerHost:      os.Getenv("SWAGGER_HOST"),
	}
}

// ConsoleConfig holds configuration of the operator console.
type ConsoleConfig struct {
	APIURL     string
	Timeout    time.Duration
	LogLevel   string
	TokenStore string // file, redis or memory
	TokenFile  string
	RedisAddr  string
	RedisDB    int
	RedisPass  string
}

// LoadConsole builds ConsoleConfig from environment with sensible defaults.
func LoadConsole() *ConsoleConfig {
	_ = godotenv.Load()

	return &ConsoleConfig{
		APIURL:     getEnv("SHIPDESK_API_URL", "http://localhost:4000"),
		Timeout:    getEnvDuration("SHIPDESK_TIMEOUT", 30*time.Second),
		LogLevel:   getEnv("LOG_LEVEL", "warn"),
		TokenStore: getEnv("SHIPDESK_TOKEN_STORE", "file"),
		TokenFile:  getEnv("SHIPDESK_TOKEN_FILE", defaultTokenFile()),
		RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:    getEnvInt("REDIS_DB", 0),
		RedisPass:  os.Getenv("REDIS_PASSWORD"),
	}
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".shipdesk-session.json"
	}
	return filepath.Join(dir, "shipdesk", "session.json")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
