package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Market   MarketConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the quote cache configuration. An empty Addr falls
// back to the in-process cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	QuoteTTL time.Duration
}

// KafkaConfig holds change-event broker configuration. Empty brokers
// disable change notification.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// MarketConfig holds the external price source endpoints
type MarketConfig struct {
	FxURL           string
	StockQuoteURL   string
	FundPageURL     string
	FxCacheTTL      time.Duration
	RefreshInterval time.Duration
	RequestsPerSec  float64
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// Load reads configuration from the environment, with .env support
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println(".env file loaded")
	}

	secret := getEnv("JWT_SECRET", "dev-only-secret-change-me")
	if secret == "dev-only-secret-change-me" {
		log.Println("WARNING: using default JWT_SECRET, set JWT_SECRET for production")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "fintrack"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
			QuoteTTL: getDuration("REDIS_QUOTE_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "record-changes"),
		},
		Market: MarketConfig{
			FxURL:           getEnv("MARKET_FX_URL", "https://api.doviz-kurlari.example.com/v1/rates"),
			StockQuoteURL:   getEnv("MARKET_STOCK_QUOTE_URL", "https://piyasa.example.com/v1/quote"),
			FundPageURL:     getEnv("MARKET_FUND_PAGE_URL", "https://fonlar.example.gov.tr/FundAnalysis"),
			FxCacheTTL:      getDuration("MARKET_FX_CACHE_TTL", time.Minute),
			RefreshInterval: getDuration("MARKET_REFRESH_INTERVAL", time.Minute),
			RequestsPerSec:  2,
		},
		Auth: AuthConfig{
			JWTSecret: secret,
			TokenTTL:  getDuration("ACCESS_TOKEN_EXPIRY", time.Hour),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("WARNING: invalid %s %q, using default %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
