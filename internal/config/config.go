package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	DBDriver    string
	DatabaseDSN string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	LogLevel    string
	LogFile     string

	// Auction rules.
	MinStartingPrice     decimal.Decimal
	MinBidIncrement      decimal.Decimal
	DefaultStartingPrice decimal.Decimal

	TxRetryAttempts int
	TxRetryDelay    time.Duration

	// IdentitySource is a file path or http(s) URL with a JSON array of identities.
	IdentitySource string
}

// Load builds Config from environment with sensible defaults.
// A dotenv file (ENV_FILE, default .env) is loaded first when present.
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	_ = godotenv.Load(envFile)

	return &Config{
		DBDriver:             getEnv("DB_DRIVER", "mysql"),
		DatabaseDSN:          getEnv("DATABASE_DSN", "user:password@tcp(localhost:3306)/auctions?charset=utf8mb4&parseTime=True&loc=UTC"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisPass:            os.Getenv("REDIS_PASSWORD"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFile:              os.Getenv("LOG_FILE"),
		MinStartingPrice:     getEnvDecimal("AUCTION_MIN_STARTING_PRICE", decimal.NewFromInt(1)),
		MinBidIncrement:      getEnvDecimal("AUCTION_MIN_BID_INCREMENT", decimal.NewFromFloat(0.05)),
		DefaultStartingPrice: getEnvDecimal("AUCTION_DEFAULT_STARTING_PRICE", decimal.NewFromInt(1)),
		TxRetryAttempts:      getEnvInt("TX_RETRY_ATTEMPTS", 3),
		TxRetryDelay:         getEnvDuration("TX_RETRY_DELAY", 20*time.Millisecond),
		IdentitySource:       os.Getenv("IDENTITY_SOURCE"),
	}
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

func getEnvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if parsed, err := decimal.NewFromString(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
