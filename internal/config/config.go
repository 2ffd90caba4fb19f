package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// History backends.
const (
	HistoryFirestore = "firestore"
	HistoryPostgres  = "postgres"
)

// Config holds notifier configuration loaded from the environment.
type Config struct {
	AppName   string
	LogLevel  string
	LogFormat string
	HTTPPort  string

	FirebaseProjectID string
	CredentialsFile   string
	TokensCollection  string
	HistoryCollection string
	HistoryBackend    string
	DatabaseURL       string
	HistoryTable      string

	RabbitURL       string
	ProductExchange string
	ProductQueue    string
	DeadLetterQueue string
	PrefetchCount   int
	WorkerCount     int

	RedisURL string
	DedupTTL time.Duration

	LowStockThreshold int
	ProductCreatedTTL time.Duration
	CleanupInterval   time.Duration
	CleanupOnStart    bool
	ProbeConcurrency  int

	ConnectMaxAttempts    int
	ConnectInitialBackoff time.Duration
	ConnectMaxBackoff     time.Duration
}

// Load loads configuration and performs basic validation.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:   getEnv("APP_NAME", "catalog_notifier"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		HTTPPort:  getEnv("HTTP_PORT", "8083"),

		FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),
		CredentialsFile:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		TokensCollection:  getEnv("TOKENS_COLLECTION", "user_tokens"),
		HistoryCollection: getEnv("HISTORY_COLLECTION", "notifications_history"),
		HistoryBackend:    strings.ToLower(getEnv("HISTORY_BACKEND", HistoryFirestore)),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		HistoryTable:      getEnv("HISTORY_TABLE", "notifications_history"),

		RabbitURL:       getEnv("RABBITMQ_URL", ""),
		ProductExchange: getEnv("PRODUCT_EXCHANGE", "catalog.events"),
		ProductQueue:    getEnv("PRODUCT_QUEUE", "catalog.product.notifications"),
		DeadLetterQueue: getEnv("PRODUCT_DLQ", "catalog.product.failed"),
		PrefetchCount:   getEnvAsInt("PREFETCH", 50),
		WorkerCount:     getEnvAsInt("WORKER_COUNT", 4),

		RedisURL: getEnv("REDIS_URL", ""),
		DedupTTL: getEnvAsDuration("DEDUP_TTL", 72*time.Hour),

		LowStockThreshold: getEnvAsInt("LOW_STOCK_THRESHOLD", 10),
		ProductCreatedTTL: getEnvAsDuration("PRODUCT_CREATED_TTL", 24*time.Hour),
		CleanupInterval:   getEnvAsDuration("CLEANUP_INTERVAL", 24*time.Hour),
		CleanupOnStart:    getEnvAsBool("CLEANUP_ON_START", false),
		ProbeConcurrency:  getEnvAsInt("PROBE_CONCURRENCY", 8),

		ConnectMaxAttempts:    getEnvAsInt("CONNECT_MAX_ATTEMPTS", 5),
		ConnectInitialBackoff: getEnvAsDuration("CONNECT_INITIAL_BACKOFF", time.Second),
		ConnectMaxBackoff:     getEnvAsDuration("CONNECT_MAX_BACKOFF", 15*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.FirebaseProjectID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}
	if c.RabbitURL == "" {
		missing = append(missing, "RABBITMQ_URL")
	}
	if c.HistoryBackend == HistoryPostgres && c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	switch c.HistoryBackend {
	case HistoryFirestore, HistoryPostgres:
	default:
		return fmt.Errorf("unsupported HISTORY_BACKEND %q", c.HistoryBackend)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive, got %s", c.CleanupInterval)
	}
	return nil
}

func getEnv(key, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return value
}

func getEnvAsInt(key string, def int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid int for %s, using default %d: %v", key, def, err)
			return def
		}
		return i
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("invalid bool for %s, using default %t: %v", key, def, err)
			return def
		}
		return b
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("invalid duration for %s, using default %s: %v", key, def, err)
			return def
		}
		return d
	}
	return def
}
