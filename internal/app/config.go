package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver определяет реализацию хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers         string
	OrderEventsTopic     string
	WholesaleEventsTopic string
	DLQTopic             string

	RedisAddr       string
	CatalogCacheTTL time.Duration

	InvoiceBaseURL string

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
}

// DefaultConfig возвращает базовые настройки: in-memory хранилище,
// HTTP API на :8080 и метрики на :9090.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		CatalogCacheTTL:             5 * time.Minute,
		InvoiceBaseURL:              "https://invoices.marketplace.local",
		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            50 * time.Millisecond,
	}
}

// ConfigFromEnv строит конфигурацию из переменных окружения поверх
// значений по умолчанию. .env подхватывается в main через godotenv.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envString("HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("METRICS_ADDR", cfg.MetricsAddr)

	cfg.StorageDriver = envString("STORAGE_DRIVER", cfg.StorageDriver)
	cfg.PostgresDSN = envString("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PostgresAutoMigrate = envBool("POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate)

	cfg.KafkaBrokers = envString("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.OrderEventsTopic = envString("KAFKA_ORDER_EVENTS_TOPIC", cfg.OrderEventsTopic)
	cfg.WholesaleEventsTopic = envString("KAFKA_WHOLESALE_EVENTS_TOPIC", cfg.WholesaleEventsTopic)
	cfg.DLQTopic = envString("KAFKA_DLQ_TOPIC", cfg.DLQTopic)

	cfg.RedisAddr = envString("REDIS_ADDR", cfg.RedisAddr)
	cfg.CatalogCacheTTL = envDuration("CATALOG_CACHE_TTL", cfg.CatalogCacheTTL)

	cfg.InvoiceBaseURL = envString("INVOICE_BASE_URL", cfg.InvoiceBaseURL)

	cfg.IdempotencyTTL = envDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	cfg.IdempotencyCleanupInterval = envDuration("IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval)
	cfg.IdempotencyCleanupBatchSize = envInt("IDEMPOTENCY_CLEANUP_BATCH_SIZE", cfg.IdempotencyCleanupBatchSize)

	cfg.OutboxPollInterval = envDuration("OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = envInt("OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.OutboxRetryDelay = envDuration("OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay)

	return cfg
}

func envString(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(name string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envDuration(name string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
