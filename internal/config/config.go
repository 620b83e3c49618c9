package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Provider ProviderConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Sync     SyncConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ProviderConfig holds credentials and tuning for the ticketing provider API.
// ClientKey, Secret and Group have no defaults: a deployment without them
// cannot sign requests and must refuse to start.
type ProviderConfig struct {
	BaseURL         string
	ClientKey       string
	Secret          string
	Group           string
	PageSize        int
	PageConcurrency int
	MaxRetries      int
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	RequestTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr       string
	Enabled    bool
	SummaryTTL time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	Enabled  bool
	MockMode bool
}

type SyncConfig struct {
	Concurrency       int
	BatchSize         int
	ArtistCacheTTL    time.Duration
	EventLookbackDays int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Provider: ProviderConfig{
			BaseURL:         getEnv("PROVIDER_BASE_URL", "https://api.ticketprovider.example"),
			ClientKey:       getEnv("PROVIDER_CLIENT_KEY", ""),
			Secret:          getEnv("PROVIDER_SECRET", ""),
			Group:           getEnv("PROVIDER_GROUP", ""),
			PageSize:        getEnvInt("PROVIDER_PAGE_SIZE", 100),
			PageConcurrency: getEnvInt("PROVIDER_PAGE_CONCURRENCY", 4),
			MaxRetries:      getEnvInt("PROVIDER_MAX_RETRIES", 3),
			RetryBaseDelay:  getEnvDuration("PROVIDER_RETRY_BASE_DELAY", 500*time.Millisecond),
			RetryMaxDelay:   getEnvDuration("PROVIDER_RETRY_MAX_DELAY", 8*time.Second),
			RequestTimeout:  getEnvDuration("PROVIDER_REQUEST_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "ticketsync"),
			Password:     getEnv("DB_PASSWORD", "ticketsync"),
			Database:     getEnv("DB_NAME", "ticketsync"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled:    getEnvBool("REDIS_ENABLED", true),
			SummaryTTL: getEnvDuration("REDIS_SUMMARY_TTL", 60*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:  []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Topic:    getEnv("KAFKA_TOPIC_SYNC_COMPLETED", "ticketly.sync.completed"),
			Enabled:  getEnvBool("KAFKA_ENABLED", false),
			MockMode: getEnvBool("KAFKA_MOCK_MODE", false),
		},
		Sync: SyncConfig{
			Concurrency:       getEnvInt("SYNC_CONCURRENCY", 10),
			BatchSize:         getEnvInt("SYNC_BATCH_SIZE", 500),
			ArtistCacheTTL:    getEnvDuration("ARTIST_CACHE_TTL", 10*time.Minute),
			EventLookbackDays: getEnvInt("SYNC_EVENT_LOOKBACK_DAYS", 30),
		},
	}
}

// Validate rejects configurations that cannot operate at all. Missing
// provider credentials are fatal at process start; nothing else is.
func (c *Config) Validate() error {
	if c.Provider.ClientKey == "" {
		return fmt.Errorf("PROVIDER_CLIENT_KEY is required")
	}
	if c.Provider.Secret == "" {
		return fmt.Errorf("PROVIDER_SECRET is required")
	}
	if c.Provider.Group == "" {
		return fmt.Errorf("PROVIDER_GROUP is required")
	}
	return nil
}

// DSN builds the postgres connection string for lib/pq.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
