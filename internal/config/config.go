package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Alpaca    AlpacaConfig
	OpenAI    OpenAIConfig
	CoinGecko CoinGeckoConfig
	Polling   PollingConfig
	Display   DisplayConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// LoggerConfig holds zap logger configuration
type LoggerConfig struct {
	Level    string
	Encoding string
}

// DatabaseConfig holds PostgreSQL configuration for the bot status store
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	StatusTopic   string
	ConsumerGroup string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// AlpacaConfig holds brokerage API configuration.
// Credentials are not stored here; see Credentials.
type AlpacaConfig struct {
	BaseURL string
	Timeout time.Duration
}

// OpenAIConfig holds text-generation service configuration
type OpenAIConfig struct {
	BaseURL           string
	Model             string
	MaxTokens         int
	Temperature       float64
	Timeout           time.Duration
	RequestsPerMinute int
}

// CoinGeckoConfig holds the price ticker configuration
type CoinGeckoConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PollingConfig holds the refresh schedules, in cron descriptor syntax
type PollingConfig struct {
	Account string
	Status  string
	Price   string
}

// DisplayConfig controls how timestamps are rendered for the viewer
type DisplayConfig struct {
	Timezone string
}

// Load reads configuration from environment variables, after loading a
// .env file from the working directory if one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8081"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "postgres"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "satoshi"),
			Password:       getEnv("DB_PASSWORD", "satoshi"),
			DBName:         getEnv("DB_NAME", "satoshi_accumulator"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "file://./db/migrations"),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvBool("KAFKA_ENABLED", true),
			Brokers:       parseBrokers(getEnv("KAFKA_BROKERS", "localhost:19092")),
			StatusTopic:   getEnv("KAFKA_STATUS_TOPIC", "bot.status"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "satoshi-dashboard"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_TTL", 60*time.Second),
		},
		Alpaca: AlpacaConfig{
			BaseURL: getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
			Timeout: getEnvDuration("ALPACA_TIMEOUT", 15*time.Second),
		},
		OpenAI: OpenAIConfig{
			BaseURL:           getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:             getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			MaxTokens:         getEnvInt("OPENAI_MAX_TOKENS", 100),
			Temperature:       getEnvFloat("OPENAI_TEMPERATURE", 0.7),
			Timeout:           getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
			RequestsPerMinute: getEnvInt("OPENAI_REQUESTS_PER_MINUTE", 30),
		},
		CoinGecko: CoinGeckoConfig{
			BaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
			Timeout: getEnvDuration("COINGECKO_TIMEOUT", 10*time.Second),
		},
		Polling: PollingConfig{
			Account: getEnv("POLL_ACCOUNT", "@every 5m"),
			Status:  getEnv("POLL_STATUS", "@every 5m"),
			Price:   getEnv("POLL_PRICE", "@every 1m"),
		},
		Display: DisplayConfig{
			Timezone: getEnv("DISPLAY_TIMEZONE", "Local"),
		},
	}
}

// Credentials holds the brokerage key pair
type Credentials struct {
	KeyID     string
	SecretKey string
}

// Valid reports whether both halves of the key pair are set
func (c Credentials) Valid() bool {
	return c.KeyID != "" && c.SecretKey != ""
}

// AlpacaCredentials reads the brokerage key pair from the environment at
// call time. ALPACA_API_SECRET is accepted as an alias for ALPACA_SECRET_KEY.
func AlpacaCredentials() Credentials {
	secret := os.Getenv("ALPACA_SECRET_KEY")
	if secret == "" {
		secret = os.Getenv("ALPACA_API_SECRET")
	}
	return Credentials{
		KeyID:     os.Getenv("ALPACA_API_KEY"),
		SecretKey: secret,
	}
}

// OpenAIAPIKey reads the text-generation key from the environment at call time
func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

// Location resolves the display timezone, falling back to the process local zone
func (d *DisplayConfig) Location() *time.Location {
	if d.Timezone == "" || d.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// parseBrokers splits a comma-separated broker list
func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
