package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the worker service
type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	RabbitMQ    RabbitMQConfig `mapstructure:"rabbitmq"`
	Storage     StorageConfig  `mapstructure:"storage"`
	Nav         NavConfig      `mapstructure:"nav"`
	Worker      WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig covers the worker's operational HTTP listener (metrics,
// health); the product API lives in a separate service.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RabbitMQConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

type StorageConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// NavConfig configures the external fund data source and the scoring
// policy constants.
type NavConfig struct {
	BaseURL         string  `mapstructure:"base_url"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	MatchThreshold  float64 `mapstructure:"match_threshold"`
	RiskFreeRate    float64 `mapstructure:"risk_free_rate"`
	BenchmarkReturn float64 `mapstructure:"benchmark_return"`
}

type WorkerConfig struct {
	Concurrency            int `mapstructure:"concurrency"`
	DownloadMaxAttempts    int `mapstructure:"download_max_attempts"`
	DownloadRetryDelaySecs int `mapstructure:"download_retry_delay_secs"`
	RestartBackoffSecs     int `mapstructure:"restart_backoff_secs"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 9090)
	viper.SetDefault("server.host", "0.0.0.0")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "folio_service")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	// Queue defaults
	viper.SetDefault("rabbitmq.url", "amqp://localhost:5672")
	viper.SetDefault("rabbitmq.queue", "cas_processing_queue")

	// Storage defaults
	viper.SetDefault("storage.region", "us-east-1")

	// NAV data source defaults
	viper.SetDefault("nav.base_url", "https://api.mfapi.in")
	viper.SetDefault("nav.timeout_seconds", 30)
	viper.SetDefault("nav.match_threshold", 0.55)
	viper.SetDefault("nav.risk_free_rate", 6.0)
	viper.SetDefault("nav.benchmark_return", 12.0)

	// Worker defaults
	viper.SetDefault("worker.concurrency", 4)
	viper.SetDefault("worker.download_max_attempts", 3)
	viper.SetDefault("worker.download_retry_delay_secs", 2)
	viper.SetDefault("worker.restart_backoff_secs", 1)
}

func overrideFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	if amqpURL := os.Getenv("RABBITMQ_URL"); amqpURL != "" {
		viper.Set("rabbitmq.url", amqpURL)
	}
	if queue := os.Getenv("RABBITMQ_QUEUE"); queue != "" {
		viper.Set("rabbitmq.queue", queue)
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		viper.Set("storage.region", region)
	}
	if bucket := os.Getenv("S3_BUCKET_NAME"); bucket != "" {
		viper.Set("storage.bucket", bucket)
	}
	if accessKey := os.Getenv("AWS_ACCESS_KEY_ID"); accessKey != "" {
		viper.Set("storage.access_key_id", accessKey)
	}
	if secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY"); secretKey != "" {
		viper.Set("storage.secret_access_key", secretKey)
	}

	if navURL := os.Getenv("NAV_API_BASE_URL"); navURL != "" {
		viper.Set("nav.base_url", navURL)
	}

	if concurrency := os.Getenv("WORKER_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil {
			viper.Set("worker.concurrency", n)
		}
	}
}

func validate(config *Config) error {
	if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	if config.RabbitMQ.URL == "" || config.RabbitMQ.Queue == "" {
		return fmt.Errorf("rabbitmq configuration is incomplete")
	}

	if strings.TrimSpace(config.Storage.Bucket) == "" {
		return fmt.Errorf("storage bucket is required")
	}

	if config.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be positive")
	}

	return nil
}
