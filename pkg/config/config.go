package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
	// WorkflowTokenTTL bounds the lifetime of tokens issued for outbound
	// calls to the AI workflow and document processor.
	WorkflowTokenTTL time.Duration
}

// WorkflowConfig holds configuration for the external AI workflow engine
type WorkflowConfig struct {
	ChatURL    string
	Timeout    time.Duration
	MaxRetries int
}

// ProcessorConfig holds configuration for the external document processor
type ProcessorConfig struct {
	URL     string
	Timeout time.Duration
	// WebhookSecret authenticates the processor's callback requests
	WebhookSecret string
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint      string
	Bucket        string
	SigningSecret string
	UploadTTL     time.Duration
	DownloadTTL   time.Duration
	ProcessorTTL  time.Duration
}

// SMTPConfig holds outbound email configuration
type SMTPConfig struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// Config holds all configuration
type Config struct {
	ServiceName string
	DB          DBConfig
	Server      ServerConfig
	JWT         JWTConfig
	Workflow    WorkflowConfig
	Processor   ProcessorConfig
	Storage     StorageConfig
	SMTP        SMTPConfig
	Log         LogConfig
	Metrics     MetricsConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not returning error as .env file is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		ServiceName: getEnv("SERVICE_NAME", "support-chat-service"),
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "support_chat"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		JWT: JWTConfig{
			SigningKey:       getEnv("JWT_SIGNING_KEY", "defaultsecretkey"),
			ExpirationHours:  getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
			WorkflowTokenTTL: getEnvAsDuration("WORKFLOW_TOKEN_TTL", 10*time.Minute),
		},
		Workflow: WorkflowConfig{
			ChatURL: getEnv("WORKFLOW_CHAT_URL", "http://localhost:5678/webhook/chat"),
			// The workflow may run multi-step reasoning, so this timeout is
			// deliberately much longer than a typical web request.
			Timeout:    getEnvAsDuration("WORKFLOW_TIMEOUT", 3*time.Minute),
			MaxRetries: getEnvAsInt("WORKFLOW_MAX_RETRIES", 2),
		},
		Processor: ProcessorConfig{
			URL:           getEnv("PROCESSOR_URL", "http://localhost:5678/webhook/process-document"),
			Timeout:       getEnvAsDuration("PROCESSOR_TIMEOUT", 30*time.Second),
			WebhookSecret: getEnv("PROCESSOR_WEBHOOK_SECRET", "webhooksecret"),
		},
		Storage: StorageConfig{
			Endpoint:      getEnv("STORAGE_ENDPOINT", "http://localhost:9000"),
			Bucket:        getEnv("STORAGE_BUCKET", "documents"),
			SigningSecret: getEnv("STORAGE_SIGNING_SECRET", "storagesecret"),
			UploadTTL:     getEnvAsDuration("STORAGE_UPLOAD_TTL", 10*time.Minute),
			DownloadTTL:   getEnvAsDuration("STORAGE_DOWNLOAD_TTL", 1*time.Hour),
			ProcessorTTL:  getEnvAsDuration("STORAGE_PROCESSOR_TTL", 48*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnv("SMTP_PORT", "587"),
			From:     getEnv("SMTP_FROM", "noreply@example.com"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "support_chat"),
		},
	}

	return config, nil
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
