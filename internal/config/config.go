package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/benchwatch/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	MigrationsURL       string        `env:"MIGRATIONS_URL" envDefault:"file://internal/repository/migrations"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Document store configuration
	MongoCfg MongoConfig `envPrefix:"MONGO_"`

	// External service configurations
	LLMCfg               LLMConfig               `envPrefix:"LLM_"`
	TargetCfg            TargetConfig            `envPrefix:"TARGET_"`
	CallbackConnectorCfg CallbackConnectorConfig `envPrefix:"CALLBACK_"`

	// Pipeline configuration
	ChunkerCfg   ChunkerConfig   `envPrefix:"CHUNKER_"`
	IngestionCfg IngestionConfig `envPrefix:"INGESTION_"`
	MonitorCfg   MonitorConfig   `envPrefix:"MONITOR_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Optional YAML file overriding the built-in prompts
	PromptsFile string `env:"PROMPTS_FILE"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram run notifications (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

type MongoConfig struct {
	URI            string               `env:"URI,notEmpty"`
	Database       string               `env:"DATABASE" envDefault:"benchwatch"`
	ConnectTimeout time.Duration        `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// LLMConfig selects and configures the generative/judging collaborator.
type LLMConfig struct {
	HTTPClientConfig
	Provider         string        `env:"PROVIDER" envDefault:"openai"`
	APIKey           string        `env:"API_KEY"`
	Model            string        `env:"MODEL"`
	BaseURL          string        `env:"BASE_URL"`
	CompleteEndpoint string        `env:"COMPLETE_ENDPOINT" envDefault:"/v1/complete"`
	MaxTokens        int           `env:"MAX_TOKENS" envDefault:"2048"`
	CallTimeout      time.Duration `env:"CALL_TIMEOUT" envDefault:"60s"`
}

// TargetConfig controls how benchmarked endpoints are called.
type TargetConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"30s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"30s"`
	SlashRetry            bool          `env:"SLASH_RETRY" envDefault:"true"`
	InsecureSkipVerify    bool          `env:"INSECURE_SKIP_VERIFY" envDefault:"false"`
}

type CallbackConnectorConfig struct {
	HTTPClientConfig
	Retry pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"30s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"30s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

type ChunkerConfig struct {
	Size    int `env:"SIZE" envDefault:"1000"`
	Overlap int `env:"OVERLAP" envDefault:"20"`
}

type IngestionConfig struct {
	QuestionsPerChunk int `env:"QUESTIONS_PER_CHUNK" envDefault:"3"`
	MaxChunksPerFile  int `env:"MAX_CHUNKS_PER_FILE" envDefault:"2"`
	Workers           int `env:"WORKERS" envDefault:"2"`
	QueueSize         int `env:"QUEUE_SIZE" envDefault:"32"`
}

// MonitorConfig drives the periodic due-project scan.
type MonitorConfig struct {
	Enabled          bool          `env:"ENABLED" envDefault:"true"`
	Interval         time.Duration `env:"INTERVAL" envDefault:"15m"`
	RunTimeout       time.Duration `env:"RUN_TIMEOUT" envDefault:"5m"`
	MaxQueueWait     time.Duration `env:"MAX_QUEUE_WAIT" envDefault:"10m"`
	CallTimeout      time.Duration `env:"CALL_TIMEOUT" envDefault:"60s"`
	Workers          int           `env:"WORKERS" envDefault:"4"`
	QueueSize        int           `env:"QUEUE_SIZE" envDefault:"64"`
	RecordUnanswered bool          `env:"RECORD_UNANSWERED" envDefault:"false"`
	LockBackend      string        `env:"LOCK_BACKEND" envDefault:"memory"`
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"20971520"`  // 20 MiB
	MaxTotalSize  int64 `env:"MAX_TOTAL_SIZE" envDefault:"52428800"` // 50 MiB
	MaxFileCount  int   `env:"MAX_FILE_COUNT" envDefault:"20"`
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"54525952"` // 52 MiB
}

type TelegramConfig struct {
	BotToken string `env:"BOT_TOKEN"`
	ChatID   int64  `env:"CHAT_ID"`
}

func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

var allowedProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"gemini":    true,
	"http":      true,
	"mock":      true,
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	return Load(*envFlag)
}

// Load reads the env file for environment and parses the process environment.
func Load(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	// Validate Database configuration
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	// Validate chunking
	if cfg.ChunkerCfg.Size < 1 {
		errors = append(errors, fmt.Sprintf("CHUNKER_SIZE must be positive, got %d", cfg.ChunkerCfg.Size))
	}

	if cfg.ChunkerCfg.Overlap < 0 || cfg.ChunkerCfg.Overlap >= cfg.ChunkerCfg.Size {
		errors = append(errors, fmt.Sprintf("CHUNKER_OVERLAP must be between 0 and CHUNKER_SIZE-1, got %d", cfg.ChunkerCfg.Overlap))
	}

	// Validate ingestion
	if cfg.IngestionCfg.QuestionsPerChunk < 1 || cfg.IngestionCfg.QuestionsPerChunk > 20 {
		errors = append(errors, fmt.Sprintf("INGESTION_QUESTIONS_PER_CHUNK must be between 1 and 20, got %d", cfg.IngestionCfg.QuestionsPerChunk))
	}

	if cfg.IngestionCfg.MaxChunksPerFile < 1 {
		errors = append(errors, fmt.Sprintf("INGESTION_MAX_CHUNKS_PER_FILE must be positive, got %d", cfg.IngestionCfg.MaxChunksPerFile))
	}

	if cfg.IngestionCfg.Workers < 1 || cfg.IngestionCfg.QueueSize < 1 {
		errors = append(errors, "INGESTION_WORKERS and INGESTION_QUEUE_SIZE must be positive")
	}

	// Validate monitor
	if cfg.MonitorCfg.Interval < time.Minute {
		errors = append(errors, fmt.Sprintf("MONITOR_INTERVAL must be at least 1m, got %s", cfg.MonitorCfg.Interval))
	}

	if cfg.MonitorCfg.RunTimeout <= 0 || cfg.MonitorCfg.CallTimeout <= 0 {
		errors = append(errors, "MONITOR_RUN_TIMEOUT and MONITOR_CALL_TIMEOUT must be positive")
	}

	if cfg.MonitorCfg.MaxQueueWait < 0 {
		errors = append(errors, fmt.Sprintf("MONITOR_MAX_QUEUE_WAIT must not be negative, got %s", cfg.MonitorCfg.MaxQueueWait))
	}

	if cfg.MonitorCfg.Workers < 1 || cfg.MonitorCfg.QueueSize < 1 {
		errors = append(errors, "MONITOR_WORKERS and MONITOR_QUEUE_SIZE must be positive")
	}

	if cfg.MonitorCfg.LockBackend != "memory" && cfg.MonitorCfg.LockBackend != "redis" {
		errors = append(errors, fmt.Sprintf("MONITOR_LOCK_BACKEND must be memory or redis, got %q", cfg.MonitorCfg.LockBackend))
	}

	// Validate LLM
	if !allowedProviders[cfg.LLMCfg.Provider] {
		errors = append(errors, fmt.Sprintf("LLM_PROVIDER %q is not supported", cfg.LLMCfg.Provider))
	}

	if !cfg.EnableMocks && cfg.LLMCfg.Provider != "mock" && cfg.LLMCfg.Provider != "http" && cfg.LLMCfg.APIKey == "" {
		errors = append(errors, "LLM_API_KEY is required for provider "+cfg.LLMCfg.Provider)
	}

	if cfg.LLMCfg.Provider == "http" && cfg.LLMCfg.Url == "" {
		errors = append(errors, "LLM_SERVICE_URL is required for provider http")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
