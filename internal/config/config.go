package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"identarr/internal/models"
)

// Config holds all application configuration
type Config struct {
	// TMDB
	TMDBAPIKey   string
	TMDBBaseURL  string
	TMDBLanguage string
	TMDBCacheTTL time.Duration

	// Completion service
	LLMHost    string // empty disables the natural-language pipeline
	LLMModel   string
	LLMTimeout time.Duration

	// Pipeline
	UseModelPipeline bool

	// Queue
	Queue models.QueueConfig

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/identarr.db
	IgnoreFile   string // $CONFIG_DIR/ignore.txt

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("TMDB_BASE_URL", "")
	viper.SetDefault("TMDB_LANGUAGE", "en-US")
	viper.SetDefault("TMDB_CACHE_TTL_MINUTES", 5)
	viper.SetDefault("LLM_TIMEOUT_SECONDS", 60)
	viper.SetDefault("USE_MODEL_PIPELINE", false)
	viper.SetDefault("QUEUE_CONCURRENCY", 4)
	viper.SetDefault("QUEUE_BATCH_SIZE", 10)
	viper.SetDefault("RETRY_DELAY_SECONDS", 30)
	viper.SetDefault("MAX_RETRY_DELAY_SECONDS", 900)
	viper.SetDefault("BACKOFF_FACTOR", 2.0)
	viper.SetDefault("DEFAULT_MAX_RETRIES", 3)
	viper.SetDefault("PROCESSING_TIMEOUT_SECONDS", 120)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "identarr")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// TMDB
		TMDBAPIKey:   viper.GetString("TMDB_API_KEY"),
		TMDBBaseURL:  viper.GetString("TMDB_BASE_URL"),
		TMDBLanguage: viper.GetString("TMDB_LANGUAGE"),
		TMDBCacheTTL: time.Duration(viper.GetInt("TMDB_CACHE_TTL_MINUTES")) * time.Minute,

		// Completion service
		LLMHost:    viper.GetString("LLM_HOST"),
		LLMModel:   viper.GetString("LLM_MODEL"),
		LLMTimeout: time.Duration(viper.GetInt("LLM_TIMEOUT_SECONDS")) * time.Second,

		// Pipeline
		UseModelPipeline: viper.GetBool("USE_MODEL_PIPELINE"),

		// Queue
		Queue: models.QueueConfig{
			Concurrency:       viper.GetInt("QUEUE_CONCURRENCY"),
			BatchSize:         viper.GetInt("QUEUE_BATCH_SIZE"),
			RetryDelay:        time.Duration(viper.GetInt("RETRY_DELAY_SECONDS")) * time.Second,
			MaxRetryDelay:     time.Duration(viper.GetInt("MAX_RETRY_DELAY_SECONDS")) * time.Second,
			BackoffFactor:     viper.GetFloat64("BACKOFF_FACTOR"),
			DefaultMaxRetries: viper.GetInt("DEFAULT_MAX_RETRIES"),
			ProcessingTimeout: time.Duration(viper.GetInt("PROCESSING_TIMEOUT_SECONDS")) * time.Second,
		},

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// Paths
		DatabaseFile: filepath.Join(configDir, "identarr.db"),
		IgnoreFile:   filepath.Join(configDir, "ignore.txt"),

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate required fields
	if config.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY is required")
	}
	if config.UseModelPipeline && config.LLMHost == "" {
		return nil, fmt.Errorf("LLM_HOST is required when USE_MODEL_PIPELINE is enabled")
	}
	if config.UseModelPipeline && config.LLMModel == "" {
		return nil, fmt.Errorf("LLM_MODEL is required when USE_MODEL_PIPELINE is enabled")
	}
	if err := config.Queue.Validate(); err != nil {
		return nil, fmt.Errorf("invalid queue configuration: %w", err)
	}

	return config, nil
}
