package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Public base URL of the server; LOCAL_STORAGE_URL defaults beneath it
	BaseURL string

	// AI Provider Configuration
	AIProvider       string // "mock", "gemini", "openai" or "anthropic"
	AIRequestTimeout time.Duration
	AnalysisTimeout  time.Duration // Bounds a whole analysis; 0 disables
	ConfidencePolicy string        // "clamp" or "strict"

	// Empty models fall back to each provider's default
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	// Storage Configuration
	StorageProvider string // "memory", "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string // Base directory for local file storage
	LocalStorageURL  string // Base URL for accessing local files

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string // Optional custom domain URL
	R2Endpoint        string // Optional, for other S3-compatible services
	R2Region          string

	// Preview Configuration
	PreviewURLTTL  time.Duration
	PreviewMaxSize int
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	port := getEnvInt("PORT", 8080)
	baseURL := strings.TrimSuffix(getEnv("BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/")

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		BaseURL:  baseURL,

		AIProvider:       getEnv("AI_PROVIDER", "mock"),
		AIRequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),
		AnalysisTimeout:  getEnvDuration("ANALYSIS_TIMEOUT", 0),
		ConfidencePolicy: getEnv("CONFIDENCE_POLICY", "clamp"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   os.Getenv("ANTHROPIC_MODEL"),
		AnthropicBaseURL: os.Getenv("ANTHROPIC_BASE_URL"),

		StorageProvider: getEnv("STORAGE_PROVIDER", "memory"),

		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", baseURL+"/files"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),
		R2Endpoint:        os.Getenv("R2_ENDPOINT"),
		R2Region:          getEnv("R2_REGION", "auto"),

		PreviewURLTTL:  getEnvDuration("PREVIEW_URL_TTL", 15*time.Minute),
		PreviewMaxSize: getEnvInt("PREVIEW_MAX_SIZE", 1024),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the selected providers have the settings they need.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got: %d", c.Port)
	}

	// Validate storage configuration
	switch c.StorageProvider {
	case "memory":
	case "local":
		if c.LocalStoragePath == "" {
			return fmt.Errorf("LOCAL_STORAGE_PATH is required when STORAGE_PROVIDER is 'local'")
		}
	case "r2":
		if c.R2AccountID == "" && c.R2Endpoint == "" {
			return fmt.Errorf("R2_ACCOUNT_ID or R2_ENDPOINT is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2AccessKeyID == "" {
			return fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2SecretAccessKey == "" {
			return fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2BucketName == "" {
			return fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be one of 'memory', 'local' or 'r2', got: %s", c.StorageProvider)
	}

	// Validate AI provider configuration
	switch c.AIProvider {
	case "mock":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is 'gemini'")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is 'openai'")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is 'anthropic'")
		}
	default:
		return fmt.Errorf("AI_PROVIDER must be one of 'mock', 'gemini', 'openai' or 'anthropic', got: %s", c.AIProvider)
	}

	if c.ConfidencePolicy != "clamp" && c.ConfidencePolicy != "strict" {
		return fmt.Errorf("CONFIDENCE_POLICY must be either 'clamp' or 'strict', got: %s", c.ConfidencePolicy)
	}

	if c.AIRequestTimeout <= 0 {
		return fmt.Errorf("AI_REQUEST_TIMEOUT must be positive, got: %s", c.AIRequestTimeout)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
