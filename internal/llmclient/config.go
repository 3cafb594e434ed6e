package llmclient

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds OpenAI-compatible LLM connection settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxRetries  int // retries of a failed call; every error is retried, transient or not
	HTTPTimeout int // seconds
}

// NewConfigFromEnv builds a Config from LLM_API_KEY, LLM_BASE_URL, LLM_MODEL,
// LLM_MAX_RETRIES, LLM_HTTP_TIMEOUT.
func NewConfigFromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:      os.Getenv("LLM_API_KEY"),
		BaseURL:     getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:       getEnvOrDefault("LLM_MODEL", "gpt-4o"),
		MaxRetries:  getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
		HTTPTimeout: getEnvIntOrDefault("LLM_HTTP_TIMEOUT", 300),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports whether cfg is usable.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required, set it in .env or the environment")
	}
	if c.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES cannot be negative, got %d", c.MaxRetries)
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
