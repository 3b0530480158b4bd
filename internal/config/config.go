package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	HTTP     HTTPConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	LLM      LLMConfig
	Game     GameConfig
}

// HTTPConfig holds the listen address and the externally visible base URL
// used when building join links and QR codes
type HTTPConfig struct {
	Addr          string
	PublicBaseURL string
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PostgresConfig holds the archive database configuration.
// An empty DSN disables the post-game archive.
type PostgresConfig struct {
	DSN string
}

// LLMConfig holds content-generator configuration.
// An empty provider disables narration and the adversary falls back to
// random behavior.
type LLMConfig struct {
	Provider    string // openai, claude, gemini, groq, ollama, openai-compatible
	Model       string
	BaseURL     string // endpoint for openai-compatible providers
	APIKey      string
	OllamaURL   string
	Temperature float64
}

// GameConfig holds pacing timers, in seconds
type GameConfig struct {
	DiscussionSeconds  int
	VoteTimeoutSeconds int
	EpilogueSeconds    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:          getEnvOrDefault("HTTP_ADDR", ":8080"),
			PublicBaseURL: getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvAsIntOrDefault("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		LLM: LLMConfig{
			Provider:    os.Getenv("LLM_PROVIDER"),
			Model:       os.Getenv("LLM_MODEL"),
			BaseURL:     os.Getenv("LLM_BASE_URL"),
			APIKey:      os.Getenv("LLM_API_KEY"),
			OllamaURL:   getEnvOrDefault("LLM_OLLAMA_URL", "http://localhost:11434"),
			Temperature: getEnvAsFloatOrDefault("LLM_TEMPERATURE", 0.8),
		},
		Game: GameConfig{
			DiscussionSeconds:  getEnvAsIntOrDefault("DISCUSSION_SECONDS", 90),
			VoteTimeoutSeconds: getEnvAsIntOrDefault("VOTE_TIMEOUT_SECONDS", 60),
			EpilogueSeconds:    getEnvAsIntOrDefault("EPILOGUE_SECONDS", 30),
		},
	}

	// Validate required fields
	if cfg.Game.VoteTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("VOTE_TIMEOUT_SECONDS must be positive")
	}
	if cfg.Game.DiscussionSeconds <= 0 {
		return nil, fmt.Errorf("DISCUSSION_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
