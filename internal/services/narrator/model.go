package narrator

import (
	"context"
	"log"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/firesidegames/betrayal/internal/config"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// NewModel builds the language model shared by the narrator and the
// hidden adversary. A blank or unknown provider returns nil, which
// disables generated narration and leaves the adversary on random
// behavior; the game itself still runs.
func NewModel(ctx context.Context, cfg config.LLMConfig) llms.Model {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		log.Printf("[llm] No provider configured, narration and adversary dialog are disabled")
		return nil
	}

	var (
		model llms.Model
		err   error
	)
	switch provider {
	case "ollama":
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaURL),
		)
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		model, err = openai.New(opts...)
	case "claude", "anthropic":
		opts := []anthropic.Option{anthropic.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.APIKey))
		}
		model, err = anthropic.New(opts...)
	case "gemini", "googleai":
		opts := []googleai.Option{googleai.WithDefaultModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, googleai.WithAPIKey(cfg.APIKey))
		}
		model, err = googleai.New(ctx, opts...)
	case "groq":
		model, err = openai.New(
			openai.WithModel(cfg.Model),
			openai.WithBaseURL(groqBaseURL),
			openai.WithToken(cfg.APIKey),
		)
	case "openai-compatible":
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithBaseURL(cfg.BaseURL),
		}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		model, err = openai.New(opts...)
	default:
		log.Printf("[llm] Unknown provider %q, narration and adversary dialog are disabled", cfg.Provider)
		return nil
	}
	if err != nil {
		log.Printf("[llm] Could not initialize %s model: %v", provider, err)
		return nil
	}

	log.Printf("[llm] Using %s model %q", provider, cfg.Model)
	return model
}
