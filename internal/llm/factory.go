package llm

import (
	"context"
	"fmt"
	"time"
)

// Config selects and configures a completion provider.
type Config struct {
	Provider    string // "groq" | "openai" | "googleai" | "ollama" | "anthropic" | "none"
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

var defaultModels = map[string]string{
	"groq":      "llama-3.1-8b-instant",
	"openai":    "gpt-4o-mini",
	"googleai":  "gemini-1.5-flash",
	"ollama":    "llama3",
	"anthropic": "claude-3-5-haiku-latest",
}

// New builds the configured completer wrapped with the call timeout.
func New(ctx context.Context, cfg Config) (Completer, error) {
	if cfg.Provider == "" || cfg.Provider == "none" {
		return Disabled{}, nil
	}
	model := cfg.Model
	if model == "" {
		model = defaultModels[cfg.Provider]
	}

	var c Completer
	switch cfg.Provider {
	case "groq", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s provider needs an API key", cfg.Provider)
		}
		base := cfg.BaseURL
		if base == "" && cfg.Provider == "groq" {
			base = GroqBaseURL
		}
		m, err := NewOpenAICompatible(base, cfg.APIKey, model)
		if err != nil {
			return nil, err
		}
		c = NewLangChain(m, cfg.Temperature, cfg.MaxTokens)
	case "googleai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("googleai provider needs an API key")
		}
		m, err := NewGoogleAI(ctx, cfg.APIKey, model)
		if err != nil {
			return nil, err
		}
		c = NewLangChain(m, cfg.Temperature, cfg.MaxTokens)
	case "ollama":
		m, err := NewOllama(cfg.BaseURL, model)
		if err != nil {
			return nil, err
		}
		c = NewLangChain(m, cfg.Temperature, cfg.MaxTokens)
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider needs an API key")
		}
		c = NewAnthropic(cfg.APIKey, cfg.BaseURL, model, cfg.Temperature, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	return WithTimeout(c, cfg.Timeout), nil
}
