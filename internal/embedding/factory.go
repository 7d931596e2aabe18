package embedding

import (
	"fmt"
	"time"
)

// Config selects and configures an embedding provider.
type Config struct {
	Provider string // "hash" | "openai" | "ollama"
	Model    string
	Dims     int
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// New builds the embedder named by cfg.Provider. An empty provider selects the
// offline hashing encoder.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "hash":
		return NewHashEmbedder(cfg.Dims), nil
	case "openai":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai embeddings need an API key or base URL")
		}
		return NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dims, cfg.Timeout), nil
	case "ollama":
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dims, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
