package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEmbedder uses a local Ollama instance through langchaingo.
type OllamaEmbedder struct {
	impl    *embeddings.EmbedderImpl
	dims    int
	timeout time.Duration
}

// NewOllamaEmbedder creates an embedder for model served at serverURL.
// nomic-embed-text produces 768 dims, all-minilm 384.
func NewOllamaEmbedder(serverURL, model string, dims int, timeout time.Duration) (*OllamaEmbedder, error) {
	if model == "" {
		model = "nomic-embed-text"
	}
	if dims <= 0 {
		dims = 768
		if model == "all-minilm" {
			dims = 384
		}
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	impl, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}
	return &OllamaEmbedder{impl: impl, dims: dims, timeout: timeout}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	v, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return v, nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	vecs, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed batch: %w", err)
	}
	return vecs, nil
}

func (e *OllamaEmbedder) Dims() int { return e.dims }
