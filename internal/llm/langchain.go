package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// LangChain adapts any langchaingo model to Completer.
type LangChain struct {
	model       llms.Model
	temperature float64
	maxTokens   int
}

// NewLangChain wraps model. maxTokens <= 0 leaves the provider default.
func NewLangChain(model llms.Model, temperature float64, maxTokens int) *LangChain {
	return &LangChain{model: model, temperature: temperature, maxTokens: maxTokens}
}

// NewOpenAICompatible targets OpenAI or any compatible API such as Groq.
func NewOpenAICompatible(baseURL, apiKey, model string) (llms.Model, error) {
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai-compatible model: %w", err)
	}
	return m, nil
}

// NewGoogleAI targets Gemini.
func NewGoogleAI(ctx context.Context, apiKey, model string) (llms.Model, error) {
	m, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, fmt.Errorf("googleai model: %w", err)
	}
	return m, nil
}

// NewOllama targets a local Ollama server.
func NewOllama(serverURL, model string) (llms.Model, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	m, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama model: %w", err)
	}
	return m, nil
}

func (l *LangChain) Complete(ctx context.Context, messages []Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(chatType(m.Role), m.Content))
	}

	opts := []llms.CallOption{llms.WithTemperature(l.temperature)}
	if l.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(l.maxTokens))
	}

	resp, err := l.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate: no choices returned")
	}
	return resp.Choices[0].Content, nil
}

func chatType(r Role) schema.ChatMessageType {
	switch r {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}
