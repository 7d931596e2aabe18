// Package config loads discharge-care settings from a YAML file, a .env file
// and DISCHARGE_CARE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rcliao/discharge-care/internal/embedding"
	"github.com/rcliao/discharge-care/internal/extract"
	"github.com/rcliao/discharge-care/internal/knowledge"
	"github.com/rcliao/discharge-care/internal/llm"
	"github.com/rcliao/discharge-care/internal/retriever"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DISCHARGE_CARE"

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "discharge-care.yaml"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Index     IndexConfig     `mapstructure:"index"`
	Patients  PatientsConfig  `mapstructure:"patients"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embed     EmbedConfig     `mapstructure:"embed"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Rerank    RerankConfig    `mapstructure:"rerank"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Session   SessionConfig   `mapstructure:"session"`
	Lexicon   LexiconConfig   `mapstructure:"lexicon"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type IndexConfig struct {
	Path string `mapstructure:"path"`
}

// PatientsConfig selects the record source. A DSN wins over the JSON file.
type PatientsConfig struct {
	Path string `mapstructure:"path"`
	DSN  string `mapstructure:"dsn"`
}

type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type EmbedConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	Dims     int           `mapstructure:"dims"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type RetrievalConfig struct {
	TopK         int           `mapstructure:"top_k"`
	LexicalK     int           `mapstructure:"lexical_k"`
	RerankTop    int           `mapstructure:"rerank_top"`
	MinChars     int           `mapstructure:"min_chars"`
	Specialty    string        `mapstructure:"specialty"`
	SnippetLen   int           `mapstructure:"snippet_len"`
	WebResults   int           `mapstructure:"web_results"`
	PaperResults int           `mapstructure:"paper_results"`
	ArxivURL     string        `mapstructure:"arxiv_url"`
	WebTimeout   time.Duration `mapstructure:"web_timeout"`
}

type RerankConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type MemoryConfig struct {
	Turns int `mapstructure:"turns"`
}

type ExtractConfig struct {
	MinConfidence string `mapstructure:"min_confidence"`
	UseModel      bool   `mapstructure:"use_model"`
}

type SessionConfig struct {
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
	Sweep   time.Duration `mapstructure:"sweep"`
}

type LexiconConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig points at the bucket holding published index files.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Object    string `mapstructure:"object"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var defaults = map[string]any{
	"server.addr":             ":8000",
	"index.path":              "data/knowledge.db",
	"patients.path":           "data/patients.json",
	"patients.dsn":            "",
	"llm.provider":            "groq",
	"llm.model":               "",
	"llm.base_url":            "",
	"llm.api_key":             "",
	"llm.temperature":         0.3,
	"llm.max_tokens":          1024,
	"llm.timeout":             "30s",
	"embed.provider":          "hash",
	"embed.model":             "",
	"embed.dims":              384,
	"embed.base_url":          "",
	"embed.api_key":           "",
	"embed.timeout":           "30s",
	"retrieval.top_k":         3,
	"retrieval.lexical_k":     3,
	"retrieval.rerank_top":    3,
	"retrieval.min_chars":     100,
	"retrieval.specialty":     "nephrology",
	"retrieval.snippet_len":   200,
	"retrieval.web_results":   3,
	"retrieval.paper_results": 2,
	"retrieval.arxiv_url":     "",
	"retrieval.web_timeout":   "10s",
	"rerank.provider":         "none",
	"rerank.model":            "rerank-english-v3.0",
	"rerank.api_key":          "",
	"rerank.timeout":          "10s",
	"memory.turns":            10,
	"extract.min_confidence":  "medium",
	"extract.use_model":       false,
	"session.idle_ttl":        "24h",
	"session.sweep":           "10m",
	"lexicon.path":            "",
	"storage.endpoint":        "",
	"storage.bucket":          "",
	"storage.access_key":      "",
	"storage.secret_key":      "",
	"storage.use_ssl":         true,
	"storage.object":          "knowledge.db",
	"log.level":               "info",
}

// providerKeys maps a provider to the environment variable its vendor
// documents for the API key.
var providerKeys = map[string]string{
	"groq":      "GROQ_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"googleai":  "GOOGLE_API_KEY",
	"cohere":    "COHERE_API_KEY",
}

// Default returns the built-in settings without reading files or the
// environment.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not decode: %v", err))
	}
	return cfg
}

// Load reads .env, then the YAML file at path (or DefaultFile when path is
// empty and the file exists), then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := newViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.applyProviderKeys()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyProviderKeys() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(providerKeys[c.LLM.Provider])
	}
	if c.Embed.APIKey == "" && c.Embed.Provider == "openai" {
		c.Embed.APIKey = os.Getenv(providerKeys["openai"])
	}
	if c.Rerank.APIKey == "" && c.Rerank.Provider == "cohere" {
		c.Rerank.APIKey = os.Getenv(providerKeys["cohere"])
	}
}

var (
	llmProviders    = []string{"groq", "openai", "googleai", "ollama", "anthropic", "none"}
	embedProviders  = []string{"hash", "openai", "ollama"}
	rerankProviders = []string{"none", "cohere"}
	logLevels       = []string{"debug", "info", "warn", "error"}
)

// Validate rejects unknown enum values and non-positive sizes.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(key, val string, allowed []string) {
		for _, a := range allowed {
			if val == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: %q is not one of %s", key, val, strings.Join(allowed, "|")))
	}
	oneOf("llm.provider", c.LLM.Provider, llmProviders)
	oneOf("embed.provider", c.Embed.Provider, embedProviders)
	oneOf("rerank.provider", c.Rerank.Provider, rerankProviders)
	oneOf("log.level", c.Log.Level, logLevels)
	if _, err := extract.ParseConfidence(c.Extract.MinConfidence); err != nil {
		errs = append(errs, fmt.Errorf("extract.min_confidence: %w", err))
	}
	if c.Embed.Dims <= 0 {
		errs = append(errs, fmt.Errorf("embed.dims must be positive, got %d", c.Embed.Dims))
	}
	if c.Memory.Turns <= 0 || c.Memory.Turns%2 != 0 {
		errs = append(errs, fmt.Errorf("memory.turns must be a positive even number, got %d", c.Memory.Turns))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	return errors.Join(errs...)
}

// LLMSettings converts to the llm factory's config.
func (c *Config) LLMSettings() llm.Config {
	return llm.Config{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
		Timeout:     c.LLM.Timeout,
	}
}

// EmbedSettings converts to the embedding factory's config.
func (c *Config) EmbedSettings() embedding.Config {
	return embedding.Config{
		Provider: c.Embed.Provider,
		Model:    c.Embed.Model,
		Dims:     c.Embed.Dims,
		BaseURL:  c.Embed.BaseURL,
		APIKey:   c.Embed.APIKey,
		Timeout:  c.Embed.Timeout,
	}
}

func (c *Config) RetrieverSettings() retriever.Config {
	return retriever.Config{
		TopK:       c.Retrieval.TopK,
		LexicalK:   c.Retrieval.LexicalK,
		RerankTop:  c.Retrieval.RerankTop,
		MinChars:   c.Retrieval.MinChars,
		Specialty:  c.Retrieval.Specialty,
		SnippetLen: c.Retrieval.SnippetLen,
	}
}

func (c *Config) StorageSettings() knowledge.StorageConfig {
	return knowledge.StorageConfig{
		Endpoint:  c.Storage.Endpoint,
		Bucket:    c.Storage.Bucket,
		AccessKey: c.Storage.AccessKey,
		SecretKey: c.Storage.SecretKey,
		UseSSL:    c.Storage.UseSSL,
	}
}

// MinConfidence is the parsed extract.min_confidence.
func (c *Config) MinConfidence() extract.Confidence {
	conf, err := extract.ParseConfidence(c.Extract.MinConfidence)
	if err != nil {
		return extract.ConfidenceMedium
	}
	return conf
}
