package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/discharge-care/internal/extract"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "hash", cfg.Embed.Provider)
	assert.Equal(t, 384, cfg.Embed.Dims)
	assert.Equal(t, 100, cfg.Retrieval.MinChars)
	assert.Equal(t, "nephrology", cfg.Retrieval.Specialty)
	assert.Equal(t, 10, cfg.Memory.Turns)
	assert.Equal(t, 24*time.Hour, cfg.Session.IdleTTL)
	assert.Equal(t, extract.ConfidenceMedium, cfg.MinConfidence())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9100"
llm:
  provider: anthropic
retrieval:
  top_k: 5
session:
  idle_ttl: 2h
`), 0o644))
	t.Setenv("DISCHARGE_CARE_RETRIEVAL_MIN_CHARS", "250")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 250, cfg.Retrieval.MinChars)
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTTL)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.LLMSettings().APIKey)
	assert.Equal(t, 5, cfg.RetrieverSettings().TopK)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DISCHARGE_CARE_SERVER_ADDR=:7000\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("DISCHARGE_CARE_SERVER_ADDR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestLoadErrors(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("DISCHARGE_CARE_LLM_PROVIDER", "gpt-everything")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"embed provider", func(c *Config) { c.Embed.Provider = "word2vec" }, "embed.provider"},
		{"rerank provider", func(c *Config) { c.Rerank.Provider = "jina" }, "rerank.provider"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"confidence", func(c *Config) { c.Extract.MinConfidence = "certain" }, "extract.min_confidence"},
		{"dims", func(c *Config) { c.Embed.Dims = 0 }, "embed.dims"},
		{"turns", func(c *Config) { c.Memory.Turns = -1 }, "memory.turns"},
		{"odd turns", func(c *Config) { c.Memory.Turns = 7 }, "memory.turns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
