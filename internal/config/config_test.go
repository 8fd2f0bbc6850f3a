package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-rag/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.RAG.ChunkSize)
	assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, "memory", cfg.RAG.Backend)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 1500, cfg.LLM.MaxTokens)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: ollama
  base_url: http://ollama:11434
  model: llama3
rag:
  chunk_size: 400
  chunk_overlap: 50
  top_k: 5
log:
  level: debug
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 400, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched sections keep their defaults
	assert.Equal(t, "nomic-embed-text", cfg.EmbedLLM.Model)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("QUIZ_LLM_KEY", "secret-key")
	t.Setenv("QUIZ_EMBED_BASE_URL", "http://embed:11434")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.LLM.Key)
	assert.Equal(t, "http://embed:11434", cfg.EmbedLLM.BaseURL)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "rag: [unclosed")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"overlap not below size", func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize }, "Config.RAG.ChunkOverlap"},
		{"unknown backend", func(c *Config) { c.RAG.Backend = "faiss" }, "Config.RAG.Backend"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "groq" }, "Config.LLM.Provider"},
		{"zero top k", func(c *Config) { c.RAG.TopK = 0 }, "Config.RAG.TopK"},
		{"postgres without dsn", func(c *Config) { c.RAG.Backend = "postgres" }, "Config.Database.DSN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidRequest))
			var verr models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Errors, tt.field)
		})
	}

	assert.NoError(t, Default().Validate())
}
