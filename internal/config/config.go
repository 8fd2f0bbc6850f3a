package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"quiz-rag/internal/models"
)

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	RAG      RAGConfig      `yaml:"rag"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// LLMConfig describes one model endpoint, used both for generation and
// for embeddings.
type LLMConfig struct {
	Provider    string  `yaml:"provider" validate:"oneof=openai ollama"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model" validate:"required"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gte=0"`
	Dimensions  int     `yaml:"dimensions" validate:"gte=0"`
}

type RAGConfig struct {
	ChunkSize        int    `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap     int    `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	TopK             int    `yaml:"top_k" validate:"gt=0"`
	Backend          string `yaml:"backend" validate:"oneof=memory postgres"`
	Collection       string `yaml:"collection" validate:"required"`
	EmbedBatchSize   int    `yaml:"embed_batch_size" validate:"gt=0"`
	EmbedConcurrency int    `yaml:"embed_concurrency" validate:"gt=0"`
	EncryptionKey    string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" validate:"oneof=pgdriver postgres pgx"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int64    `yaml:"max_upload_mb" validate:"gte=0"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Default returns the settings used when no config file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.7,
			MaxTokens:   1500,
		},
		EmbedLLM: LLMConfig{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "nomic-embed-text",
		},
		RAG: RAGConfig{
			ChunkSize:        models.DefaultChunkSize,
			ChunkOverlap:     models.DefaultOverlapSize,
			TopK:             models.DefaultTopK,
			Backend:          "memory",
			Collection:       "quiz_chunks",
			EmbedBatchSize:   16,
			EmbedConcurrency: 4,
		},
		Database: DatabaseConfig{
			Driver: "pgdriver",
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MaxUploadMB: 32,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults, then
// applies .env and environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	// .env is optional; values already in the environment win.
	_ = godotenv.Load()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	for _, name := range []string{"GROQ_API_KEY", "OPENAI_API_KEY", "QUIZ_LLM_KEY"} {
		if v := os.Getenv(name); v != "" {
			cfg.LLM.Key = v
		}
	}
	if v := os.Getenv("QUIZ_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("QUIZ_EMBED_KEY"); v != "" {
		cfg.EmbedLLM.Key = v
	}
	if v := os.Getenv("QUIZ_EMBED_BASE_URL"); v != "" {
		cfg.EmbedLLM.BaseURL = v
	}
	if v := os.Getenv("QUIZ_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
		}
		fields := make(map[string]string, len(errs))
		for _, e := range errs {
			fields[e.Namespace()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return models.ValidationError{Errors: fields}
	}
	if c.RAG.Backend == "postgres" && c.Database.DSN == "" {
		return models.ValidationError{Errors: map[string]string{
			"Config.Database.DSN": "required for postgres backend",
		}}
	}
	return nil
}
