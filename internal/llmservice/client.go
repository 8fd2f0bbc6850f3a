package llmservice

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"quiz-rag/internal/config"
	"quiz-rag/internal/models"
)

var thinkBlock = regexp.MustCompile(models.ThinkTag)

// Client sends one prompt per call to a chat model. It never retries.
type Client struct {
	llm         llms.Model
	model       string
	temperature float64
	maxTokens   int
}

// NewClient connects to the model configured by llmConfig.
func NewClient(llmConfig *config.LLMConfig) (*Client, error) {
	log.Debug().
		Str("provider", llmConfig.Provider).
		Str("base_url", llmConfig.BaseURL).
		Str("model", llmConfig.Model).
		Msg("Creating generation client")

	var (
		llm llms.Model
		err error
	)
	switch llmConfig.Provider {
	case "openai":
		llm, err = openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", llmConfig.Provider, err)
	}
	return NewWithModel(llm, llmConfig), nil
}

// NewWithModel wraps an existing model with the sampling settings of llmConfig.
func NewWithModel(llm llms.Model, llmConfig *config.LLMConfig) *Client {
	return &Client{
		llm:         llm,
		model:       llmConfig.Model,
		temperature: llmConfig.Temperature,
		maxTokens:   llmConfig.MaxTokens,
	}
}

// Generate returns the normalized completion for prompt. Transport failures
// and empty completions wrap models.ErrGenerationService.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}

	started := time.Now()
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGenerationService, err)
	}

	out = Normalize(out)
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrGenerationService)
	}

	log.Info().
		Str("model", c.model).
		Int("chars", len(out)).
		Dur("elapsed", time.Since(started)).
		Msg("Generated quiz text")
	return out, nil
}

// Normalize strips reasoning blocks, converts CRLF to LF and drops control
// characters other than newline and tab.
func Normalize(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}
