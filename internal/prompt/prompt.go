// Package prompt renders the quiz generation prompt from retrieved chunks.
package prompt

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/prompts"

	"quiz-rag/internal/models"
)

const encodingName = "cl100k_base"

var quizTemplate = prompts.NewPromptTemplate(
	models.QuizPromptTemplate,
	[]string{"count", "difficulty", "topic", "context", "query"},
)

// Build renders the prompt for req over chunks, in the order given.
func Build(chunks []models.Chunk, req models.QuizRequest) (string, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	out, err := quizTemplate.Format(map[string]any{
		"count":      req.Count,
		"difficulty": string(req.Difficulty),
		"topic":      Topic(req),
		"context":    strings.Join(texts, models.ContextSeparator),
		"query":      RetrievalQuery(req),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}

// Topic returns the requested topic or the general fallback.
func Topic(req models.QuizRequest) string {
	if t := strings.TrimSpace(req.Topic); t != "" {
		return t
	}
	return models.DefaultTopic
}

// RetrievalQuery is the text embedded to pick chunks for req.
func RetrievalQuery(req models.QuizRequest) string {
	if t := strings.TrimSpace(req.Topic); t != "" {
		return fmt.Sprintf(models.TopicQueryTemplate, req.Difficulty, req.Count, t)
	}
	return fmt.Sprintf(models.GeneralQueryTemplate, req.Difficulty, req.Count)
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// EstimateTokens counts text in cl100k_base tokens. If the encoding cannot
// be loaded it falls back to one token per four bytes.
func EstimateTokens(text string) int {
	encOnce.Do(func() {
		var err error
		enc, err = tiktoken.GetEncoding(encodingName)
		if err != nil {
			log.Warn().Err(err).Msg("Token encoder unavailable, estimating by length")
		}
	})
	if enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
