package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"quiz-rag/internal/chunker"
	"quiz-rag/internal/config"
	"quiz-rag/internal/extract"
	"quiz-rag/internal/helper"
	"quiz-rag/internal/index"
	"quiz-rag/internal/models"
	"quiz-rag/internal/prompt"
	"quiz-rag/internal/quizparser"
	"quiz-rag/internal/scoring"
)

// Generator produces raw quiz text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RAG is one quiz session: a single document index and at most one active
// quiz. Loading a document or generating a quiz replaces the previous one.
// All methods are safe for concurrent use.
type RAG struct {
	mu       sync.Mutex
	cfg      *config.RAGConfig
	index    index.Index
	llm      Generator
	document string
	quiz     *models.Quiz
}

func NewRAG(idx index.Index, llm Generator, cfg *config.RAGConfig) *RAG {
	return &RAG{index: idx, llm: llm, cfg: cfg}
}

// LoadFile extracts the text of the file at path and indexes it.
func (r *RAG) LoadFile(ctx context.Context, path string) (int, error) {
	content, err := extract.Extract(path)
	if err != nil {
		return 0, err
	}
	return r.LoadDocument(ctx, content)
}

// LoadDocument chunks and indexes text, returning the number of chunks.
// The active quiz, if any, is kept.
func (r *RAG) LoadDocument(ctx context.Context, text string) (int, error) {
	started := time.Now()

	chunks, err := chunker.Split(text, r.cfg.ChunkSize, r.cfg.ChunkOverlap)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.index.Build(ctx, chunks); err != nil {
		return 0, fmt.Errorf("build index: %w", err)
	}
	r.document = text

	log.Info().
		Int("chunks", len(chunks)).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(started)).
		Msg("Loaded document")
	return len(chunks), nil
}

// GenerateQuiz retrieves the chunks most relevant to req, asks the model
// for a quiz and makes the parsed result the active quiz. On any failure
// the previous quiz stays active.
func (r *RAG) GenerateQuiz(ctx context.Context, req models.QuizRequest) (*models.Quiz, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.index.Len()
	if size == 0 {
		return nil, models.ErrEmptyIndex
	}
	k := min(r.cfg.TopK, size)

	query := prompt.RetrievalQuery(req)
	results, err := r.index.Query(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve chunks: %w", err)
	}

	text, err := prompt.Build(models.Chunks(results), req)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("k", k).
		Int("prompt_tokens", prompt.EstimateTokens(text)).
		Str("difficulty", string(req.Difficulty)).
		Int("count", req.Count).
		Msg("Built quiz prompt")

	raw, err := r.llm.Generate(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	quiz, err := quizparser.Parse(raw)
	if err != nil {
		return nil, err
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	quiz.ID = id
	quiz.Request = req
	quiz.CreatedAt = time.Now().UTC()

	if quiz.Len() != req.Count {
		log.Warn().Int("requested", req.Count).Int("parsed", quiz.Len()).Msg("Question count differs from request")
	}
	log.Info().Str("quiz_id", quiz.ID).Int("questions", quiz.Len()).Msg("Generated quiz")

	r.quiz = quiz
	return quiz.Clone(), nil
}

// Submit grades responses against the active quiz.
func (r *RAG) Submit(responses models.UserResponses) (models.ScoreResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.quiz == nil {
		return models.ScoreResult{}, models.ErrNoQuiz
	}
	result := scoring.Score(r.quiz, responses)
	log.Info().Str("quiz_id", r.quiz.ID).Int("correct", result.Correct).Int("total", result.Total).Msg("Scored submission")
	return result, nil
}

// Quiz returns a copy of the active quiz.
func (r *RAG) Quiz() (*models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.quiz == nil {
		return nil, models.ErrNoQuiz
	}
	return r.quiz.Clone(), nil
}

// Preview returns the first characters of the loaded document.
func (r *RAG) Preview() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	runes := []rune(r.document)
	if len(runes) <= models.PreviewLength {
		return r.document
	}
	return string(runes[:models.PreviewLength])
}

// Snapshot exports the index to path when the backend supports it.
func (r *RAG) Snapshot(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exporter, ok := r.index.(interface{ Export(string) error })
	if !ok {
		return fmt.Errorf("index backend %T has no snapshot support", r.index)
	}
	return exporter.Export(path)
}

// ChunkCount returns the number of indexed chunks.
func (r *RAG) ChunkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.Len()
}
