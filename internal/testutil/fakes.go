// Package testutil holds deterministic stand-ins for the embedding and
// generation services.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/fake"
)

// LetterDimensions is the vector length produced by LetterFrequency.
const LetterDimensions = 27

// LetterFrequency maps a text to the counts of a..z. Texts without letters
// get a unit vector on the last axis so no vector is ever zero.
func LetterFrequency(text string) []float32 {
	v := make([]float32, LetterDimensions)
	letters := 0
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
			letters++
		}
	}
	if letters == 0 {
		v[LetterDimensions-1] = 1
	}
	return v
}

// NewEmbedder returns a langchaingo embedder backed by LetterFrequency.
func NewEmbedder(t testing.TB) *embeddings.EmbedderImpl {
	t.Helper()
	e, err := embeddings.NewEmbedder(embeddings.EmbedderClientFunc(
		func(_ context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, text := range texts {
				out[i] = LetterFrequency(text)
			}
			return out, nil
		}),
		embeddings.WithStripNewLines(false),
	)
	require.NoError(t, err)
	return e
}

// StubEmbedder returns canned results and counts calls.
type StubEmbedder struct {
	mu    sync.Mutex
	calls int

	Vectors func(texts []string) [][]float32
	Err     error
}

func (s *StubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Vectors(texts), nil
}

func (s *StubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vs, err := s.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (s *StubEmbedder) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// NewFakeLLM cycles through responses on each call.
func NewFakeLLM(responses ...string) *fake.LLM {
	return fake.NewFakeLLM(responses)
}

// RecordingLLM answers every prompt with Response and keeps the prompts it saw.
type RecordingLLM struct {
	mu      sync.Mutex
	Prompts []string

	Response string
	Err      error
	// NoChoices makes the model return an empty choice list.
	NoChoices bool
}

var _ llms.Model = (*RecordingLLM)(nil)

func (r *RecordingLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var b strings.Builder
	for _, m := range messages {
		for _, p := range m.Parts {
			if t, ok := p.(llms.TextContent); ok {
				b.WriteString(t.Text)
			}
		}
	}
	r.mu.Lock()
	r.Prompts = append(r.Prompts, b.String())
	r.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	if r.NoChoices {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: r.Response}},
	}, nil
}

func (r *RecordingLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, r, prompt, options...)
}

// LastPrompt returns the most recent prompt, or "" if none.
func (r *RecordingLLM) LastPrompt() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Prompts) == 0 {
		return ""
	}
	return r.Prompts[len(r.Prompts)-1]
}

// ErrUnavailable stands in for a transport failure.
var ErrUnavailable = errors.New("connection refused")
