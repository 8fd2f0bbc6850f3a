package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-rag/internal/config"
	"quiz-rag/internal/models"
	"quiz-rag/internal/testutil"
)

var testConfig = &config.LLMConfig{Provider: "openai", Model: "test-model", Temperature: 0.7, MaxTokens: 1500}

func TestGenerate_ReturnsCompletion(t *testing.T) {
	llm := &testutil.RecordingLLM{Response: testutil.SampleQuiz}
	client := NewWithModel(llm, testConfig)

	out, err := client.Generate(context.Background(), "make a quiz")
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleQuiz, out)
	assert.Equal(t, "make a quiz", llm.LastPrompt())
}

func TestGenerate_CyclesFakeResponses(t *testing.T) {
	client := NewWithModel(testutil.NewFakeLLM("first", "second"), testConfig)
	ctx := context.Background()

	a, err := client.Generate(ctx, "p")
	require.NoError(t, err)
	b, err := client.Generate(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, []string{a, b})
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name string
		llm  *testutil.RecordingLLM
	}{
		{"transport error", &testutil.RecordingLLM{Err: testutil.ErrUnavailable}},
		{"no choices", &testutil.RecordingLLM{NoChoices: true}},
		{"blank completion", &testutil.RecordingLLM{Response: "  \n\t "}},
		{"only reasoning", &testutil.RecordingLLM{Response: "<think>hmm</think>\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWithModel(tt.llm, testConfig).Generate(context.Background(), "p")
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrGenerationService))
			assert.True(t, models.IsRetryable(err))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Q1. What?\nA. x", "Q1. What?\nA. x"},
		{"crlf", "Q1. What?\r\nA. x\r\n", "Q1. What?\nA. x\n"},
		{"think block", "<think>\nlet me plan\n</think>\nQ1. What?", "\nQ1. What?"},
		{"two think blocks", "<think>a</think>Q1.<think>b</think> x", "Q1. x"},
		{"control chars", "Q1.\x00 Wh\x07at?\tok\n", "Q1. What?\tok\n"},
		{"unicode kept", "Q1. Qu'est-ce que c'est? é", "Q1. Qu'est-ce que c'est? é"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(&config.LLMConfig{Provider: "bedrock", Model: "m"})
	assert.Error(t, err)

	c, err := NewClient(&config.LLMConfig{Provider: "ollama", BaseURL: "http://localhost:11434", Model: "llama3"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	c, err = NewClient(&config.LLMConfig{Provider: "openai", BaseURL: "http://localhost:1234/v1", Key: "Bearer k", Model: "m"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
