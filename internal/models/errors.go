package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Pipeline errors. Every stage wraps one of these so callers can tell a
// service failure (retry the stage) from bad input (fix the input).
var (
	ErrEmptyDocument     = errors.New("document contains no text")
	ErrEmptyIndex        = errors.New("semantic index is empty")
	ErrEmbeddingService  = errors.New("embedding service error")
	ErrGenerationService = errors.New("generation service error")
	ErrParse             = errors.New("no questions could be parsed")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNoQuiz            = errors.New("no quiz has been generated")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// IsRetryable reports whether err came from an external service call.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEmbeddingService) || errors.Is(err, ErrGenerationService)
}

// ValidationError lists the offending fields of a rejected request.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.Errors[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e ValidationError) Unwrap() error {
	return ErrInvalidRequest
}
