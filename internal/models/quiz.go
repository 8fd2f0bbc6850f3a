package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var validate = validator.New()

// QuizRequest carries the generation settings chosen by the user.
type QuizRequest struct {
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Count      int        `json:"count" validate:"min=1,max=20"`
}

// WithDefaults fills an unset difficulty and count.
func (r QuizRequest) WithDefaults() QuizRequest {
	if r.Difficulty == "" {
		r.Difficulty = Medium
	}
	if r.Count == 0 {
		r.Count = DefaultQuestions
	}
	return r
}

// Validate checks the request against its struct tags.
func (r QuizRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		fields := make(map[string]string, len(errs))
		for _, e := range errs {
			fields[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return ValidationError{Errors: fields}
	}
	return nil
}

// Question is one parsed multiple-choice item. An empty Answer means the
// model never emitted an answer line for it.
type Question struct {
	Number  int      `json:"number"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Answer  string   `json:"answer,omitempty"`
}

func (q Question) HasAnswer() bool {
	return q.Answer != ""
}

// Quiz is the parsed form of one generation, with the raw model text kept
// for export.
type Quiz struct {
	ID        string      `json:"id,omitempty"`
	Request   QuizRequest `json:"request"`
	Raw       string      `json:"raw"`
	Questions []Question  `json:"questions"`
	CreatedAt time.Time   `json:"created_at,omitempty"`
}

func (q *Quiz) Len() int {
	return len(q.Questions)
}

// Clone returns a deep copy of q.
func (q *Quiz) Clone() *Quiz {
	out := *q
	if q.Questions != nil {
		out.Questions = make([]Question, len(q.Questions))
		for i, question := range q.Questions {
			question.Options = append([]string(nil), question.Options...)
			out.Questions[i] = question
		}
	}
	return &out
}

// UserResponses maps a question number (1-based) to the selected option.
type UserResponses map[int]string

// Verdict is the outcome for a single question.
type Verdict struct {
	Number   int    `json:"number"`
	Selected string `json:"selected,omitempty"`
	Expected string `json:"expected"`
	Correct  bool   `json:"correct"`
}

func (v Verdict) String() string {
	if v.Correct {
		return "correct"
	}
	return fmt.Sprintf("incorrect (expected %s)", v.Expected)
}

// ScoreResult is the tally of one submission.
type ScoreResult struct {
	Correct  int       `json:"correct"`
	Total    int       `json:"total"`
	Verdicts []Verdict `json:"verdicts"`
}

func (s ScoreResult) String() string {
	return fmt.Sprintf("Your Score: %d/%d", s.Correct, s.Total)
}
