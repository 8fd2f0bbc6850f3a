// Package scoring grades user selections against a parsed quiz.
package scoring

import (
	"strings"
	"unicode/utf8"

	"quiz-rag/internal/models"
)

// Score grades every question of quiz. A selection counts by its first
// character only, compared case-sensitively with the answer marker, so
// options must start with their letter. Leading and trailing whitespace is
// trimmed from the selection before that character is taken; nothing else
// about the match is relaxed. Unanswered questions and questions without
// a marker are incorrect. Neither argument is modified.
func Score(quiz *models.Quiz, responses models.UserResponses) models.ScoreResult {
	result := models.ScoreResult{
		Total:    quiz.Len(),
		Verdicts: make([]models.Verdict, 0, quiz.Len()),
	}

	for _, q := range quiz.Questions {
		v := models.Verdict{Number: q.Number, Expected: q.Answer}
		if !q.HasAnswer() {
			v.Expected = models.UnknownAnswer
		}

		selected, ok := responses[q.Number]
		if ok {
			v.Selected = selected
		}
		if ok && q.HasAnswer() {
			v.Correct = letter(selected) == q.Answer
		}

		if v.Correct {
			result.Correct++
		}
		result.Verdicts = append(result.Verdicts, v)
	}
	return result
}

func letter(selection string) string {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(selection)
	return selection[:size]
}
