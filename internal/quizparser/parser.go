// Package quizparser turns raw model output into structured questions.
package quizparser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"quiz-rag/internal/models"
)

var questionMarker = regexp.MustCompile(models.QuestionMarkerRegex)

type state int

const (
	readingQuestion state = iota
	readingOptions
	readingAnswer
)

// Parse extracts every question from raw. Malformed segments degrade to
// questions with fewer options or no answer; only a text without a single
// question is an error. A line containing "Answer:" is never taken as an
// option, even when fewer than four options precede it.
func Parse(raw string) (*models.Quiz, error) {
	quiz := &models.Quiz{Raw: raw}

	for _, segment := range segments(raw) {
		q, ok := parseSegment(segment)
		if !ok {
			continue
		}
		q.Number = len(quiz.Questions) + 1
		quiz.Questions = append(quiz.Questions, q)
	}

	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("%w: %d characters of output", models.ErrParse, len(raw))
	}

	log.Debug().Int("questions", quiz.Len()).Msg("Parsed quiz")
	return quiz, nil
}

// segments returns the text following each question marker. Anything
// before the first marker is preamble and dropped.
func segments(raw string) []string {
	locs := questionMarker.FindAllStringIndex(raw, -1)
	out := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, raw[loc[1]:end])
	}
	return out
}

func parseSegment(segment string) (models.Question, bool) {
	var (
		q  models.Question
		st = readingQuestion
	)

	for _, line := range strings.Split(segment, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		isAnswer := strings.Contains(line, models.AnswerLabel)
		if isAnswer && q.Answer == "" {
			q.Answer = answerMarker(line)
		}

		switch st {
		case readingQuestion:
			q.Text = line
			st = readingOptions
		case readingOptions:
			if isAnswer {
				st = readingAnswer
				continue
			}
			q.Options = append(q.Options, line)
			if len(q.Options) == models.MaxOptions {
				st = readingAnswer
			}
		}
	}

	return q, st != readingQuestion
}

// answerMarker keeps the text after the last colon of an answer line.
func answerMarker(line string) string {
	return strings.TrimSpace(line[strings.LastIndex(line, ":")+1:])
}
