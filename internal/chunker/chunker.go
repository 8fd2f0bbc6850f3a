// Package chunker splits extracted document text into overlapping chunks
// sized for embedding.
package chunker

import (
	"fmt"
	"strings"

	"quiz-rag/internal/models"
)

// Break points in order of preference. A chunk ends right after the
// separator it was cut on.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune(" "),
}

// Split cuts document into chunks of at most maxChars runes. Consecutive
// chunks share exactly overlapChars runes, so every rune of the document
// lands in at least one chunk.
func Split(document string, maxChars, overlapChars int) ([]models.Chunk, error) {
	if strings.TrimSpace(document) == "" {
		return nil, fmt.Errorf("%w: nothing to split", models.ErrEmptyDocument)
	}

	if maxChars <= 0 {
		maxChars = models.DefaultChunkSize
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	text := []rune(document)
	textLen := len(text)

	chunks := make([]models.Chunk, 0, textLen/(maxChars-overlapChars)+1)
	start := 0
	for {
		end := textLen
		if textLen-start > maxChars {
			end = breakPoint(text, start, maxChars, overlapChars)
		}

		chunks = append(chunks, models.Chunk{
			Ordinal: len(chunks),
			Start:   start,
			Text:    string(text[start:end]),
		})

		if end >= textLen {
			break
		}
		start = end - overlapChars
	}

	return chunks, nil
}

// breakPoint picks the end of the chunk starting at start. Only the back
// half of the window is searched so chunks stay reasonably full, and the
// end always lies past start+overlap so the next chunk moves forward.
func breakPoint(text []rune, start, maxChars, overlapChars int) int {
	limit := start + maxChars
	lowest := start + overlapChars + 1
	if half := start + maxChars/2; half > lowest {
		lowest = half
	}

	for _, sep := range separators {
		for end := limit; end >= lowest; end-- {
			if endsWith(text, start, end, sep) {
				return end
			}
		}
	}
	return limit
}

func endsWith(text []rune, start, end int, sep []rune) bool {
	from := end - len(sep)
	if from < start {
		return false
	}
	for i, r := range sep {
		if text[from+i] != r {
			return false
		}
	}
	return true
}

// Reassemble joins chunks back into the original text, dropping the
// overlapping head of every chunk after the first.
func Reassemble(chunks []models.Chunk) string {
	var b strings.Builder
	prevEnd := 0
	for i, c := range chunks {
		runes := []rune(c.Text)
		if i > 0 {
			skip := prevEnd - c.Start
			if skip > len(runes) {
				skip = len(runes)
			}
			if skip > 0 {
				runes = runes[skip:]
			}
		}
		b.WriteString(string(runes))
		prevEnd = c.Start + c.Len()
	}
	return b.String()
}
