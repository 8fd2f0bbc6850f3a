package models

const (
	// QuestionMarkerRegex splits raw quiz text into question segments.
	QuestionMarkerRegex = `Q\d+\.`
	AnswerLabel         = "Answer:"
	ThinkTag            = `(?s)<think>.*?</think>`
	ContextSeparator    = "\n\n"

	DefaultTopic       = "general content from the material"
	UnknownAnswer      = "unknown"
	MaxOptions         = 4
	MaxQuestionCount   = 20
	DefaultQuestions   = 5
	PreviewLength      = 1000
	DefaultChunkSize   = 800
	DefaultOverlapSize = 100
	DefaultTopK        = 3
)

var (
	QuizPromptTemplate = `You are a quiz generator. Based on the following lecture material, create exactly {{.count}} multiple-choice questions (MCQs) with 4 options each.

Difficulty level: {{.difficulty}}
Topic focus: {{.topic}}

Lecture Material:
{{.context}}

Query: {{.query}}

Format your response as:
Q1. <question>
A. <option>
B. <option>
C. <option>
D. <option>
Answer: <correct option letter>
`

	TopicQueryTemplate   = "Generate a %s difficulty quiz with %d questions about %s"
	GeneralQueryTemplate = "Generate a %s difficulty quiz with %d questions from the provided material"
)
