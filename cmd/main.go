package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"quiz-rag/internal/chunker"
	"quiz-rag/internal/config"
	"quiz-rag/internal/export"
	"quiz-rag/internal/extract"
	"quiz-rag/internal/helper"
	"quiz-rag/internal/models"
	"quiz-rag/internal/rag"
)

const configFilePath = "./configs/config.yaml"

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the study material (.pdf, .docx, .pptx, .xlsx, .md, .txt)")
	topic := flag.String("topic", "", "Topic to focus the quiz on")
	difficulty := flag.String("difficulty", string(models.Medium), "Quiz difficulty: easy, medium or hard")
	count := flag.Int("count", models.DefaultQuestions, "Number of questions (1-20)")
	answers := flag.String("answers", "", "Answers as 1=B,2=A; prompts on stdin when empty")
	exportFormat := flag.String("export", "", "Export the quiz as txt or pdf")
	outDir := flag.String("out", ".", "Directory for exported quizzes")
	snapshot := flag.String("snapshot", "", "Write the in-memory index snapshot to this path")
	dryRun := flag.Bool("dry-run", false, "Extract and chunk only, do not call any model")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	helper.SetupLogger(cfg.Log.Level, cfg.Log.Console)

	if *filePath == "" {
		log.Fatal().Msg("Please provide a document file using the -file flag")
	}

	if *dryRun {
		previewDocument(*filePath, cfg)
		return
	}

	ctx := context.Background()
	session, cleanup, err := rag.Setup(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error setting up session")
	}
	defer cleanup()

	n, err := session.LoadFile(ctx, *filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading document")
	}
	log.Info().Int("chunks", n).Msg("Document indexed")

	if *snapshot != "" {
		if err := session.Snapshot(*snapshot); err != nil {
			log.Error().Err(err).Msg("Error writing index snapshot")
		}
	}

	quiz, err := session.GenerateQuiz(ctx, models.QuizRequest{
		Topic:      *topic,
		Difficulty: models.Difficulty(strings.ToLower(*difficulty)),
		Count:      *count,
	})
	if err != nil {
		if models.IsRetryable(err) {
			log.Fatal().Err(err).Msg("Model service failed, try again")
		}
		log.Fatal().Err(err).Msg("Error generating quiz")
	}

	printQuiz(os.Stdout, quiz)

	responses, err := parseAnswers(*answers)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing answers")
	}
	if responses == nil {
		responses = askAnswers(os.Stdin, os.Stdout, quiz)
	}

	result, err := session.Submit(responses)
	if err != nil {
		log.Fatal().Err(err).Msg("Error scoring quiz")
	}
	printScore(os.Stdout, result)

	if *exportFormat != "" {
		path, err := exportQuiz(quiz, *exportFormat, *outDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Error exporting quiz")
		}
		log.Info().Str("path", path).Msg("Quiz exported")
	}
}

func previewDocument(filePath string, cfg *config.Config) {
	content, err := extract.Extract(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error extracting document")
	}
	chunks, err := chunker.Split(content, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Error chunking document")
	}

	preview := []rune(content)
	if len(preview) > models.PreviewLength {
		preview = preview[:models.PreviewLength]
	}
	log.Info().Int("chunks", len(chunks)).Int("chars", len(content)).Msg("Dry run")
	fmt.Printf("%s\n\n", string(preview))
	helper.PrettyPrint(os.Stdout, chunks)
}

func printQuiz(w io.Writer, quiz *models.Quiz) {
	for _, q := range quiz.Questions {
		fmt.Fprintf(w, "Q%d. %s\n", q.Number, q.Text)
		for _, opt := range q.Options {
			fmt.Fprintf(w, "   %s\n", opt)
		}
		fmt.Fprintln(w)
	}
}

func printScore(w io.Writer, result models.ScoreResult) {
	fmt.Fprintln(w, result.String())
	for _, v := range result.Verdicts {
		fmt.Fprintf(w, "Q%d: %s\n", v.Number, v)
	}
}

// parseAnswers reads "1=B,2=A". An empty string returns nil.
func parseAnswers(s string) (models.UserResponses, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	out := models.UserResponses{}
	for _, pair := range strings.Split(s, ",") {
		num, answer, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("answer %q is not number=letter", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad question number in %q", pair)
		}
		out[n] = strings.TrimSpace(answer)
	}
	return out, nil
}

// askAnswers prompts for one answer per question. Blank lines leave the
// question unanswered.
func askAnswers(in io.Reader, out io.Writer, quiz *models.Quiz) models.UserResponses {
	responses := models.UserResponses{}
	scanner := bufio.NewScanner(in)
	for _, q := range quiz.Questions {
		fmt.Fprintf(out, "Answer for Q%d: ", q.Number)
		if !scanner.Scan() {
			break
		}
		if a := strings.TrimSpace(scanner.Text()); a != "" {
			r, size := utf8.DecodeRuneInString(a)
			responses[q.Number] = string(unicode.ToUpper(r)) + a[size:]
		}
	}
	fmt.Fprintln(out)
	return responses
}

func exportQuiz(quiz *models.Quiz, format, outDir string) (string, error) {
	format = strings.ToLower(format)
	if err := helper.CreateFolder(outDir); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, export.Filename(quiz.Request.Topic, format))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := export.Write(f, format, "Quiz", quiz.Raw); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}
