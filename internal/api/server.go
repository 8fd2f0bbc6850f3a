// Package api exposes a quiz session over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"quiz-rag/internal/config"
	"quiz-rag/internal/export"
	"quiz-rag/internal/extract"
	"quiz-rag/internal/models"
)

// Session is the quiz pipeline served by the API.
type Session interface {
	LoadFile(ctx context.Context, path string) (int, error)
	GenerateQuiz(ctx context.Context, req models.QuizRequest) (*models.Quiz, error)
	Quiz() (*models.Quiz, error)
	Submit(responses models.UserResponses) (models.ScoreResult, error)
	Preview() string
	ChunkCount() int
}

type Server struct {
	session Session
	cfg     *config.ServerConfig
}

func NewServer(session Session, cfg *config.ServerConfig) *Server {
	return &Server{session: session, cfg: cfg}
}

type uploadResponse struct {
	Chunks  int    `json:"chunks"`
	Preview string `json:"preview"`
}

type submitRequest struct {
	Answers map[int]string `json:"answers"`
}

type errResp struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Routes builds the router with logging, recovery and CORS applied.
func (s *Server) Routes() http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)
	r.Post("/documents", s.uploadDocument)
	r.Route("/quiz", func(qr chi.Router) {
		qr.Post("/", s.generateQuiz)
		qr.Get("/", s.getQuiz)
		qr.Post("/submit", s.submit)
		qr.Get("/export", s.exportQuiz)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "chunks": s.session.ChunkCount()})
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadMB << 20
	if limit <= 0 {
		limit = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Sprintf("missing file: %v", err))
		return
	}
	defer f.Close()

	if !extract.Supported(hdr.Filename) {
		writeError(w, fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, filepath.Ext(hdr.Filename)))
		return
	}

	// extractors work on paths, so spool the upload to disk first
	tmp, err := os.CreateTemp("", "upload-*"+strings.ToLower(filepath.Ext(hdr.Filename)))
	if err != nil {
		writeError(w, err)
		return
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, f)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}

	n, err := s.session.LoadFile(r.Context(), tmp.Name())
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("file", hdr.Filename).Int("chunks", n).Msg("Document uploaded")
	writeJSON(w, http.StatusCreated, uploadResponse{Chunks: n, Preview: s.session.Preview()})
}

func (s *Server) generateQuiz(w http.ResponseWriter, r *http.Request) {
	var req models.QuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}

	quiz, err := s.session.GenerateQuiz(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (s *Server) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.session.Quiz()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}

	result, err := s.session.Submit(models.UserResponses(req.Answers))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) exportQuiz(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatText
	}
	if format != export.FormatText && format != export.FormatPDF {
		writeErr(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
		return
	}

	quiz, err := s.session.Quiz()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(quiz.Request.Topic, format)))
	if err := export.Write(w, format, "Quiz", quiz.Raw); err != nil {
		log.Error().Err(err).Str("format", format).Msg("Export failed")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidRequest),
		errors.Is(err, models.ErrEmptyDocument),
		errors.Is(err, models.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNoQuiz), errors.Is(err, models.ErrEmptyIndex):
		return http.StatusNotFound
	case errors.Is(err, models.ErrParse):
		return http.StatusUnprocessableEntity
	case models.IsRetryable(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Request failed")
	}

	resp := errResp{Error: err.Error()}
	var verr models.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Errors
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(started)).
			Msg("HTTP request")
	})
}
