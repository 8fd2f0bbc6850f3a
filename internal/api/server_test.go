package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-rag/internal/config"
	"quiz-rag/internal/embedding"
	"quiz-rag/internal/index"
	"quiz-rag/internal/llmservice"
	"quiz-rag/internal/models"
	"quiz-rag/internal/rag"
	"quiz-rag/internal/testutil"
)

func newTestServer(t *testing.T, llm *testutil.RecordingLLM) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	idx := index.NewMemory(embedding.NewService(testutil.NewEmbedder(t)), cfg.RAG.Collection, "")
	session := rag.NewRAG(idx, llmservice.NewWithModel(llm, &cfg.LLM), &cfg.RAG)
	srv := httptest.NewServer(NewServer(session, &cfg.Server).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func upload(t *testing.T, srv *httptest.Server, filename, body string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/documents", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_QuizFlow(t *testing.T) {
	srv := newTestServer(t, &testutil.RecordingLLM{Response: testutil.SampleQuiz})

	resp := upload(t, srv, "notes.txt", testutil.SampleDocument)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	up := decode[uploadResponse](t, resp)
	assert.Equal(t, 1, up.Chunks)
	assert.True(t, strings.HasPrefix(up.Preview, "Photosynthesis converts light energy"))

	resp = postJSON(t, srv.URL+"/quiz", `{"topic":"World History","difficulty":"hard","count":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	quiz := decode[models.Quiz](t, resp)
	assert.Len(t, quiz.Questions, 2)
	assert.Equal(t, models.Hard, quiz.Request.Difficulty)

	resp, err := http.Get(srv.URL + "/quiz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, quiz.ID, decode[models.Quiz](t, resp).ID)

	resp = postJSON(t, srv.URL+"/quiz/submit", `{"answers":{"1":"B. 4","2":"B. Rome"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	score := decode[models.ScoreResult](t, resp)
	assert.Equal(t, 1, score.Correct)
	assert.Equal(t, 2, score.Total)

	resp, err = http.Get(srv.URL + "/quiz/export?format=txt")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="quiz_World_History.txt"`, resp.Header.Get("Content-Disposition"))
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleQuiz, body.String())

	resp, err = http.Get(srv.URL + "/quiz/export?format=pdf")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
}

func TestServer_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		llm    *testutil.RecordingLLM
		load   bool
		do     func(t *testing.T, srv *httptest.Server) *http.Response
		status int
	}{
		{
			name: "quiz before any document",
			llm:  &testutil.RecordingLLM{Response: testutil.SampleQuiz},
			do: func(t *testing.T, srv *httptest.Server) *http.Response {
				return postJSON(t, srv.URL+"/quiz", `{}`)
			},
			status: http.StatusNotFound,
		},
		{
			name: "no active quiz",
			llm:  &testutil.RecordingLLM{},
			do: func(t *testing.T, srv *httptest.Server) *http.Response {
				resp, err := http.Get(srv.URL + "/quiz")
				require.NoError(t, err)
				return resp
			},
			status: http.StatusNotFound,
		},
		{
			name: "invalid count",
			llm:  &testutil.RecordingLLM{Response: testutil.SampleQuiz},
			load: true,
			do: func(t *testing.T, srv *httptest.Server) *http.Response {
				return postJSON(t, srv.URL+"/quiz", `{"count":50}`)
			},
			status: http.StatusBadRequest,
		},
		{
			name: "unparseable output",
			llm:  &testutil.RecordingLLM{Response: "no questions here"},
			load: true,
			do: func(t *testing.T, srv *httptest.Server) *http.Response {
				return postJSON(t, srv.URL+"/quiz", `{}`)
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "model unavailable",
			llm:  &testutil.RecordingLLM{Err: testutil.ErrUnavailable},
			load: true,
			do: func(t *testing.T, srv *httptest.Server) *http.Response {
				return postJSON(t, srv.URL+"/quiz", `{}`)
			},
			status: http.StatusBadGateway,
		},
		{
			name: "unsupported upload",
			llm:  &testutil.RecordingLLM{},
			do: func(t *testing.T, srv *httptest.Server) *http.Response {
				return upload(t, srv, "slides.key", "data")
			},
			status: http.StatusBadRequest,
		},
		{
			name: "empty upload",
			llm:  &testutil.RecordingLLM{},
			do: func(t *testing.T, srv *httptest.Server) *http.Response {
				return upload(t, srv, "blank.txt", "   ")
			},
			status: http.StatusBadRequest,
		},
		{
			name: "malformed submit",
			llm:  &testutil.RecordingLLM{},
			do: func(t *testing.T, srv *httptest.Server) *http.Response {
				return postJSON(t, srv.URL+"/quiz/submit", `{"answers":{"one":"A"}}`)
			},
			status: http.StatusBadRequest,
		},
		{
			name: "unknown export format",
			llm:  &testutil.RecordingLLM{},
			do: func(t *testing.T, srv *httptest.Server) *http.Response {
				resp, err := http.Get(srv.URL + "/quiz/export?format=docx")
				require.NoError(t, err)
				return resp
			},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.llm)
			if tt.load {
				resp := upload(t, srv, "notes.txt", testutil.SampleDocument)
				require.Equal(t, http.StatusCreated, resp.StatusCode)
				resp.Body.Close()
			}

			resp := tt.do(t, srv)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[errResp](t, resp)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestServer_ValidationFields(t *testing.T) {
	srv := newTestServer(t, &testutil.RecordingLLM{Response: testutil.SampleQuiz})
	resp := upload(t, srv, "notes.txt", testutil.SampleDocument)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/quiz", `{"difficulty":"expert","count":3}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errResp](t, resp)
	assert.Contains(t, body.Fields, "Difficulty")
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, &testutil.RecordingLLM{})
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", models.ErrEmbeddingService), http.StatusBadGateway},
		{models.ErrEmptyIndex, http.StatusNotFound},
		{models.ValidationError{Errors: map[string]string{"Count": "min"}}, http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
