package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/recall/internal/models"
	"github.com/xhad/recall/pkg/rag"
)

type stubService struct {
	ingestResult *models.IngestResult
	ingestErr    error
	answerResult *models.QueryResult
	answerErr    error
	docs         []models.Document

	lastFilename string
	lastQuestion string
	lastTopK     int
	lastOwnerTag string
	ingestCalls  int
}

func (s *stubService) Ingest(_ context.Context, _ []byte, filename, ownerTag string) (*models.IngestResult, error) {
	s.ingestCalls++
	s.lastFilename = filename
	s.lastOwnerTag = ownerTag
	return s.ingestResult, s.ingestErr
}

func (s *stubService) Answer(_ context.Context, question string, topK int, ownerTag string) (*models.QueryResult, error) {
	s.lastQuestion = question
	s.lastTopK = topK
	s.lastOwnerTag = ownerTag
	return s.answerResult, s.answerErr
}

func (s *stubService) ListDocuments(_ context.Context, ownerTag string) ([]models.Document, error) {
	s.lastOwnerTag = ownerTag
	return s.docs, nil
}

func newTestServer(stub *stubService, config Config) *Server {
	if len(config.APIKeys) == 0 {
		config.APIKeys = []string{"test-key"}
	}
	return New(config, stub, nil)
}

func uploadRequest(t *testing.T, apiKey, filename, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	return req
}

func queryRequestJSON(apiKey, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	return req
}

func TestHealthNoAuth(t *testing.T) {
	srv := newTestServer(&stubService{}, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthMissingKey(t *testing.T) {
	stub := &stubService{}
	srv := newTestServer(stub, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, queryRequestJSON("", `{"query":"hi"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, stub.ingestCalls)
}

func TestAuthWrongKey(t *testing.T) {
	srv := newTestServer(&stubService{}, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, queryRequestJSON("wrong-key", `{"query":"hi"}`))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadDerivesOwnerTag(t *testing.T) {
	stub := &stubService{ingestResult: &models.IngestResult{DocumentID: "doc-1", ChunksIndexed: 3}}
	srv := newTestServer(stub, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "test-key", "notes.txt", "hello world"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "notes.txt", stub.lastFilename)

	sum := sha256.Sum256([]byte("test-key"))
	assert.Equal(t, hex.EncodeToString(sum[:]), stub.lastOwnerTag)

	var result models.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Equal(t, 3, result.ChunksIndexed)
}

func TestUploadMissingFile(t *testing.T) {
	srv := newTestServer(&stubService{}, Config{})

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"payload too large", rag.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"no readable text", rag.ErrNoReadableText, http.StatusBadRequest},
		{"no valid chunks", rag.ErrNoValidChunks, http.StatusBadRequest},
		{"embedding mismatch", rag.ErrEmbeddingMismatch, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubService{ingestErr: tt.err}
			srv := newTestServer(stub, Config{})

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, uploadRequest(t, "test-key", "notes.txt", "hello"))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestQueryPassthrough(t *testing.T) {
	stub := &stubService{answerResult: &models.QueryResult{
		Answer:  "the answer",
		Sources: []string{"doc-1", "doc-2"},
	}}
	srv := newTestServer(stub, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, queryRequestJSON("test-key", `{"query":"what is up?","top_k":3}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "what is up?", stub.lastQuestion)
	assert.Equal(t, 3, stub.lastTopK)
	assert.JSONEq(t, `{"answer":"the answer","sources":["doc-1","doc-2"]}`, rec.Body.String())
}

func TestQueryMissingField(t *testing.T) {
	srv := newTestServer(&stubService{}, Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, queryRequestJSON("test-key", `{"top_k":3}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDocuments(t *testing.T) {
	stub := &stubService{docs: []models.Document{
		{ID: "doc-1", Filename: "a.txt"},
	}}
	srv := newTestServer(stub, Config{})

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Documents []models.Document `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Documents, 1)
	assert.Equal(t, "doc-1", payload.Documents[0].ID)
}

func TestRateLimitPerOwner(t *testing.T) {
	stub := &stubService{answerResult: &models.QueryResult{Answer: "ok", Sources: []string{}}}
	srv := newTestServer(stub, Config{
		APIKeys:   []string{"key-a", "key-b"},
		RateLimit: 0.001,
		RateBurst: 1,
	})

	// first request under key-a consumes its burst, the second is rejected
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, queryRequestJSON("key-a", `{"query":"q"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, queryRequestJSON("key-a", `{"query":"q"}`))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// key-b has its own bucket
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, queryRequestJSON("key-b", `{"query":"q"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(&stubService{}, Config{
		AllowOrigins: []string{"https://app.example.com"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSUnknownOrigin(t *testing.T) {
	srv := newTestServer(&stubService{}, Config{
		AllowOrigins: []string{"https://app.example.com"},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
