// Package rag implements the retrieval orchestrator: it sequences
// extraction, chunking, embedding and indexing on ingest, and embedding,
// filtered search and answer synthesis on query.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/xhad/recall/internal/models"
	"github.com/xhad/recall/internal/types"
	"github.com/xhad/recall/pkg/chunker"
)

// Fixed responses. These are contract, not copy: callers and tests
// depend on the exact strings.
const (
	NoContextAnswer = "I couldn't find relevant context for your question."
	QuestionRefusal = "I'm sorry, I can't assist with that request."
	AnswerRefusal   = "I'm sorry, I can't share that content."
)

var (
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrNoReadableText    = errors.New("no readable text found")
	ErrNoValidChunks     = errors.New("no valid text chunks extracted")
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")
)

type ServiceConfig struct {
	MaxUploadBytes int
	WindowSize     int
	Overlap        int
	PreviewLength  int
	DefaultTopK    int
}

// Dependencies are the external collaborators, injected so tests can
// substitute them without patching globals.
type Dependencies struct {
	Extractor types.Extractor
	Embedder  types.Embedder
	Index     types.VectorIndex
	Metadata  types.MetadataStore
	Completer types.Completer
	Moderator types.Moderator
	Logger    *slog.Logger
}

type Service struct {
	config  ServiceConfig
	chunker chunker.Chunker
	deps    Dependencies
	logger  *slog.Logger
}

func NewWithConfig(config ServiceConfig, deps Dependencies) *Service {
	if config.MaxUploadBytes == 0 {
		config.MaxUploadBytes = 15 << 20
	}
	if config.WindowSize == 0 {
		config.WindowSize = 800
	}
	if config.Overlap == 0 {
		config.Overlap = 200
	}
	if config.PreviewLength == 0 {
		config.PreviewLength = 1000
	}
	if config.DefaultTopK == 0 {
		config.DefaultTopK = 5
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config: config,
		chunker: chunker.NewWithConfig(chunker.ChunkerConfig{
			WindowSize: config.WindowSize,
			Overlap:    config.Overlap,
		}),
		deps:   deps,
		logger: logger,
	}
}

// Ingest runs the write path: size check, extraction, chunking, batch
// embedding, integrity check, tagged index upsert, then the metadata
// row. Every step is a hard stop; nothing is retried here.
func (s *Service) Ingest(ctx context.Context, fileBytes []byte, filename, ownerTag string) (*models.IngestResult, error) {
	if len(fileBytes) > s.config.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d byte limit",
			ErrPayloadTooLarge, len(fileBytes), s.config.MaxUploadBytes)
	}

	text, err := s.deps.Extractor.Extract(fileBytes, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoReadableText
	}

	var kept []models.Chunk
	for _, c := range s.chunker.Chunk(text) {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		c.SequenceIndex = len(kept)
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return nil, ErrNoValidChunks
	}

	texts := make([]string, len(kept))
	for i, c := range kept {
		texts[i] = c.Text
	}

	vectors, err := s.deps.Embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	// Guards against silent truncation by the provider; proceeding
	// would misalign vectors and texts.
	if len(vectors) != len(kept) {
		return nil, fmt.Errorf("%w: %d chunks vs %d embeddings",
			ErrEmbeddingMismatch, len(kept), len(vectors))
	}

	documentID := uuid.NewString()
	for i := range kept {
		kept[i].Embedding = vectors[i]
		kept[i].DocumentID = documentID
	}

	if err := s.deps.Index.UpsertChunks(ctx, documentID, kept, ownerTag); err != nil {
		return nil, fmt.Errorf("failed to index chunks: %w", err)
	}

	if err := s.deps.Metadata.Insert(ctx, models.Document{
		ID:          documentID,
		OwnerTag:    ownerTag,
		Filename:    filename,
		TextPreview: preview(text, s.config.PreviewLength),
	}); err != nil {
		return nil, fmt.Errorf("failed to store document metadata: %w", err)
	}

	s.logger.Info("document ingested",
		"document_id", documentID,
		"filename", filename,
		"chunks", len(kept))

	return &models.IngestResult{
		DocumentID:    documentID,
		ChunksIndexed: len(kept),
	}, nil
}

// Answer runs the read path: embed the question, search the caller's
// records, synthesize an answer behind the safety gate.
func (s *Service) Answer(ctx context.Context, question string, topK int, ownerTag string) (*models.QueryResult, error) {
	if topK <= 0 {
		topK = s.config.DefaultTopK
	}

	vectors, err := s.deps.Embedder.CreateEmbedding(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: 1 question vs %d embeddings",
			ErrEmbeddingMismatch, len(vectors))
	}

	hits, err := s.deps.Index.Query(ctx, vectors[0], topK, ownerTag)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	if len(hits) == 0 {
		return &models.QueryResult{
			Answer:  NoContextAnswer,
			Sources: []string{},
		}, nil
	}

	answer, err := s.generateAnswer(ctx, hits, question)
	if err != nil {
		return nil, err
	}

	return &models.QueryResult{
		Answer:  answer,
		Sources: sourceIDs(hits),
	}, nil
}

// ListDocuments returns the caller's upload history.
func (s *Service) ListDocuments(ctx context.Context, ownerTag string) ([]models.Document, error) {
	docs, err := s.deps.Metadata.ListByOwner(ctx, ownerTag)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// generateAnswer moderates the question, synthesizes, then moderates
// the produced answer. A flagged question never reaches the completer;
// a flagged answer is discarded.
func (s *Service) generateAnswer(ctx context.Context, hits []models.ScoredChunk, question string) (string, error) {
	flagged, err := s.deps.Moderator.IsFlagged(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to moderate question: %w", err)
	}
	if flagged {
		s.logger.Warn("question flagged by moderation")
		return QuestionRefusal, nil
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}

	answer, err := s.deps.Completer.Complete(ctx, texts, question)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	flagged, err = s.deps.Moderator.IsFlagged(ctx, answer)
	if err != nil {
		return "", fmt.Errorf("failed to moderate answer: %w", err)
	}
	if flagged {
		s.logger.Warn("generated answer flagged by moderation")
		return AnswerRefusal, nil
	}

	return answer, nil
}

// sourceIDs deduplicates document ids preserving first-seen order.
// Records missing the field are skipped.
func sourceIDs(hits []models.ScoredChunk) []string {
	sources := []string{}
	seen := make(map[string]bool)

	for _, h := range hits {
		id, ok := h.Metadata["document_id"].(string)
		if !ok || id == "" {
			continue
		}
		if !seen[id] {
			seen[id] = true
			sources = append(sources, id)
		}
	}

	return sources
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
