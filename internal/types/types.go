package types

import (
	"context"

	"github.com/xhad/recall/internal/models"
)

// Core interfaces

// Extractor converts raw file bytes into plain text. Unsupported
// extensions fall back to a lossy UTF-8 decode.
type Extractor interface {
	Extract(fileBytes []byte, filename string) (string, error)
}

// Embedder converts texts into fixed-length vectors, one vector per
// input text, order-preserving, in a single call.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the owner-tagged nearest-neighbor store. UpsertChunks
// writes one record per chunk with deterministic id {documentID}-{index}.
// Query returns up to topK nearest records; a non-empty ownerTag is a
// hard equality filter applied during ranking, not a post-filter.
type VectorIndex interface {
	UpsertChunks(ctx context.Context, documentID string, chunks []models.Chunk, ownerTag string) error
	Query(ctx context.Context, embedding []float32, topK int, ownerTag string) ([]models.ScoredChunk, error)
}

// Completer produces a natural-language answer from retrieved context
// chunks and the original question.
type Completer interface {
	Complete(ctx context.Context, contextChunks []string, question string) (string, error)
}

// Moderator reports whether text violates the safety policy.
type Moderator interface {
	IsFlagged(ctx context.Context, text string) (bool, error)
}

// MetadataStore persists document metadata rows. The core only requires
// insert plus an owner-scoped listing.
type MetadataStore interface {
	Insert(ctx context.Context, doc models.Document) error
	ListByOwner(ctx context.Context, ownerTag string) ([]models.Document, error)
}
