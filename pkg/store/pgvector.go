package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/recall/internal/models"
)

type VectorIndexConfig struct {
	TableName string
	VectorDim int
	DefaultK  int
}

// VectorIndex stores owner-tagged chunk records in a pgvector table and
// serves filtered nearest-neighbor queries over them.
type VectorIndex struct {
	config VectorIndexConfig
	pool   *pgxpool.Pool
}

func NewVectorIndex(ctx context.Context, pool *pgxpool.Pool, config VectorIndexConfig) (*VectorIndex, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // Default for OpenAI embeddings
	}
	if config.DefaultK == 0 {
		config.DefaultK = 5
	}

	vi := &VectorIndex{
		config: config,
		pool:   pool,
	}

	if err := vi.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return vi, nil
}

// ensureSchema lazily creates the extension, table and indexes.
// All statements are idempotent so repeated startups are safe.
func (vi *VectorIndex) ensureSchema(ctx context.Context) error {
	_, err := vi.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			owner_tag TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, vi.config.TableName, vi.config.VectorDim)

	if _, err = vi.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vi.config.TableName, vi.config.TableName)

	if _, err = vi.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	createOwnerIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_owner_tag_idx
		ON %s (owner_tag)`,
		vi.config.TableName, vi.config.TableName)

	if _, err = vi.pool.Exec(ctx, createOwnerIndex); err != nil {
		return fmt.Errorf("failed to create owner index: %w", err)
	}

	return nil
}

// UpsertChunks writes one record per chunk with deterministic id
// {documentID}-{sequenceIndex}, all in one transaction so the call is
// all-or-nothing from the caller's point of view.
func (vi *VectorIndex) UpsertChunks(ctx context.Context, documentID string, chunks []models.Chunk, ownerTag string) error {
	tx, err := vi.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, owner_tag, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vi.config.TableName)

	for _, chunk := range chunks {
		id := fmt.Sprintf("%s-%d", documentID, chunk.SequenceIndex)

		_, err = tx.Exec(ctx, stmt,
			id,
			documentID,
			ownerTag,
			chunk.Text,
			pgvector.NewVector(chunk.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Query returns up to topK nearest records by cosine distance. A
// non-empty ownerTag restricts eligibility in the WHERE clause, before
// ranking, so other owners' records never compete for the topK slots.
func (vi *VectorIndex) Query(ctx context.Context, embedding []float32, topK int, ownerTag string) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		topK = vi.config.DefaultK
	}

	query := fmt.Sprintf(`
		SELECT content, document_id, owner_tag
		FROM %s
		WHERE owner_tag = $1
		ORDER BY embedding <=> $2
		LIMIT $3`,
		vi.config.TableName)
	args := []interface{}{ownerTag, pgvector.NewVector(embedding), topK}

	if ownerTag == "" {
		query = fmt.Sprintf(`
		SELECT content, document_id, owner_tag
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
			vi.config.TableName)
		args = []interface{}{pgvector.NewVector(embedding), topK}
	}

	rows, err := vi.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var content, docID, tag string
		if err := rows.Scan(&content, &docID, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, models.ScoredChunk{
			Text: content,
			Metadata: map[string]interface{}{
				"document_id": docID,
				"owner_tag":   tag,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return results, nil
}
