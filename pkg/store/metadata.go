package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xhad/recall/internal/models"
)

// MetadataStore persists one document row per successful ingestion.
// Rows are written once and never updated.
type MetadataStore struct {
	table string
	pool  *pgxpool.Pool
}

func NewMetadataStore(ctx context.Context, pool *pgxpool.Pool, table string) (*MetadataStore, error) {
	if table == "" {
		table = "documents"
	}

	ms := &MetadataStore{
		table: table,
		pool:  pool,
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			owner_tag TEXT NOT NULL,
			filename TEXT NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			text_preview TEXT
		)`, ms.table)

	if _, err := pool.Exec(ctx, createTable); err != nil {
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_owner_tag_idx
		ON %s (owner_tag)`, ms.table, ms.table)

	if _, err := pool.Exec(ctx, createIndex); err != nil {
		return nil, fmt.Errorf("failed to create owner index: %w", err)
	}

	return ms, nil
}

func (ms *MetadataStore) Insert(ctx context.Context, doc models.Document) error {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, owner_tag, filename, uploaded_at, text_preview)
		VALUES ($1, $2, $3, $4, $5)`, ms.table)

	_, err := ms.pool.Exec(ctx, stmt,
		doc.ID, doc.OwnerTag, doc.Filename, doc.UploadedAt, doc.TextPreview)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return nil
}

func (ms *MetadataStore) ListByOwner(ctx context.Context, ownerTag string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_tag, filename, uploaded_at, text_preview
		FROM %s
		WHERE owner_tag = $1
		ORDER BY uploaded_at DESC`, ms.table)

	rows, err := ms.pool.Query(ctx, query, ownerTag)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.OwnerTag, &doc.Filename, &doc.UploadedAt, &doc.TextPreview); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return docs, nil
}
