package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/recall/internal/models"
	"github.com/xhad/recall/pkg/store"
)

// Integration tests require a Postgres with the pgvector extension.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("RECALL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RECALL_TEST_DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func truncate(t *testing.T, pool *pgxpool.Pool, table string) {
	t.Helper()
	_, err := pool.Exec(context.Background(), "TRUNCATE "+table)
	require.NoError(t, err)
}

func testVector(dim int, seed float32) []float32 {
	v := make([]float32, dim)
	v[0] = seed
	return v
}

func TestVectorIndex_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)

	vi, err := store.NewVectorIndex(ctx, pool, store.VectorIndexConfig{
		TableName: "test_chunks",
		VectorDim: 3,
	})
	require.NoError(t, err)
	truncate(t, pool, "test_chunks")

	chunksA := []models.Chunk{
		{Text: "alpha one", SequenceIndex: 0, Embedding: testVector(3, 1)},
		{Text: "alpha two", SequenceIndex: 1, Embedding: testVector(3, 0.9)},
	}
	chunksB := []models.Chunk{
		{Text: "bravo one", SequenceIndex: 0, Embedding: testVector(3, 1)},
	}

	require.NoError(t, vi.UpsertChunks(ctx, "doc-a", chunksA, "owner-a"))
	require.NoError(t, vi.UpsertChunks(ctx, "doc-b", chunksB, "owner-b"))

	got, err := vi.Query(ctx, testVector(3, 1), 10, "owner-b")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "bravo one", got[0].Text)
	assert.Equal(t, "doc-b", got[0].Metadata["document_id"])
	assert.Equal(t, "owner-b", got[0].Metadata["owner_tag"])
}

func TestVectorIndex_UpsertIsIdempotentPerID(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)

	vi, err := store.NewVectorIndex(ctx, pool, store.VectorIndexConfig{
		TableName: "test_chunks_upsert",
		VectorDim: 3,
	})
	require.NoError(t, err)
	truncate(t, pool, "test_chunks_upsert")

	chunks := []models.Chunk{{Text: "v1", SequenceIndex: 0, Embedding: testVector(3, 1)}}
	require.NoError(t, vi.UpsertChunks(ctx, "doc-x", chunks, "owner-x"))

	chunks[0].Text = "v2"
	require.NoError(t, vi.UpsertChunks(ctx, "doc-x", chunks, "owner-x"))

	got, err := vi.Query(ctx, testVector(3, 1), 10, "owner-x")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v2", got[0].Text)
}

func TestMetadataStore_InsertAndList(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)

	ms, err := store.NewMetadataStore(ctx, pool, "test_documents")
	require.NoError(t, err)
	truncate(t, pool, "test_documents")

	doc := models.Document{
		ID:          "doc-1",
		OwnerTag:    "owner-list",
		Filename:    "notes.txt",
		TextPreview: "preview",
	}
	require.NoError(t, ms.Insert(ctx, doc))

	docs, err := ms.ListByOwner(ctx, "owner-list")
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, "notes.txt", docs[0].Filename)

	other, err := ms.ListByOwner(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, other)
}
