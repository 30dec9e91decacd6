package models

import "time"

// Document is the relational metadata record written at the end of a
// successful ingestion. One row corresponds to N indexed chunks sharing
// the same document id.
type Document struct {
	ID          string    `json:"id"`
	OwnerTag    string    `json:"-"`
	Filename    string    `json:"filename"`
	UploadedAt  time.Time `json:"uploaded_at"`
	TextPreview string    `json:"text_preview"`
}

// Chunk is one overlapping word-window of a document, the unit of
// embedding and retrieval. Chunks are created in memory during ingestion,
// embedded, written once to the vector index and never mutated.
type Chunk struct {
	Text          string
	DocumentID    string
	SequenceIndex int
	Embedding     []float32
}

// ScoredChunk is a retrieval hit: the stored chunk text plus the record
// metadata, ordered by similarity to the query vector.
type ScoredChunk struct {
	Text     string
	Metadata map[string]interface{}
}

// IngestResult summarizes a completed ingestion.
type IngestResult struct {
	DocumentID    string `json:"document_id"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

// QueryResult carries the synthesized answer and the deduplicated,
// first-seen-ordered list of source document ids.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}
