// Package rag defines the interfaces for the retrieval side of moviechat:
// vector storage and embedding. Concrete backends (volatile, Qdrant, Redis)
// satisfy VectorStore so the memory layer never depends on a specific store.
package rag

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// dimension already established for its collection.
var ErrDimensionMismatch = errors.New("rag: vector dimension mismatch")

// Record is a single entry held by a VectorStore. Records are keyed by
// (collection, ID); upserting an existing key replaces it.
type Record struct {
	// ID is the caller-supplied unique key within the collection.
	ID string

	// Text is the embedded source text.
	Text string

	// Description is free-form metadata stored alongside the text.
	Description string

	// Embedding is the dense vector computed from Text.
	Embedding []float32
}

// Match is a Record returned by a similarity query together with its score.
// The Embedding field of a Match is not populated.
type Match struct {
	Record

	// Score is the cosine similarity between the query and the record, in [-1, 1].
	Score float32
}

// VectorStore is the interface for persisting and searching embeddings
// grouped into named collections. Collections are created implicitly on
// first upsert.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert inserts or replaces rec in collection.
	Upsert(ctx context.Context, collection string, rec Record) error

	// Query returns up to limit records whose score is at least minScore,
	// ordered by descending score. Querying a collection that does not
	// exist returns an empty result and a nil error.
	Query(ctx context.Context, collection string, vector []float32, limit int, minScore float32) ([]Match, error)

	// Delete removes the record with id from collection. Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, collection string, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
