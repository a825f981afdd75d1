// Package memory is the semantic memory used by moviechat: it pairs an
// embedder with a vector store so callers save and search plain text by
// (collection, id) without handling vectors themselves.
package memory

import (
	"context"
	"fmt"

	"github.com/54b3r/moviechat-go/internal/rag"
)

// Item is one entry written to memory.
type Item struct {
	// Collection is the memory collection the item belongs to.
	Collection string
	// ID is the caller-chosen key; saving an existing ID replaces the entry.
	ID string
	// Text is the content that is embedded and searched.
	Text string
	// Description is stored verbatim and returned with search results.
	Description string
}

// Metadata is the stored portion of a search hit.
type Metadata struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

// QueryResult is one search hit. Its JSON form is what the search tool
// hands back to the chat model.
type QueryResult struct {
	// Relevance is the cosine similarity between query and entry.
	Relevance float32 `json:"relevance"`
	// Metadata identifies and describes the matched entry.
	Metadata Metadata `json:"metadata"`
}

// Memory combines an embedder and a vector store.
// It is safe for concurrent use when both collaborators are.
type Memory struct {
	// embedder converts text to a dense vector.
	embedder rag.Embedder

	// store persists vectors and performs similarity search.
	store rag.VectorStore
}

// New constructs a Memory from the given Embedder and VectorStore.
func New(embedder rag.Embedder, store rag.VectorStore) (*Memory, error) {
	if embedder == nil {
		return nil, fmt.Errorf("memory: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("memory: store must not be nil")
	}
	return &Memory{embedder: embedder, store: store}, nil
}

// embedOne embeds a single text.
func (m *Memory) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 text", len(vecs))
	}
	return vecs[0], nil
}

// Save embeds item.Text and upserts it under (item.Collection, item.ID).
// It returns the stored id.
func (m *Memory) Save(ctx context.Context, item Item) (string, error) {
	vec, err := m.embedOne(ctx, item.Text)
	if err != nil {
		return "", fmt.Errorf("memory: embed %s: %w", item.ID, err)
	}

	err = m.store.Upsert(ctx, item.Collection, rag.Record{
		ID:          item.ID,
		Text:        item.Text,
		Description: item.Description,
		Embedding:   vec,
	})
	if err != nil {
		return "", fmt.Errorf("memory: save %s: %w", item.ID, err)
	}
	return item.ID, nil
}

// Search embeds query and returns up to limit entries of collection whose
// relevance is at least minRelevance, most relevant first. A collection that
// was never written returns an empty slice and no error.
func (m *Memory) Search(ctx context.Context, collection, query string, limit int, minRelevance float32) ([]QueryResult, error) {
	if limit <= 0 {
		return []QueryResult{}, nil
	}

	vec, err := m.embedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}

	matches, err := m.store.Query(ctx, collection, vec, limit, minRelevance)
	if err != nil {
		return nil, fmt.Errorf("memory: search %s: %w", collection, err)
	}

	results := make([]QueryResult, 0, len(matches))
	for _, mt := range matches {
		results = append(results, QueryResult{
			Relevance: mt.Score,
			Metadata: Metadata{
				ID:          mt.ID,
				Description: mt.Description,
				Text:        mt.Text,
			},
		})
	}
	return results, nil
}

// Remove deletes (collection, id). Removing a missing entry is not an error.
func (m *Memory) Remove(ctx context.Context, collection, id string) error {
	if err := m.store.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("memory: remove %s: %w", id, err)
	}
	return nil
}
