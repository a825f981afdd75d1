package memory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/54b3r/moviechat-go/internal/rag"
	"github.com/54b3r/moviechat-go/internal/rag/ragtest"
)

func newTestMemory(t *testing.T, emb rag.Embedder) (*Memory, *rag.VolatileStore) {
	t.Helper()
	store := rag.NewVolatileStore()
	m, err := New(emb, store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, store
}

func TestNew_NilCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, rag.NewVolatileStore()); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := New(ragtest.NewKeywordEmbedder("x"), nil); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestMemory_SaveSearchRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, store := newTestMemory(t, ragtest.NewKeywordEmbedder("battle", "love", "space"))
	items := []Item{
		{Collection: "movies", ID: "1", Text: "a love story", Description: "Movie One"},
		{Collection: "movies", ID: "2", Text: "an epic battle in space", Description: "Movie Two"},
		{Collection: "movies", ID: "3", Text: "battle after battle", Description: "Movie Three"},
	}
	for _, it := range items {
		id, err := m.Save(ctx, it)
		if err != nil {
			t.Fatalf("Save(%s): %v", it.ID, err)
		}
		if id != it.ID {
			t.Errorf("Save returned id %q, want %q", id, it.ID)
		}
	}

	got, err := m.Search(ctx, "movies", "battle", 2, 0.5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 results, got %d: %+v", len(got), got)
	}
	if got[0].Metadata.ID != "3" || got[1].Metadata.ID != "2" {
		t.Errorf("order: got [%s %s], want [3 2]", got[0].Metadata.ID, got[1].Metadata.ID)
	}
	if got[0].Relevance < got[1].Relevance {
		t.Errorf("relevance not descending: %v < %v", got[0].Relevance, got[1].Relevance)
	}
	if got[0].Metadata.Description != "Movie Three" || got[0].Metadata.Text != "battle after battle" {
		t.Errorf("metadata: got %+v", got[0].Metadata)
	}

	if err := m.Remove(ctx, "movies", "3"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if n := store.Len("movies"); n != 2 {
		t.Errorf("store size after remove: got %d, want 2", n)
	}
}

func TestMemory_SearchLimitOverLargerCollection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, _ := newTestMemory(t, ragtest.NewKeywordEmbedder("heist", "crew"))
	texts := []string{"heist", "crew", "heist crew", "heist heist", "nothing", "crew crew heist"}
	for i, text := range texts {
		if _, err := m.Save(ctx, Item{Collection: "c", ID: string(rune('a' + i)), Text: text}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := m.Search(ctx, "c", "heist", 4, -1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("want 4 results, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Relevance < got[i].Relevance {
			t.Errorf("relevance increased at %d: %v < %v", i, got[i-1].Relevance, got[i].Relevance)
		}
	}
}

func TestMemory_SearchEmptyCollection(t *testing.T) {
	t.Parallel()

	m, _ := newTestMemory(t, ragtest.NewKeywordEmbedder("x"))
	got, err := m.Search(context.Background(), "never-written", "anything", 5, 0.1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", got)
	}

	b, _ := json.Marshal(got)
	if string(b) != "[]" {
		t.Errorf("JSON: got %s, want []", b)
	}
}

func TestMemory_EmbedErrorPropagates(t *testing.T) {
	t.Parallel()

	emb := ragtest.NewKeywordEmbedder("x")
	emb.FailOn = func(text string) bool { return strings.Contains(text, "poison") }
	m, _ := newTestMemory(t, emb)

	_, err := m.Save(context.Background(), Item{Collection: "c", ID: "p", Text: "poison"})
	if err == nil || !strings.Contains(err.Error(), "memory: embed p") {
		t.Errorf("Save: got %v", err)
	}
	_, err = m.Search(context.Background(), "c", "poison", 1, 0)
	if err == nil {
		t.Error("Search: expected embed error")
	}
}

func TestMemory_DimensionMismatchWrapped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := rag.NewVolatileStore()
	if err := store.Upsert(ctx, "c", rag.Record{ID: "seed", Embedding: []float32{1, 2, 3, 4, 5}}); err != nil {
		t.Fatal(err)
	}
	m, err := New(ragtest.NewKeywordEmbedder("a"), store)
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Save(ctx, Item{Collection: "c", ID: "x", Text: "a"})
	if !errors.Is(err, rag.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestQueryResult_JSONShape(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(QueryResult{
		Relevance: 0.5,
		Metadata:  Metadata{ID: "573a", Description: "Movie X description for 573a with plot p", Text: "p"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"relevance":0.5,"metadata":{"id":"573a","description":"Movie X description for 573a with plot p","text":"p"}}`
	if string(b) != want {
		t.Errorf("JSON:\n got %s\nwant %s", b, want)
	}
}
