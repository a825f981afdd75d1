package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/54b3r/moviechat-go/internal/memory"
	"github.com/54b3r/moviechat-go/internal/rag"
	"github.com/54b3r/moviechat-go/internal/rag/ragtest"
)

// recordingSearcher records the last call and returns canned results.
type recordingSearcher struct {
	collection   string
	query        string
	limit        int
	minRelevance float32
	results      []memory.QueryResult
	err          error
}

func (s *recordingSearcher) Search(_ context.Context, collection, query string, limit int, minRelevance float32) ([]memory.QueryResult, error) {
	s.collection, s.query, s.limit, s.minRelevance = collection, query, limit, minRelevance
	return s.results, s.err
}

func TestNewSearchTool_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewSearchTool(nil, SearchConfig{Collection: "c"}); err == nil {
		t.Error("expected error for nil searcher")
	}
	if _, err := NewSearchTool(&recordingSearcher{}, SearchConfig{}); err == nil {
		t.Error("expected error for empty collection")
	}
}

func TestSearchTool_Info(t *testing.T) {
	t.Parallel()

	st, err := NewSearchTool(&recordingSearcher{}, SearchConfig{Collection: "embedded_movies"})
	if err != nil {
		t.Fatal(err)
	}
	info, err := st.Info(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "search_information" {
		t.Errorf("Name: got %q", info.Name)
	}
	if info.Desc != "Gets the movie suggestions based on the genre, type, name etc" {
		t.Errorf("Desc: got %q", info.Desc)
	}
	if info.ParamsOneOf == nil {
		t.Error("ParamsOneOf must declare the argument schema")
	}
}

func TestSearchTool_Arguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       string
		wantLimit  int
		wantErr    error
		wantAnyErr bool
	}{
		{"defaults", `{"query":"battle"}`, 5, nil, false},
		{"explicit limit", `{"query":"battle","limit":2}`, 2, nil, false},
		{"limit clamped", `{"query":"battle","limit":500}`, 50, nil, false},
		{"matching collection", `{"query":"battle","collection":"embedded_movies"}`, 5, nil, false},
		{"min relevance ignored", `{"query":"battle","min_relevance_score":0.9}`, 5, nil, false},
		{"other collection", `{"query":"battle","collection":"lights"}`, 0, ErrCollectionMismatch, true},
		{"missing query", `{"limit":3}`, 0, ErrInvalidInput, true},
		{"negative limit", `{"query":"x","limit":-1}`, 0, ErrInvalidInput, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &recordingSearcher{}
			st, err := NewSearchTool(s, SearchConfig{Collection: "embedded_movies", MinRelevance: 0.1})
			if err != nil {
				t.Fatal(err)
			}

			_, err = st.InvokableRun(context.Background(), tt.args)
			if tt.wantAnyErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("error: got %v, want %v", err, tt.wantErr)
				}
				if s.query != "" {
					t.Error("searcher should not be called on invalid input")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.collection != "embedded_movies" {
				t.Errorf("collection: got %q", s.collection)
			}
			if s.limit != tt.wantLimit {
				t.Errorf("limit: got %d, want %d", s.limit, tt.wantLimit)
			}
			if s.minRelevance != 0.1 {
				t.Errorf("minRelevance: got %v, want configured 0.1", s.minRelevance)
			}
		})
	}
}

func TestSearchTool_ErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("store unavailable")
	st, err := NewSearchTool(&recordingSearcher{err: boom}, SearchConfig{Collection: "c"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = st.InvokableRun(context.Background(), `{"query":"x"}`)
	if !errors.Is(err, boom) {
		t.Errorf("expected store error to propagate, got %v", err)
	}
}

func TestSearchTool_EndToEndJSON(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem, err := memory.New(ragtest.NewKeywordEmbedder("space", "battle", "romantic"), rag.NewVolatileStore())
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range []memory.Item{
		{Collection: "embedded_movies", ID: "a", Text: "space battle", Description: "Movie A description for a with plot space battle"},
		{Collection: "embedded_movies", ID: "b", Text: "romantic comedy", Description: "Movie B description for b with plot romantic comedy"},
	} {
		if _, err := mem.Save(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	st, err := NewSearchTool(mem, SearchConfig{Collection: "embedded_movies", MinRelevance: 0.1})
	if err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.Register(st); err != nil {
		t.Fatal(err)
	}
	out, err := r.Invoke(ctx, SearchToolName, `{"query":"battle","limit":1}`)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	var got []memory.QueryResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not a JSON array of results: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].Metadata.ID != "a" {
		t.Fatalf("got %+v, want [a]", got)
	}
	if got[0].Relevance <= 0.1 {
		t.Errorf("relevance: got %v, want > 0.1", got[0].Relevance)
	}

	empty, err := r.Invoke(ctx, SearchToolName, `{"query":"nothing matches"}`)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if empty != "[]" {
		t.Errorf("no-match output: got %s, want []", empty)
	}
}
