package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/moviechat-go/internal/memory"
	"github.com/54b3r/moviechat-go/internal/metrics"
)

// SearchToolName is the name the chat model calls the search tool by.
const SearchToolName = "search_information"

// ErrCollectionMismatch is returned when a caller names a collection other
// than the one the search tool was configured with.
var ErrCollectionMismatch = errors.New("tools: collection does not match the seeded collection")

// ErrInvalidInput is returned when search arguments fail validation.
var ErrInvalidInput = errors.New("tools: invalid input")

// Searcher is the subset of *memory.Memory the search tool uses.
type Searcher interface {
	Search(ctx context.Context, collection, query string, limit int, minRelevance float32) ([]memory.QueryResult, error)
}

// SearchConfig holds the search tool's fixed settings.
type SearchConfig struct {
	// Collection is the seeded collection every search runs against.
	Collection string
	// MinRelevance is the relevance floor applied to every search.
	MinRelevance float32
	// DefaultLimit is used when the caller omits limit. Defaults to 5.
	DefaultLimit int
	// MaxLimit caps caller-supplied limits. Defaults to 50.
	MaxLimit int
	// Metrics, when set, records search outcomes and latency.
	Metrics *metrics.Metrics
}

// SearchInput is the decoded argument object of search_information.
type SearchInput struct {
	Query      string `json:"query"`
	Collection string `json:"collection,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	// MinRelevanceScore is accepted for compatibility with callers that send
	// it, and ignored: the configured floor always applies.
	MinRelevanceScore *float64 `json:"min_relevance_score,omitempty"`
}

// searchInfo is the schema advertised to the chat model.
func searchInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: SearchToolName,
		Desc: "Gets the movie suggestions based on the genre, type, name etc",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "Free-text description of what to look for, e.g. a genre, theme, plot element or title.",
				Required: true,
			},
			"collection": {
				Type: schema.String,
				Desc: "Memory collection to search. Optional; must be the seeded movie collection when given.",
			},
			"limit": {
				Type: schema.Integer,
				Desc: "Maximum number of results to return (default 5, max 50).",
			},
			"min_relevance_score": {
				Type: schema.Number,
				Desc: "Minimum relevance between 0 and 1. Optional.",
			},
		}),
	}
}

// NewSearchTool returns the search_information tool bound to mem and cfg.
func NewSearchTool(mem Searcher, cfg SearchConfig) (*TypedTool[SearchInput, []memory.QueryResult], error) {
	if mem == nil {
		return nil, fmt.Errorf("tools: searcher must not be nil")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("tools: search collection must not be empty")
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 5
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 50
	}

	return NewTyped(searchInfo(), func(ctx context.Context, in SearchInput) ([]memory.QueryResult, error) {
		return runSearch(ctx, mem, cfg, in)
	}), nil
}

// runSearch validates in and forwards it to mem. Errors from mem are
// returned unchanged apart from the tool-name prefix.
func runSearch(ctx context.Context, mem Searcher, cfg SearchConfig, in SearchInput) ([]memory.QueryResult, error) {
	if in.Query == "" {
		return nil, fmt.Errorf("%s: %w: query is required", SearchToolName, ErrInvalidInput)
	}
	if in.Collection != "" && in.Collection != cfg.Collection {
		return nil, fmt.Errorf("%s: %w: got %q, want %q", SearchToolName, ErrCollectionMismatch, in.Collection, cfg.Collection)
	}
	limit := in.Limit
	switch {
	case limit < 0:
		return nil, fmt.Errorf("%s: %w: limit must not be negative, got %d", SearchToolName, ErrInvalidInput, limit)
	case limit == 0:
		limit = cfg.DefaultLimit
	case limit > cfg.MaxLimit:
		limit = cfg.MaxLimit
	}

	start := time.Now()
	results, err := mem.Search(ctx, cfg.Collection, in.Query, limit, cfg.MinRelevance)
	cfg.Metrics.RecordSearch(time.Since(start), len(results), err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", SearchToolName, err)
	}
	if results == nil {
		results = []memory.QueryResult{}
	}
	return results, nil
}
