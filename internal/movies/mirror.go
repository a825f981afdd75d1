package movies

import (
	"context"
	"fmt"
)

// Mirror copies up to limit movies from src into dst and returns how many
// were written. Existing rows with the same id are overwritten.
func Mirror(ctx context.Context, src Source, dst *SQLiteSource, limit int) (int, error) {
	page, err := src.Fetch(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("movies: mirror fetch: %w", err)
	}
	if err := dst.Insert(ctx, page); err != nil {
		return 0, fmt.Errorf("movies: mirror insert: %w", err)
	}
	return len(page), nil
}
