package interfaces

import (
	"context"

	"github.com/rjdeboer/captare/internal/models"
)

// SearchService issues one search-engine query and returns candidate
// URLs, deduplicated by domain and stripped of noise hosts. A blocked
// result carries Blocked=true and an empty URL list.
type SearchService interface {
	Search(ctx context.Context, query string, opts models.SearchOptions) (*models.SearchResult, error)
	// Shutdown drains the browser page pool and closes the headless
	// browser. Safe to call more than once.
	Shutdown(ctx context.Context) error
}
