package interfaces

import (
	"context"
	"time"

	"github.com/rjdeboer/captare/internal/models"
)

// FetchFunc retrieves the raw HTML for a URL. Implemented by the site
// fetcher and passed into FetchExtra so analyzers can crawl additional
// pages without owning an HTTP client.
type FetchFunc func(ctx context.Context, url string, timeout time.Duration) (string, error)

// ExtraResult is the outcome of an analyzer's optional second-pass
// crawl. Text is appended to the accumulated page text before scoring;
// Data is handed back to Analyze unchanged.
type ExtraResult struct {
	Text string
	Data map[string]interface{}
}

// AnalyzeInput is everything an analyzer may score against.
type AnalyzeInput struct {
	Text   string
	URL    string
	Domain string
	Extra  map[string]interface{}
	Emails []string
}

// AnalyzeResult carries the total score and the opaque per-analyzer
// breakdown that is persisted with the lead.
type AnalyzeResult struct {
	Score int                    // 0-100
	Data  map[string]interface{} // top-level "score" plus a "breakdown" map
}

// Analyzer is one use case: it owns a sector taxonomy, turns a job
// config into search queries, optionally crawls extra pages per site,
// and scores the accumulated text. Analyze must be deterministic for
// identical input.
type Analyzer interface {
	Key() string
	GenerateQueries(cfg models.JobConfig) []models.QuerySpec
	FetchExtra(ctx context.Context, baseURL string, fetch FetchFunc) (*ExtraResult, error)
	Analyze(in AnalyzeInput) (*AnalyzeResult, error)
}
