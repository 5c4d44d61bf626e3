package models

// SearchSource identifies which search path produced a result.
const (
	SearchSourceBrowser = "browser"
	SearchSourceHTTP    = "http"
)

// SearchOptions carries the per-job knobs for one query. UseBrowser
// requests the headless-browser path; the adapter may still fall back
// to HTTP when the browser is unavailable.
type SearchOptions struct {
	MaxResults int
	UseBrowser bool
}

// SearchResult is the outcome of one search-engine query.
type SearchResult struct {
	URLs    []string `json:"urls"`
	Blocked bool     `json:"blocked"`
	Source  string   `json:"source"`
	Error   string   `json:"error,omitempty"`
}
