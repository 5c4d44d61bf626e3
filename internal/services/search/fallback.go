package search

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/models"
)

const fallbackEndpoint = "https://html.duckduckgo.com/html/"

// rateLimitCooldown is the pause after the HTML endpoint answers 429.
const rateLimitCooldown = 30 * time.Second

// fallbackMaxBody caps the response read.
const fallbackMaxBody = 2 << 20

// fallbackUserAgents rotate per request on the HTML endpoint.
var fallbackUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// fallbackSelectors extract result anchors from the static HTML page.
var fallbackSelectors = []string{"a.result__a", ".result__title a", ".links_main a.result__a"}

// httpFallback queries the no-JavaScript DuckDuckGo HTML endpoint. Used
// when the browser is disabled or broken.
type httpFallback struct {
	client   *http.Client
	endpoint string
	logger   arbor.ILogger
}

func newHTTPFallback(logger arbor.ILogger) *httpFallback {
	return &httpFallback{
		client:   &http.Client{Timeout: 20 * time.Second},
		endpoint: fallbackEndpoint,
		logger:   logger,
	}
}

// search POSTs the query form. A 429 response cools down and reports a
// block; other non-200 statuses are errors.
func (f *httpFallback) search(ctx context.Context, query string, maxResults int) (*models.SearchResult, error) {
	form := url.Values{}
	form.Set("q", query)
	form.Set("kl", "nl-nl")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", fallbackUserAgents[rand.Intn(len(fallbackUserAgents))])
	req.Header.Set("Accept-Language", "nl-NL,nl;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fallback search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		f.logger.Warn().Str("query", query).Msg("HTML endpoint rate limited, cooling down")
		if err := sleepCtx(ctx, rateLimitCooldown); err != nil {
			return nil, err
		}
		return &models.SearchResult{Blocked: true, Source: models.SearchSourceHTTP}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fallback search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fallbackMaxBody))
	if err != nil {
		return nil, err
	}

	urls := parseResultLinks(string(body), fallbackSelectors, maxResults)
	return &models.SearchResult{URLs: urls, Source: models.SearchSourceHTTP}, nil
}
