// Package search implements the DuckDuckGo adapter: a headless-browser
// path with block detection and adaptive throttling, plus a plain HTTP
// fallback. Results are deduplicated by domain and stripped of noise
// hosts before they reach the job driver.
package search

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/common"
	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
	"github.com/rjdeboer/captare/internal/services/cache"
)

// maxJitter is added to the inter-search delay so request timing never
// forms a fingerprintable pattern.
const maxJitter = 500 * time.Millisecond

// blockMarkers in the page title or the first kilobyte of body text
// identify a bot-detection interstitial.
var blockMarkers = []string{
	"captcha", "unusual traffic", "blocked", "access denied",
	"too many requests", "robot", "automated", "bot check",
}

// resultSelectors is the cascade tried against the rendered results
// page, newest DuckDuckGo layout first.
var resultSelectors = []string{
	`a[data-testid="result-title-a"]`,
	`article[data-testid="result"] h2 a`,
	`.react-results--main article a[href]`,
	`#links .result__a`,
	`.results--main .result__a`,
	`h2.result__title a`,
	`#links a.result-link`,
}

// Service is the production SearchService: browser first, HTTP
// fallback on browser failure or when the browser is disabled.
type Service struct {
	cfg      common.SearchConfig
	pool     *pagePool
	fallback *httpFallback
	cache    *cache.Service
	logger   arbor.ILogger

	mu                sync.Mutex
	delay             time.Duration
	consecutiveBlocks int
}

// NewService builds the adapter. The browser is not started until the
// first search needs it.
func NewService(cfg common.SearchConfig, cacheSvc *cache.Service, logger arbor.ILogger) *Service {
	return &Service{
		cfg:      cfg,
		pool:     newPagePool(cfg, logger),
		fallback: newHTTPFallback(logger),
		cache:    cacheSvc,
		logger:   logger,
		delay:    cfg.InitialDelay,
	}
}

// Search runs one query. Results are served from the TTL cache when a
// previous search already answered the same query. The browser path
// requires both the server-level switch and the job's opt-in.
func (s *Service) Search(ctx context.Context, query string, opts models.SearchOptions) (*models.SearchResult, error) {
	cacheKey := "search:" + query
	if cached, ok := s.cache.Get(cacheKey); ok {
		if result, ok := cached.(*models.SearchResult); ok {
			s.logger.Debug().Str("query", query).Msg("Search served from cache")
			return result, nil
		}
	}

	if err := s.politeWait(ctx); err != nil {
		return nil, err
	}

	if !s.cfg.UseBrowser || !opts.UseBrowser {
		return s.fallbackSearch(ctx, query, opts.MaxResults, cacheKey)
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		result, err := s.browserSearch(ctx, query, opts.MaxResults)
		if err != nil {
			lastErr = err
			break
		}

		if result.Blocked {
			s.recordBlock()
			s.logger.Warn().
				Str("query", query).
				Int("attempt", attempt+1).
				Msg("Search engine block detected")

			if attempt < s.cfg.MaxRetries {
				if err := sleepCtx(ctx, blockBackoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return result, nil
		}

		s.recordSuccess()
		s.cache.Set(cacheKey, result)
		return result, nil
	}

	s.logger.Warn().Err(lastErr).Str("query", query).Msg("Browser search failed, using HTTP fallback")
	return s.fallbackSearch(ctx, query, opts.MaxResults, cacheKey)
}

func (s *Service) fallbackSearch(ctx context.Context, query string, maxResults int, cacheKey string) (*models.SearchResult, error) {
	result, err := s.fallback.search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	if result.Blocked {
		s.recordBlock()
	} else {
		s.recordSuccess()
		s.cache.Set(cacheKey, result)
	}
	return result, nil
}

// browserSearch renders the results page in a pooled tab. A nil error
// with Blocked=true means the engine served an interstitial.
func (s *Service) browserSearch(ctx context.Context, query string, maxResults int) (*models.SearchResult, error) {
	pg, err := s.pool.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.release(pg)

	searchURL := "https://duckduckgo.com/?q=" + url.QueryEscape(query) + "&kl=nl-nl&ia=web"

	navCtx, cancel := context.WithTimeout(pg.ctx, s.cfg.NavigateTimeout)
	defer cancel()

	var title, snippet string
	err = chromedp.Run(navCtx,
		chromedp.Navigate(searchURL),
		chromedp.Title(&title),
		chromedp.Evaluate(`document.body ? document.body.innerText.slice(0, 1000) : ""`, &snippet),
	)
	if err != nil {
		return nil, fmt.Errorf("search navigation failed: %w", err)
	}

	if isBlockedPage(title, snippet) {
		return &models.SearchResult{Blocked: true, Source: models.SearchSourceBrowser}, nil
	}

	html := s.waitForResults(pg.ctx)
	urls := parseResultLinks(html, resultSelectors, maxResults)

	return &models.SearchResult{URLs: urls, Source: models.SearchSourceBrowser}, nil
}

// waitForResults walks the selector cascade; when nothing renders it
// nudges lazy loading with a scroll and retries the cascade once.
// Returns the page HTML, or "" when no selector ever matched.
func (s *Service) waitForResults(pageCtx context.Context) string {
	for pass := 0; pass < 2; pass++ {
		for _, selector := range resultSelectors {
			selCtx, cancel := context.WithTimeout(pageCtx, s.cfg.SelectorTimeout)
			err := chromedp.Run(selCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
			cancel()
			if err != nil {
				continue
			}

			var html string
			if err := chromedp.Run(pageCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
				return ""
			}
			return html
		}

		if pass == 0 {
			scrollCtx, cancel := context.WithTimeout(pageCtx, s.cfg.SelectorTimeout)
			chromedp.Run(scrollCtx,
				chromedp.Evaluate(`window.scrollBy(0, 500)`, nil),
				chromedp.Sleep(800*time.Millisecond),
			)
			cancel()
		}
	}
	return ""
}

// Shutdown closes the browser and its tabs. Safe to call repeatedly.
func (s *Service) Shutdown(ctx context.Context) error {
	s.pool.shutdown()
	return nil
}

// politeWait sleeps the adaptive delay plus jitter before a search hits
// the engine.
func (s *Service) politeWait(ctx context.Context) error {
	s.mu.Lock()
	d := s.delay
	s.mu.Unlock()

	return sleepCtx(ctx, d+time.Duration(rand.Int63n(int64(maxJitter))))
}

// recordBlock doubles the inter-search delay up to the cap.
func (s *Service) recordBlock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consecutiveBlocks++
	s.delay = nextDelayAfterBlock(s.delay, s.cfg.MaxDelay)
}

// recordSuccess resets the block counter and decays the delay back
// toward the floor.
func (s *Service) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consecutiveBlocks = 0
	s.delay = decayDelay(s.delay, s.cfg.InitialDelay)
}

// nextDelayAfterBlock doubles the delay, capped.
func nextDelayAfterBlock(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		next = max
	}
	return next
}

// decayDelay shrinks the delay by 10%, never below the floor.
func decayDelay(current, floor time.Duration) time.Duration {
	next := current * 9 / 10
	if next < floor {
		next = floor
	}
	return next
}

// blockBackoff is the sleep before retry n after a block page:
// 8s, 20s, 32s, ...
func blockBackoff(retry int) time.Duration {
	return 8*time.Second + time.Duration(retry)*12*time.Second
}

// isBlockedPage checks the title and the body snippet for bot-detection
// markers.
func isBlockedPage(title, bodySnippet string) bool {
	haystack := strings.ToLower(title + " " + bodySnippet)
	for _, marker := range blockMarkers {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}

// parseResultLinks extracts outbound result URLs from the page HTML:
// redirect links are decoded, engine-internal and noise hosts dropped,
// and domains deduplicated in document order.
func parseResultLinks(html string, selectors []string, maxResults int) []string {
	if html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var raw []string
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if href, ok := sel.Attr("href"); ok {
				raw = append(raw, href)
			}
		})
		if len(raw) > 0 {
			break
		}
	}
	if len(raw) == 0 {
		// Unknown layout: take every anchor and let the URL filter
		// separate result links from chrome.
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			if href, ok := sel.Attr("href"); ok {
				raw = append(raw, href)
			}
		})
	}
	return filterResultURLs(raw, maxResults)
}

// decodeResultURL resolves DuckDuckGo redirect hrefs (the uddg
// parameter) to the target URL. Non-redirect hrefs pass through.
func decodeResultURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// filterResultURLs keeps http(s) URLs on real company domains, one per
// domain, up to maxResults.
func filterResultURLs(raw []string, maxResults int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, href := range raw {
		target := decodeResultURL(href)
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			continue
		}

		domain := common.NormalizeDomain(target)
		if domain == "" || strings.HasSuffix(domain, "duckduckgo.com") || common.IsNoiseDomain(domain) {
			continue
		}
		if seen[domain] {
			continue
		}
		seen[domain] = true
		out = append(out, target)

		if maxResults > 0 && len(out) >= maxResults {
			break
		}
	}
	return out
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ interfaces.SearchService = (*Service)(nil)
