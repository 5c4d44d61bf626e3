// Package fetcher implements the site pipeline: fetch the homepage and
// up to two contact pages, run the analyzer's extra crawl, extract
// contact data, score the accumulated text and validate the best email.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/common"
	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
	"github.com/rjdeboer/captare/internal/services/cache"
	"github.com/rjdeboer/captare/internal/services/emailcheck"
)

// Sentinel errors let the job driver distinguish skips from real
// failures.
var (
	ErrSkippedDomain  = errors.New("domain skipped")
	ErrAlreadyVisited = errors.New("domain already visited")
)

const (
	maxContactPages = 2
	maxBodyBytes    = 2 << 20 // per-page read cap
)

// contactLinkRegex matches contact/about paths on the company's own
// domain.
var contactLinkRegex = regexp.MustCompile(`(?i)/(contact|contacto|over-ons|overons|about(-us)?|kontakt|impressum|uber-uns|ueber-uns)([/?#]|$)`)

// Service fetches company sites and turns them into scored leads.
type Service struct {
	cfg       common.ScraperConfig
	client    *http.Client
	cache     *cache.Service
	validator *emailcheck.Validator
	logger    arbor.ILogger
}

// NewService builds the fetcher with a redirect-capped HTTP client.
func NewService(cfg common.ScraperConfig, cacheSvc *cache.Service, validator *emailcheck.Validator, logger arbor.ILogger) *Service {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 5
	}
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Service{
		cfg:       cfg,
		client:    client,
		cache:     cacheSvc,
		validator: validator,
		logger:    logger,
	}
}

// Scrape runs the full pipeline for one search-result URL. It returns
// ErrSkippedDomain for noise/invalid domains and ErrAlreadyVisited when
// another worker got to the domain first.
func (s *Service) Scrape(ctx context.Context, rawURL string, analyzer interfaces.Analyzer, jobCfg models.JobConfig) (*models.Lead, error) {
	domain := common.NormalizeDomain(rawURL)
	if domain == "" || !common.HasValidTLD(domain) || common.IsNoiseDomain(domain) {
		return nil, fmt.Errorf("%w: %s", ErrSkippedDomain, rawURL)
	}
	if !s.cache.MarkVisited(domain) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyVisited, domain)
	}

	baseURL := rawURL
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + domain
	}

	homeHTML, finalURL, err := s.fetchPage(ctx, baseURL, s.cfg.HomepageTimeout)
	if err != nil {
		return nil, fmt.Errorf("homepage fetch failed for %s: %w", domain, err)
	}

	homeDoc, err := goquery.NewDocumentFromReader(strings.NewReader(homeHTML))
	if err != nil {
		return nil, fmt.Errorf("homepage parse failed for %s: %w", domain, err)
	}

	allHTML := homeHTML
	texts := []string{homeDoc.Text()}

	base, _ := url.Parse(finalURL)
	for _, link := range contactLinks(homeDoc, base) {
		time.Sleep(s.cfg.PolitenessDelay)

		html, _, err := s.fetchPage(ctx, link, s.cfg.ContactTimeout)
		if err != nil {
			s.logger.Debug().Err(err).Str("url", link).Msg("Contact page fetch failed")
			continue
		}
		allHTML += "\n" + html
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
			texts = append(texts, doc.Text())
		}
	}

	extra, err := analyzer.FetchExtra(ctx, baseURL, s.FetchHTML)
	if err != nil {
		s.logger.Debug().Err(err).Str("domain", domain).Msg("Extra crawl failed")
		extra = &interfaces.ExtraResult{Data: map[string]interface{}{}}
	}
	if extra.Text != "" {
		texts = append(texts, extra.Text)
	}

	emails := extractEmails(allHTML, domain)
	text := strings.Join(texts, "\n")

	result, err := analyzer.Analyze(interfaces.AnalyzeInput{
		Text:   text,
		URL:    finalURL,
		Domain: domain,
		Extra:  extra.Data,
		Emails: emails,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis failed for %s: %w", domain, err)
	}

	lead := &models.Lead{
		CompanyName: extractCompanyName(homeDoc, domain),
		Website:     finalURL,
		Domain:      domain,
		AllEmails:   emails,
		Phone:       extractPhone(text),
		Address:     extractAddress(homeDoc),
		Description: extractDescription(homeDoc),
		Score:       result.Score,
		FoundAt:     time.Now(),
	}
	if len(emails) > 0 {
		lead.Email = emails[0]
	}
	if data, err := json.Marshal(result.Data); err == nil {
		lead.AnalysisData = data
	}

	if jobCfg.EmailValidation && lead.Email != "" {
		vr := s.validateCached(ctx, lead.Email, jobCfg.DeepValidation)
		lead.EmailValid = vr.Valid
		lead.EmailValidationScore = vr.Score
		lead.EmailValidationReason = vr.Reason
	} else if lead.Email == "" {
		lead.EmailValidationReason = emailcheck.ReasonNoEmailFound
	}

	return lead, nil
}

// validateCached validates an email through the TTL cache, so repeated
// addresses across jobs skip the MX/SMTP round trips.
func (s *Service) validateCached(ctx context.Context, email string, deep bool) emailcheck.Result {
	cacheKey := "email:" + email
	if deep {
		cacheKey = "email:deep:" + email
	}
	if cached, ok := s.cache.Get(cacheKey); ok {
		if vr, ok := cached.(emailcheck.Result); ok {
			return vr
		}
	}

	vr := s.validator.Validate(ctx, email, deep)
	s.cache.Set(cacheKey, vr)
	return vr
}

// FetchHTML is the interfaces.FetchFunc handed to analyzers for their
// extra crawls.
func (s *Service) FetchHTML(ctx context.Context, pageURL string, timeout time.Duration) (string, error) {
	html, _, err := s.fetchPage(ctx, pageURL, timeout)
	return html, err
}

// fetchPage GETs a page with the given timeout and returns the body
// plus the post-redirect URL. Non-2xx statuses are errors.
func (s *Service) fetchPage(ctx context.Context, pageURL string, timeout time.Duration) (string, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "nl-NL,nl;q=0.9,de;q=0.8,en;q=0.7")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", "", err
	}
	return string(body), resp.Request.URL.String(), nil
}

// contactLinks returns up to maxContactPages same-domain contact/about
// links from the homepage, in document order.
func contactLinks(doc *goquery.Document, base *url.URL) []string {
	if base == nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Host != base.Host || !contactLinkRegex.MatchString(abs.Path) {
			return true
		}
		abs.Fragment = ""
		key := abs.String()
		if seen[key] {
			return true
		}
		seen[key] = true
		links = append(links, key)
		return len(links) < maxContactPages
	})
	return links
}
