package analyzers

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
)

const (
	vacancyFetchTimeout = 10 * time.Second
	maxVacancyPages     = 2
	maxVacancyHTML      = 20 * 1024
)

// defaultRecruitmentSectors is the built-in taxonomy for the
// recruitment use case.
var defaultRecruitmentSectors = []Sector{
	{
		Key:   "techniek",
		Label: "Techniek & Engineering",
		Queries: []string{
			"technisch bedrijf vacatures engineering",
			"machinebouw bedrijf personeel gezocht",
		},
	},
	{
		Key:   "ict",
		Label: "ICT & Software",
		Queries: []string{
			"softwarebedrijf vacatures developers",
			"it dienstverlener personeel gezocht",
		},
	},
	{
		Key:   "logistiek",
		Label: "Logistiek & Transport",
		Queries: []string{
			"logistiek bedrijf vacatures chauffeurs",
			"transportbedrijf personeel gezocht",
		},
	},
	{
		Key:   "bouw",
		Label: "Bouw & Installatie",
		Queries: []string{
			"bouwbedrijf vacatures monteurs",
			"installatiebedrijf personeel gezocht",
		},
	},
}

// atsPatterns identify hosted applicant-tracking systems by substring
// in the homepage HTML (embed scripts, career-site links).
var atsPatterns = []string{
	"teamtailor", "recruitee", "workable", "greenhouse.io", "lever.co",
	"homerun.co", "bamboohr", "personio", "smartrecruiters", "carerix",
	"otys", "jobvite",
}

// vacancyLinkRegex matches career-section paths on the company's own
// domain.
var vacancyLinkRegex = regexp.MustCompile(`(?i)/(vacatures?|jobs?|careers?|werken-bij|werkenbij|karriere|stellenangebote|stellen|solliciteer)([/?#-]|$)`)

// vacancyTermRegex counts job-opening mentions in the accumulated text.
var vacancyTermRegex = regexp.MustCompile(`(?i)(vacature|functie|job opening|we (zijn op zoek|zoeken)|open position|stellenangebot)`)

// growthKeywords signal an expanding organisation; distinct hits are
// counted.
var growthKeywords = []string{
	"expansie", "uitbreiding", "nieuwe vestiging", "snelgroeiend",
	"scale-up", "expanding", "fast-growing", "nieuw pand",
	"wij groeien", "sterke groei",
}

// hrLocalRegex matches recruitment-oriented local parts of an email
// address.
var hrLocalRegex = regexp.MustCompile(`^(hr|jobs?|careers?|recruitment|vacatures?|werk|talent|people)\b`)

// hrContextRegex matches HR-department mentions in page text.
var hrContextRegex = regexp.MustCompile(`(?i)(hr[ -]?(afdeling|manager|team)|personeelszaken|recruitment ?(team|afdeling))`)

// RecruitmentAnalyzer scores companies on hiring activity: a live
// vacancy section, opening volume, growth language, an HR contact and
// ATS tooling.
type RecruitmentAnalyzer struct {
	sectors *SectorStore
	logger  arbor.ILogger
}

func NewRecruitmentAnalyzer(sectors *SectorStore, logger arbor.ILogger) *RecruitmentAnalyzer {
	return &RecruitmentAnalyzer{sectors: sectors, logger: logger}
}

func (a *RecruitmentAnalyzer) Key() string { return "recruitment" }

func (a *RecruitmentAnalyzer) GenerateQueries(cfg models.JobConfig) []models.QuerySpec {
	return buildQueries(a.sectors.Sectors(), cfg)
}

// FetchExtra crawls the vacancy section: it scans the homepage for ATS
// embeds and same-domain career links, then fetches up to two vacancy
// pages. Fetch failures degrade to an empty result, never an error.
func (a *RecruitmentAnalyzer) FetchExtra(ctx context.Context, baseURL string, fetch interfaces.FetchFunc) (*interfaces.ExtraResult, error) {
	result := &interfaces.ExtraResult{Data: map[string]interface{}{
		"vacancy_page_found": false,
		"ats":                "",
	}}

	base, err := url.Parse(baseURL)
	if err != nil {
		return result, nil
	}

	home, err := fetch(ctx, baseURL, vacancyFetchTimeout)
	if err != nil {
		a.logger.Debug().Err(err).Str("url", baseURL).Msg("Vacancy crawl skipped, homepage fetch failed")
		return result, nil
	}

	lower := strings.ToLower(home)
	for _, pattern := range atsPatterns {
		if strings.Contains(lower, pattern) {
			result.Data["ats"] = pattern
			break
		}
	}

	links := vacancyLinks(home, base)
	if len(links) == 0 {
		return result, nil
	}
	result.Data["vacancy_page_found"] = true
	result.Data["vacancy_urls"] = links

	var texts []string
	for _, link := range links {
		html, err := fetch(ctx, link, vacancyFetchTimeout)
		if err != nil {
			a.logger.Debug().Err(err).Str("url", link).Msg("Vacancy page fetch failed")
			continue
		}
		if len(html) > maxVacancyHTML {
			html = html[:maxVacancyHTML]
		}
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
			texts = append(texts, doc.Text())
		}
	}
	result.Text = strings.Join(texts, "\n")

	return result, nil
}

// vacancyLinks extracts up to maxVacancyPages same-domain career links
// from the homepage HTML, in document order.
func vacancyLinks(html string, base *url.URL) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
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
		if abs.Host != base.Host || !vacancyLinkRegex.MatchString(abs.Path) {
			return true
		}
		abs.Fragment = ""
		key := abs.String()
		if seen[key] {
			return true
		}
		seen[key] = true
		links = append(links, key)
		return len(links) < maxVacancyPages
	})
	return links
}

// Analyze scores the five recruitment dimensions (35/25/20/10/10).
func (a *RecruitmentAnalyzer) Analyze(in interfaces.AnalyzeInput) (*interfaces.AnalyzeResult, error) {
	text := in.Text
	extra := in.Extra
	if extra == nil {
		extra = map[string]interface{}{}
	}

	breakdown := make(map[string]interface{}, 5)
	total := 0

	// Vacancy section present on the company's own domain.
	vacancyFound, _ := extra["vacancy_page_found"].(bool)
	vacancyScore := 0
	if vacancyFound {
		vacancyScore = 35
	}
	total += vacancyScore
	breakdown["vacancy_page"] = map[string]interface{}{
		"score": vacancyScore,
		"max":   35,
		"found": vacancyFound,
	}

	// Opening volume, capped so listing pages don't dominate.
	count := len(vacancyTermRegex.FindAllStringIndex(text, 50))
	countScore := vacancyCountScore(count)
	total += countScore
	breakdown["vacancy_count"] = map[string]interface{}{
		"score": countScore,
		"max":   25,
		"count": count,
	}

	lower := strings.ToLower(text)
	var growthHits []string
	for _, kw := range growthKeywords {
		if strings.Contains(lower, kw) {
			growthHits = append(growthHits, kw)
		}
	}
	growthScore := growthSignalScore(len(growthHits))
	total += growthScore
	if len(growthHits) > 5 {
		growthHits = growthHits[:5]
	}
	breakdown["growth"] = map[string]interface{}{
		"score":   growthScore,
		"max":     20,
		"hits":    len(growthHits),
		"signals": growthHits,
	}

	hrScore := 0
	if hasHRContact(in.Emails, text) {
		hrScore = 10
	}
	total += hrScore
	breakdown["hr_contact"] = map[string]interface{}{
		"score": hrScore,
		"max":   10,
	}

	ats, _ := extra["ats"].(string)
	atsScore := 0
	if ats != "" {
		atsScore = 10
	}
	total += atsScore
	breakdown["ats"] = map[string]interface{}{
		"score":  atsScore,
		"max":    10,
		"vendor": ats,
	}

	if total > 100 {
		total = 100
	}

	return &interfaces.AnalyzeResult{
		Score: total,
		Data: map[string]interface{}{
			"score":     total,
			"breakdown": breakdown,
		},
	}, nil
}

func vacancyCountScore(count int) int {
	switch {
	case count >= 10:
		return 25
	case count >= 5:
		return 18
	case count >= 2:
		return 10
	case count >= 1:
		return 5
	default:
		return 0
	}
}

func growthSignalScore(hits int) int {
	switch {
	case hits >= 3:
		return 20
	case hits == 2:
		return 14
	case hits == 1:
		return 8
	default:
		return 0
	}
}

func hasHRContact(emails []string, text string) bool {
	for _, email := range emails {
		at := strings.Index(email, "@")
		if at > 0 && hrLocalRegex.MatchString(strings.ToLower(email[:at])) {
			return true
		}
	}
	return hrContextRegex.MatchString(text)
}

var _ interfaces.Analyzer = (*RecruitmentAnalyzer)(nil)
