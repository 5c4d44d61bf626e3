package fetcher

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxEmails         = 5
	maxDescriptionLen = 300
	maxCompanyNameLen = 80
)

var emailRegex = regexp.MustCompile(`[\w.+\-]+@[\w.\-]+\.[a-zA-Z]{2,}`)

// assetExtensions reject image/style filenames that the email regex
// picks up from srcset and inline CSS.
var assetExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
	".css", ".js", ".woff", ".woff2", ".ttf",
}

// serviceEmailHosts are infrastructure domains that appear in page
// source but never belong to the company.
var serviceEmailHosts = []string{
	"sentry", "wixpress", "example.com", "example.org", "domain.com",
	"yourdomain", "sentry-next", "cloudfront", "googleapis",
}

// preferredLocals rank role addresses when no email matches the
// company domain.
var preferredLocals = []string{"info", "contact", "sales", "office", "admin"}

// phoneRegexes are tried in order. The strict +prefix form goes first
// so a bare national "0" prefix cannot match inside an international
// number; the market-specific forms then catch local notation.
var phoneRegexes = []*regexp.Regexp{
	// international
	regexp.MustCompile(`\+[0-9]{1,3}[\s.\-]?[0-9]{4,14}`),
	// NL
	regexp.MustCompile(`(\+31|0031|0)[\s\-]?[1-9][0-9]?([\s\-]?[0-9]){6,8}`),
	// BE
	regexp.MustCompile(`(\+32|0032|0)[\s\-]?[1-9][0-9]?([\s\-]?[0-9]){6,8}`),
	// DE
	regexp.MustCompile(`(\+49|0049|0)[\s\-]?[1-9][0-9]{1,4}([\s\-]?[0-9]){3,8}`),
}

// addressSelectors locate a street address block, tried in order.
var addressSelectors = []string{
	`[itemtype*="PostalAddress"]`,
	"address",
	".address",
	".contact-info",
	`[class*="adres"]`,
}

// titleSeparators split page titles like "Acme BV - Homepage".
var titleSeparators = []string{" - ", " – ", " — ", " | "}

// extractEmails collects, filters and ranks email addresses from the
// raw HTML of every fetched page. Addresses on the company's own
// domain sort first, then preferred role addresses, then the rest in
// discovery order. Capped at maxEmails.
func extractEmails(html, domain string) []string {
	matches := emailRegex.FindAllString(html, -1)

	seen := make(map[string]bool)
	var emails []string
	for _, m := range matches {
		email := strings.ToLower(strings.TrimSuffix(m, "."))
		if seen[email] || !keepEmail(email) {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
	}

	sort.SliceStable(emails, func(i, j int) bool {
		return emailRank(emails[i], domain) < emailRank(emails[j], domain)
	})

	if len(emails) > maxEmails {
		emails = emails[:maxEmails]
	}
	return emails
}

func keepEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	local, host := email[:at], email[at+1:]

	if len(local) > 40 || strings.Contains(email, "..") {
		return false
	}
	for _, ext := range assetExtensions {
		if strings.HasSuffix(host, ext) {
			return false
		}
	}
	for _, svc := range serviceEmailHosts {
		if strings.Contains(host, svc) {
			return false
		}
	}
	return true
}

// emailRank orders candidates: own-domain first, preferred role locals
// second, everything else last.
func emailRank(email, domain string) int {
	at := strings.LastIndex(email, "@")
	local, host := email[:at], email[at+1:]

	if domain != "" && (host == domain || strings.HasSuffix(host, "."+domain)) {
		return 0
	}
	for _, pref := range preferredLocals {
		if local == pref {
			return 1
		}
	}
	return 2
}

// extractPhone returns the first phone number matching the market
// formats, checking national patterns before the generic fallback.
func extractPhone(text string) string {
	for _, re := range phoneRegexes {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// extractCompanyName resolves the company name from the homepage:
// og:site_name, then the first segment of the title, then the first
// h1, falling back to the bare domain.
func extractCompanyName(doc *goquery.Document, domain string) string {
	if name, ok := doc.Find(`meta[property="og:site_name"]`).Attr("content"); ok {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	for _, sep := range titleSeparators {
		if i := strings.Index(title, sep); i > 0 {
			title = title[:i]
			break
		}
	}
	title = strings.TrimSpace(title)
	if title != "" && len(title) < maxCompanyNameLen {
		return title
	}

	h1 := strings.TrimSpace(doc.Find("h1").First().Text())
	if h1 != "" && len(h1) <= maxCompanyNameLen {
		return h1
	}

	return domain
}

// extractDescription prefers the meta description over og:description,
// trimmed to maxDescriptionLen.
func extractDescription(doc *goquery.Document) string {
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	if strings.TrimSpace(desc) == "" {
		desc, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	}

	desc = strings.Join(strings.Fields(desc), " ")
	if len(desc) > maxDescriptionLen {
		desc = desc[:maxDescriptionLen]
	}
	return desc
}

// extractAddress walks the selector cascade and returns the first
// plausible street-address block (10-200 chars).
func extractAddress(doc *goquery.Document) string {
	for _, selector := range addressSelectors {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.Join(strings.Fields(sel.Text()), " ")
			if len(text) >= 10 && len(text) <= 200 {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}
