package common

import (
	"net/url"
	"strings"
)

// validTLDs are the top-level domains accepted into the fetch pipeline.
var validTLDs = []string{".nl", ".be", ".de", ".com", ".eu", ".net", ".org", ".biz", ".info"}

// noiseDomains are well-known social, marketplace, job-board, CDN and
// dev-platform hosts that never yield company leads. Matching is exact
// or suffix after a dot.
var noiseDomains = []string{
	// social
	"facebook.com", "instagram.com", "twitter.com", "x.com", "linkedin.com",
	"youtube.com", "tiktok.com", "pinterest.com", "reddit.com", "snapchat.com",
	"threads.net", "whatsapp.com", "telegram.org", "medium.com", "tumblr.com",
	// marketplaces and directories
	"marktplaats.nl", "bol.com", "amazon.com", "amazon.nl", "amazon.de",
	"ebay.com", "ebay.nl", "ebay.de", "alibaba.com", "aliexpress.com",
	"etsy.com", "zalando.nl", "tripadvisor.com", "booking.com", "yelp.com",
	"trustpilot.com", "kvk.nl", "telefoonboek.nl", "openingstijden.nl",
	"drimble.nl", "oozo.nl", "cylex.nl", "gelbeseiten.de", "goudengids.be",
	// job boards
	"indeed.com", "indeed.nl", "glassdoor.com", "glassdoor.nl", "monsterboard.nl",
	"nationalevacaturebank.nl", "werk.nl", "jobbird.com", "stepstone.de",
	"stepstone.nl", "vacatures.nl", "intermediair.nl",
	// reference and news
	"wikipedia.org", "wikimedia.org", "wiktionary.org", "nu.nl", "nos.nl",
	"telegraaf.nl", "ad.nl", "volkskrant.nl",
	// dev platforms and CDNs
	"github.com", "gitlab.com", "bitbucket.org", "stackoverflow.com",
	"cloudflare.com", "cloudfront.net", "akamaihd.net", "googleapis.com",
	"gstatic.com", "googleusercontent.com", "wordpress.com", "wix.com",
	"squarespace.com", "shopify.com", "blogspot.com", "google.com",
	"google.nl", "microsoft.com", "apple.com", "archive.org", "vimeo.com",
}

// NormalizeDomain lowercases a host or URL and strips the scheme, any
// path, a leading "www." and any port. Idempotent: normalizing an
// already-normalized domain returns it unchanged.
func NormalizeDomain(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			s = u.Host
		}
	}

	// Strip any path fragment left over from schemeless URLs.
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}

	s = strings.TrimPrefix(s, "www.")
	return strings.Trim(s, ".")
}

// HasValidTLD reports whether the normalized domain ends in one of the
// accepted top-level domains.
func HasValidTLD(domain string) bool {
	for _, tld := range validTLDs {
		if strings.HasSuffix(domain, tld) {
			return true
		}
	}
	return false
}

// IsNoiseDomain reports whether the normalized domain is a known noise
// host. The match is exact or a suffix after a dot, so sub.facebook.com
// is noise but notfacebook.com is not.
func IsNoiseDomain(domain string) bool {
	for _, noise := range noiseDomains {
		if domain == noise || strings.HasSuffix(domain, "."+noise) {
			return true
		}
	}
	return false
}
