// Package emailcheck implements the tiered email validator: syntax,
// disposable/service filtering, MX lookup and an optional SMTP probe.
// Validation never returns an error; every internal failure maps to a
// reason string with Valid=false.
package emailcheck

import (
	"context"
	"net"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// Result is the validation outcome. Score is monotone in quality:
// regex-fail < no-MX < dns-fail < MX-only < SMTP-verified.
type Result struct {
	Valid  bool   `json:"valid"`
	Score  int    `json:"score"` // 0-100
	Reason string `json:"reason"`
}

// Reason strings, ordered roughly by the score ladder.
const (
	ReasonInvalidFormat    = "invalid_format"
	ReasonDisposableDomain = "disposable_domain"
	ReasonServiceDomain    = "service_domain"
	ReasonNoMXRecords      = "no_mx_records"
	ReasonDNSLookupFailed  = "dns_lookup_failed"
	ReasonMXVerified       = "mx_verified"
	ReasonGenericAddress   = "generic_address"
	ReasonSMTPVerified     = "smtp_verified"
	ReasonSMTPRejected     = "smtp_rejected"
	ReasonSMTPInconclusive = "smtp_inconclusive"
	ReasonNoEmailFound     = "no_email_found"
)

// emailRegex is deliberately RFC-lite: pragmatic over exhaustive.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// genericLocalParts flags role addresses; they stay valid but score
// lower.
var genericLocalParts = regexp.MustCompile(`^(info|contact|admin|support|hello|sales|noreply|no-reply|mail|office|service|help|billing|accounts?)$`)

// disposableDomains are throwaway providers that never back a real
// company contact.
var disposableDomains = []string{
	"mailinator.com", "guerrillamail.com", "guerrillamailblock.com",
	"10minutemail.com", "tempmail.com", "temp-mail.org", "throwawaymail.com",
	"yopmail.com", "getnada.com", "maildrop.cc", "dispostable.com",
	"trashmail.com", "fakeinbox.com", "sharklasers.com", "spam4.me",
	"mailnesia.com", "mintemail.com", "mytemp.email", "tempinbox.com",
	"emailondeck.com", "burnermail.io", "spamgourmet.com", "mailcatch.com",
	"inboxkitten.com", "33mail.com",
}

// servicePatterns match infrastructure hosts that leak into scraped
// pages (error trackers, CDN assets, platform mail).
var servicePatterns = []string{
	"sentry", "amazonses", "amazonaws", "cloudfront", "cloudflare",
	"googleapis", "gstatic", "doubleclick", "wixpress", "squarespace",
	"shopify", "sendgrid", "mailgun", "mandrill", "sparkpost",
	"example.com", "example.org", "localhost", "yourdomain", "domain.com",
}

// MXLookupFunc resolves MX records for a domain. Injectable for tests.
type MXLookupFunc func(ctx context.Context, domain string) ([]*net.MX, error)

// Validator runs the staged checks.
type Validator struct {
	mxTimeout   time.Duration
	smtpTimeout time.Duration
	heloDomain  string
	mailFrom    string

	lookupMX MXLookupFunc
	probe    probeFunc
	logger   arbor.ILogger
}

// Options configures a Validator; zero values fall back to defaults.
type Options struct {
	MXTimeout   time.Duration
	SMTPTimeout time.Duration
	HeloDomain  string
	MailFrom    string
}

// NewValidator creates a validator with the default system resolver.
func NewValidator(opts Options, logger arbor.ILogger) *Validator {
	v := &Validator{
		mxTimeout:   opts.MXTimeout,
		smtpTimeout: opts.SMTPTimeout,
		heloDomain:  opts.HeloDomain,
		mailFrom:    opts.MailFrom,
		logger:      logger,
	}
	if v.mxTimeout <= 0 {
		v.mxTimeout = 5 * time.Second
	}
	if v.smtpTimeout <= 0 {
		v.smtpTimeout = 5 * time.Second
	}
	if v.heloDomain == "" {
		v.heloDomain = "captare.local"
	}
	if v.mailFrom == "" {
		v.mailFrom = "verify@captare.local"
	}

	resolver := &net.Resolver{}
	v.lookupMX = resolver.LookupMX
	v.probe = v.smtpProbe
	return v
}

// Validate runs the staged, short-circuiting checks. deep enables the
// SMTP RCPT probe after a successful MX lookup.
func (v *Validator) Validate(ctx context.Context, email string, deep bool) Result {
	email = strings.TrimSpace(strings.ToLower(email))

	if !emailRegex.MatchString(email) {
		return Result{Valid: false, Score: 0, Reason: ReasonInvalidFormat}
	}

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]

	for _, disposable := range disposableDomains {
		if domain == disposable {
			return Result{Valid: false, Score: 0, Reason: ReasonDisposableDomain}
		}
	}

	for _, pattern := range servicePatterns {
		if strings.Contains(domain, pattern) {
			return Result{Valid: false, Score: 0, Reason: ReasonServiceDomain}
		}
	}

	generic := genericLocalParts.MatchString(local)

	mxCtx, cancel := context.WithTimeout(ctx, v.mxTimeout)
	defer cancel()

	records, err := v.lookupMX(mxCtx, domain)
	if err != nil {
		return Result{Valid: false, Score: 20, Reason: ReasonDNSLookupFailed}
	}
	if len(records) == 0 {
		return Result{Valid: false, Score: 10, Reason: ReasonNoMXRecords}
	}

	baseScore := 85
	baseReason := ReasonMXVerified
	if generic {
		baseScore = 70
		baseReason = ReasonGenericAddress
	}

	if !deep {
		return Result{Valid: true, Score: baseScore, Reason: baseReason}
	}

	// Probe the most-preferred MX host (lowest preference value).
	sort.Slice(records, func(i, j int) bool { return records[i].Pref < records[j].Pref })
	host := strings.TrimSuffix(records[0].Host, ".")

	switch v.probe(ctx, host, email) {
	case probeExists:
		score := 95
		if generic {
			score = 75
		}
		return Result{Valid: true, Score: score, Reason: ReasonSMTPVerified}
	case probeRejected:
		return Result{Valid: false, Score: 15, Reason: ReasonSMTPRejected}
	default:
		return Result{Valid: true, Score: baseScore, Reason: ReasonSMTPInconclusive}
	}
}
