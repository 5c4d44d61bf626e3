package emailcheck

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/ternarybob/arbor"
)

func newTestValidator(lookup MXLookupFunc, probe probeFunc) *Validator {
	v := NewValidator(Options{}, arbor.NewLogger())
	if lookup != nil {
		v.lookupMX = lookup
	}
	if probe != nil {
		v.probe = probe
	}
	return v
}

func mxFound(ctx context.Context, domain string) ([]*net.MX, error) {
	return []*net.MX{{Host: "mx2.example.com.", Pref: 20}, {Host: "mx1.example.com.", Pref: 10}}, nil
}

func mxEmpty(ctx context.Context, domain string) ([]*net.MX, error) {
	return nil, nil
}

func mxError(ctx context.Context, domain string) ([]*net.MX, error) {
	return nil, errors.New("lookup timeout")
}

func TestInvalidFormat(t *testing.T) {
	v := newTestValidator(mxFound, nil)

	for _, email := range []string{"", "not-an-email", "a@b", "spaces in@example.com", "@example.com"} {
		res := v.Validate(context.Background(), email, false)
		if res.Valid || res.Score != 0 || res.Reason != ReasonInvalidFormat {
			t.Errorf("Validate(%q) = %+v, want invalid_format score 0", email, res)
		}
	}
}

func TestDisposableDomain(t *testing.T) {
	v := newTestValidator(mxFound, nil)

	res := v.Validate(context.Background(), "x@mailinator.com", false)
	if res.Valid || res.Score != 0 || res.Reason != ReasonDisposableDomain {
		t.Errorf("Validate(x@mailinator.com) = %+v, want disposable_domain score 0", res)
	}
}

func TestServiceDomain(t *testing.T) {
	v := newTestValidator(mxFound, nil)

	res := v.Validate(context.Background(), "bounce@mail.sentry.io", false)
	if res.Valid || res.Reason != ReasonServiceDomain {
		t.Errorf("Validate(service host) = %+v, want service_domain", res)
	}
}

func TestShallowGenericAddress(t *testing.T) {
	v := newTestValidator(mxFound, nil)

	res := v.Validate(context.Background(), "info@example-corp.com", false)
	if !res.Valid || res.Score != 70 || res.Reason != ReasonGenericAddress {
		t.Errorf("Validate(info@...) = %+v, want valid score 70 generic_address", res)
	}
}

func TestShallowMXVerified(t *testing.T) {
	v := newTestValidator(mxFound, nil)

	res := v.Validate(context.Background(), "jan.devries@example-corp.com", false)
	if !res.Valid || res.Score != 85 || res.Reason != ReasonMXVerified {
		t.Errorf("Validate(personal@...) = %+v, want valid score 85 mx_verified", res)
	}
}

func TestNoMXRecords(t *testing.T) {
	v := newTestValidator(mxEmpty, nil)

	res := v.Validate(context.Background(), "info@example-corp.com", false)
	if res.Valid || res.Score != 10 || res.Reason != ReasonNoMXRecords {
		t.Errorf("Validate with empty MX = %+v, want invalid score 10 no_mx_records", res)
	}
}

func TestDNSLookupFailed(t *testing.T) {
	v := newTestValidator(mxError, nil)

	res := v.Validate(context.Background(), "info@example-corp.com", false)
	if res.Valid || res.Score != 20 || res.Reason != ReasonDNSLookupFailed {
		t.Errorf("Validate with DNS error = %+v, want invalid score 20 dns_lookup_failed", res)
	}
}

func TestDeepValidation(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		outcome    probeOutcome
		wantValid  bool
		wantScore  int
		wantReason string
	}{
		{"exists personal", "jan@example-corp.com", probeExists, true, 95, ReasonSMTPVerified},
		{"exists generic", "info@example-corp.com", probeExists, true, 75, ReasonSMTPVerified},
		{"rejected", "jan@example-corp.com", probeRejected, false, 15, ReasonSMTPRejected},
		{"inconclusive personal", "jan@example-corp.com", probeInconclusive, true, 85, ReasonSMTPInconclusive},
		{"inconclusive generic", "info@example-corp.com", probeInconclusive, true, 70, ReasonSMTPInconclusive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var probedHost string
			v := newTestValidator(mxFound, func(ctx context.Context, host, email string) probeOutcome {
				probedHost = host
				return tt.outcome
			})

			res := v.Validate(context.Background(), tt.email, true)
			if res.Valid != tt.wantValid || res.Score != tt.wantScore || res.Reason != tt.wantReason {
				t.Errorf("Validate = %+v, want {%v %d %s}", res, tt.wantValid, tt.wantScore, tt.wantReason)
			}
			if probedHost != "mx1.example.com" {
				t.Errorf("probed host %q, want lowest-preference mx1.example.com", probedHost)
			}
		})
	}
}

func TestScoreMonotoneInQuality(t *testing.T) {
	ctx := context.Background()

	regexFail := newTestValidator(mxFound, nil).Validate(ctx, "bad", false).Score
	noMX := newTestValidator(mxEmpty, nil).Validate(ctx, "jan@x-corp.nl", false).Score
	dnsFail := newTestValidator(mxError, nil).Validate(ctx, "jan@x-corp.nl", false).Score
	mxOnly := newTestValidator(mxFound, nil).Validate(ctx, "jan@x-corp.nl", false).Score
	smtpOK := newTestValidator(mxFound, func(ctx context.Context, h, e string) probeOutcome {
		return probeExists
	}).Validate(ctx, "jan@x-corp.nl", true).Score

	if !(regexFail < noMX && noMX < dnsFail && dnsFail < mxOnly && mxOnly < smtpOK) {
		t.Errorf("score ladder broken: %d < %d < %d < %d < %d expected",
			regexFail, noMX, dnsFail, mxOnly, smtpOK)
	}
}
