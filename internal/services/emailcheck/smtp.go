package emailcheck

import (
	"context"
	"net"
	"net/textproto"
	"time"
)

// probeOutcome is the result of the SMTP RCPT probe.
type probeOutcome int

const (
	probeInconclusive probeOutcome = iota
	probeExists
	probeRejected
)

type probeFunc func(ctx context.Context, mxHost, email string) probeOutcome

// smtpProbe opens a connection to the MX host on port 25 and walks the
// greeting → EHLO → MAIL FROM → RCPT TO handshake. The whole exchange
// shares one deadline; any timeout, network error or unexpected reply
// is inconclusive rather than a failure.
func (v *Validator) smtpProbe(ctx context.Context, mxHost, email string) probeOutcome {
	deadline := time.Now().Add(v.smtpTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(mxHost, "25"))
	if err != nil {
		return probeInconclusive
	}
	defer conn.Close()
	conn.SetDeadline(deadline)

	text := textproto.NewConn(conn)
	defer text.Close()

	// Server greeting.
	if _, _, err := text.ReadResponse(220); err != nil {
		return probeInconclusive
	}

	if code := v.command(text, 250, "EHLO %s", v.heloDomain); code != 250 {
		return probeInconclusive
	}
	if code := v.command(text, 250, "MAIL FROM:<%s>", v.mailFrom); code != 250 {
		return probeInconclusive
	}

	code := v.command(text, 0, "RCPT TO:<%s>", email)
	switch code {
	case 250, 251:
		return probeExists
	case 550, 551, 553:
		return probeRejected
	default:
		return probeInconclusive
	}
}

// command writes one SMTP command and returns the reply code, or 0 on
// error. expectCode 0 accepts any reply.
func (v *Validator) command(text *textproto.Conn, expectCode int, format string, args ...interface{}) int {
	id, err := text.Cmd(format, args...)
	if err != nil {
		return 0
	}
	text.StartResponse(id)
	defer text.EndResponse(id)

	code, _, err := text.ReadResponse(expectCode)
	if err != nil {
		if protoErr, ok := err.(*textproto.Error); ok {
			return protoErr.Code
		}
		return 0
	}
	return code
}
