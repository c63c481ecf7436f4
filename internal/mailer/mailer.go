// Package mailer wraps the SMTP transport used by the notification
// consumer and the daily digest job.  Sending is best-effort: callers
// log failures and move on, they never retry or roll back.
package mailer

import (
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// Sender delivers a plain-text message to a single recipient.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail through a gomail dialer.  When no host is
// configured it degrades to a dry run that only logs the message, so
// development environments work without an SMTP account.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	log    *zap.Logger
}

// NewSMTPSender builds a sender for the given SMTP endpoint.  An empty
// host enables dry-run mode.
func NewSMTPSender(host string, port int, user, pass, from string, log *zap.Logger) *SMTPSender {
	s := &SMTPSender{from: from, log: log}
	if host != "" {
		s.dialer = gomail.NewDialer(host, port, user, pass)
	}
	return s
}

// Send composes and delivers the message.  In dry-run mode the message
// is logged instead of sent and nil is returned.
func (s *SMTPSender) Send(to, subject, body string) error {
	if s.dialer == nil {
		s.log.Info("mail dry run", zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}
