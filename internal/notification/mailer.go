package notification

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer delivers e-mail notifications
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates a mailer for the given relay. from is used as the
// sender address.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// NopMailer discards mail when SMTP is not configured
type NopMailer struct{}

func (NopMailer) Send(string, string, string) error { return nil }
