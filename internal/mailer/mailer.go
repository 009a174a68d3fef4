// Package mailer provides functionality to send emails over SMTP. The
// default configuration targets Mailtrap (smtp.mailtrap.io), which is useful
// for development and testing environments.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends mail through a single SMTP server.
type Mailer struct {
	host string
	port string
	user string
	pass string
}

// New creates a Mailer for the given SMTP server and credentials.
func New(host, port, user, pass string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass}
}

// Send sends an email. The Content-Type is inferred from the body: basic
// HTML tags switch it to text/html, anything else is sent as plain text.
func (m *Mailer) Send(recipient, sender, subject, body string) error {
	if recipient == "" {
		return fmt.Errorf("recipient email address cannot be empty")
	}
	if sender == "" {
		return fmt.Errorf("sender email address cannot be empty")
	}
	if subject == "" {
		return fmt.Errorf("email subject cannot be empty")
	}
	if m.user == "" || m.pass == "" {
		return fmt.Errorf("SMTP username and password must be provided")
	}

	contentType := "text/plain; charset=UTF-8"
	lower := strings.ToLower(body)
	if strings.Contains(lower, "<html>") || strings.Contains(lower, "<p>") {
		contentType = "text/html; charset=UTF-8"
	}

	message := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: %s\r\n"+
		"\r\n"+
		"%s\r\n", recipient, sender, subject, contentType, body))

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, sender, []string{recipient}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
