package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/config"
)

// Email is one outbound message.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends emails. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(email Email) error
}

// SMTPMailer sends multipart text+html mail over authenticated SMTP. When no
// host is configured it logs the message instead, so local development works
// without a mail server.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer creates an SMTPMailer from config.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

const mimeBoundary = "----=_BOOKING_EMAIL_BOUNDARY"

// Send delivers one email.
func (m *SMTPMailer) Send(email Email) error {
	if m.cfg.Host == "" {
		m.logger.Info("mock email send (no SMTP host configured)",
			zap.String("to", email.To),
			zap.String("subject", email.Subject),
		)
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", email.To)
	fmt.Fprintf(&body, "Subject: %s\r\n", sanitizeHeader(email.Subject))
	body.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&body, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	body.WriteString("\r\n")

	fmt.Fprintf(&body, "--%s\r\n", mimeBoundary)
	body.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	body.WriteString(email.Text)
	body.WriteString("\r\n")

	fmt.Fprintf(&body, "--%s\r\n", mimeBoundary)
	body.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	body.WriteString(email.HTML)
	body.WriteString("\r\n")

	fmt.Fprintf(&body, "--%s--\r\n", mimeBoundary)

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.Username, []string{email.To}, []byte(body.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// sanitizeHeader strips CRLF to prevent header injection.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
