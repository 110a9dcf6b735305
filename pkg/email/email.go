package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/nextbite-hq/nextbite-backend/pkg/config"
	"github.com/nextbite-hq/nextbite-backend/pkg/logger"
)

// Sender delivers transactional mail. Services depend on this surface so
// tests can capture outgoing messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	SendAsync(ctx context.Context, msg Message)
}

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// SMTPSender sends mail over plain SMTP with optional auth.
type SMTPSender struct {
	cfg    config.SMTPConfig
	logger *logger.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender builds a sender from config. A missing host disables
// delivery; Send then fails and SendAsync only logs.
func NewSMTPSender(cfg config.SMTPConfig, logg *logger.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logg, send: smtp.SendMail}
}

// Send delivers the message synchronously.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(s.cfg.Host) == "" {
		return errors.New("smtp host not configured")
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("recipient is required")
	}

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	body := buildMIME(s.fromHeader(), to, msg.Subject, msg.HTML)
	if err := s.send(addr, auth, s.cfg.FromEmail, []string{to}, body); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// SendAsync delivers in the background. Failures are logged, never
// propagated; callers must not depend on delivery.
func (s *SMTPSender) SendAsync(ctx context.Context, msg Message) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.Send(ctx, msg); err != nil && s.logger != nil {
			s.logger.Error(s.logger.WithField(ctx, "recipient", "[REDACTED]"), "async email delivery failed", err)
		}
	}()
}

func (s *SMTPSender) fromHeader() string {
	if s.cfg.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	}
	return s.cfg.FromEmail
}

func buildMIME(from, to, subject, html string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}
