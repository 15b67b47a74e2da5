// Package mailer delivers the email fallback for users without a registered
// device.
package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/HammerMeetNail/widgetshare/internal/config"
	"github.com/HammerMeetNail/widgetshare/internal/logging"
)

type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// New picks the provider named in cfg.
func New(cfg config.EmailConfig, logger *logging.Logger) Mailer {
	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	if cfg.Provider == "resend" {
		return NewResendMailer(cfg.ResendAPIKey, from)
	}
	return NewConsoleMailer(from, logger)
}

type resendSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendMailer struct {
	emails resendSender
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	client := resend.NewClient(apiKey)
	return &ResendMailer{emails: client.Emails, from: from}
}

func (m *ResendMailer) Send(ctx context.Context, email Email) error {
	if strings.TrimSpace(email.To) == "" {
		return fmt.Errorf("sending email: empty recipient")
	}
	_, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	})
	if err != nil {
		return fmt.Errorf("sending email via resend: %w", err)
	}
	return nil
}

// ConsoleMailer logs emails instead of sending them.
type ConsoleMailer struct {
	from   string
	logger *logging.Logger
}

func NewConsoleMailer(from string, logger *logging.Logger) *ConsoleMailer {
	if logger == nil {
		logger = logging.Default
	}
	return &ConsoleMailer{from: from, logger: logger}
}

func (m *ConsoleMailer) Send(ctx context.Context, email Email) error {
	m.logger.Info("Email (console)", map[string]interface{}{
		"from":    m.from,
		"to":      email.To,
		"subject": email.Subject,
		"text":    email.Text,
	})
	return nil
}

// BuildFriendRequestEmail returns subject, html and text bodies.
func BuildFriendRequestEmail(fromName string) (string, string, string) {
	subject := fmt.Sprintf("%s sent you a friend request", fromName)
	safeName := html.EscapeString(fromName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>%s</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #222;">
  <h2>New friend request</h2>
  <p><strong>%s</strong> wants to share widgets and photos with you.</p>
  <p>Open the app to accept or decline.</p>
  <p style="color: #888; font-size: 12px;">You are receiving this because email notifications are enabled in your preferences.</p>
</body>
</html>`, html.EscapeString(subject), safeName)

	text := fmt.Sprintf("%s wants to share widgets and photos with you.\n\nOpen the app to accept or decline.\n\nYou are receiving this because email notifications are enabled in your preferences.\n", fromName)
	return subject, htmlBody, text
}
