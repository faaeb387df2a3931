// Package email delivers transactional mail over the configured SMTP server.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"time"

	"crmlink_backend/internal/config"

	gomail "github.com/wneessen/go-mail"
)

const subjectWelcome = "Welcome"

// Sender delivers account emails. A nil-safe no-op implementation is used
// when SMTP is not configured.
type Sender interface {
	SendWelcomeEmail(ctx context.Context, toEmail string) error
}

// NewSender picks the sender implementation from configuration.
func NewSender(cfg *config.Config) Sender {
	if !cfg.EmailEnabled {
		return NoopSender{}
	}
	return &SMTPSender{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		fromName:  cfg.EmailFromName,
		fromEmail: cfg.EmailFromAddress,
	}
}

// NoopSender silently drops all mail.
type NoopSender struct{}

func (NoopSender) SendWelcomeEmail(context.Context, string) error { return nil }

// SMTPSender delivers mail via a direct SMTP connection using go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func (s *SMTPSender) SendWelcomeEmail(ctx context.Context, toEmail string) error {
	content, err := renderTemplate(welcomeTemplate, welcomeData{Email: toEmail})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectWelcome, content)
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

type welcomeData struct {
	Email string
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Welcome</h2>
  <p>Your account {{.Email}} has been created.</p>
  <p>You can now sign in and submit personal data for CRM processing.</p>
</body>
</html>`))

func renderTemplate(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template: %w", err)
	}
	return buf.String(), nil
}
