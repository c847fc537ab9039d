package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/DukeRupert/folio/internal/metrics"
	"github.com/google/uuid"
)

//go:embed templates/*.html
var templateFS embed.FS

// base64LineLength is the RFC 2045 limit for encoded lines.
const base64LineLength = 76

// =============================================================================
// SMTP Dispatcher Implementation
// =============================================================================

// SMTPDispatcher sends artifact emails via SMTP.
type SMTPDispatcher struct {
	config    SMTPConfig
	templates *template.Template
	logger    *slog.Logger

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPDispatcher creates a Dispatcher using the embedded templates.
func NewSMTPDispatcher(config SMTPConfig, logger *slog.Logger) (*SMTPDispatcher, error) {
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &SMTPDispatcher{
		config:    config,
		templates: templates,
		logger:    logger,
		sendMail:  smtp.SendMail,
	}, nil
}

// SendArtifact emails the artifact as an attachment.
func (s *SMTPDispatcher) SendArtifact(ctx context.Context, msg ArtifactEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := map[string]interface{}{
		"Name":     msg.Name,
		"Filename": msg.Filename,
		"Year":     time.Now().Year(),
	}

	htmlBody, err := s.renderTemplate("artifact.html", data)
	if err != nil {
		return fmt.Errorf("failed to render artifact email template: %w", err)
	}

	name := msg.Name
	if name == "" {
		name = "there"
	}
	textBody := fmt.Sprintf(`Hi %s,

Your resume is attached to this email as %s.

Good luck with your application!

The Folio Team
`, name, msg.Filename)

	return s.send(ctx, Email{
		To:       msg.To,
		Subject:  "Your resume PDF",
		HTMLBody: htmlBody,
		TextBody: textBody,
		Attachments: []Attachment{{
			Filename:    msg.Filename,
			ContentType: msg.ContentType,
			Base64Data:  msg.Base64Data,
		}},
	})
}

// =============================================================================
// Internal Methods
// =============================================================================

// send sends an email via SMTP.
func (s *SMTPDispatcher) send(ctx context.Context, email Email) error {
	msg := s.buildMessage(email)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	// Create auth if credentials are provided (not needed for Mailhog)
	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if err := s.sendMail(addr, auth, s.config.From, []string{email.To}, msg); err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		s.logger.Error("failed to send email",
			"to", email.To,
			"subject", email.Subject,
			"error", err,
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	metrics.EmailsSent.WithLabelValues("sent").Inc()
	s.logger.Info("email sent",
		"to", email.To,
		"subject", email.Subject,
		"attachments", len(email.Attachments),
	)
	return nil
}

// buildMessage constructs the raw message: a multipart/mixed envelope
// holding the text/HTML alternative and each attachment.
func (s *SMTPDispatcher) buildMessage(email Email) []byte {
	var buf bytes.Buffer

	mixed := "folio-mixed-" + uuid.NewString()
	alt := "folio-alt-" + uuid.NewString()

	buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.From))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", mixed))
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", mixed))
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", alt))
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", alt))
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.TextBody)
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", alt))
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.HTMLBody)
	buf.WriteString("\r\n")
	buf.WriteString(fmt.Sprintf("--%s--\r\n", alt))

	for _, a := range email.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		buf.WriteString(fmt.Sprintf("--%s\r\n", mixed))
		buf.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", contentType, a.Filename))
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		buf.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n", a.Filename))
		buf.WriteString("\r\n")
		writeWrapped(&buf, a.Base64Data, base64LineLength)
	}

	buf.WriteString(fmt.Sprintf("--%s--\r\n", mixed))
	return buf.Bytes()
}

func writeWrapped(buf *bytes.Buffer, s string, width int) {
	for len(s) > width {
		buf.WriteString(s[:width])
		buf.WriteString("\r\n")
		s = s[width:]
	}
	if s != "" {
		buf.WriteString(s)
		buf.WriteString("\r\n")
	}
}

// renderTemplate renders an email template with the given data.
func (s *SMTPDispatcher) renderTemplate(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var _ Dispatcher = (*SMTPDispatcher)(nil)
