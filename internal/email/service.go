// Package email sends workflow notifications via SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// ErrNotConfigured is returned by every send when SMTP settings are absent.
var ErrNotConfigured = errors.New("email not configured")

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

func (s *Service) fromHeader() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	return s.config.From
}

// SendHTMLEmail sends a multipart message with a plain-text fallback.
func (s *Service) SendHTMLEmail(to []string, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if len(to) == 0 {
		return errors.New("no recipients")
	}
	msg := buildMessage(s.fromHeader(), to, subject, textBody, htmlBody)
	return s.send(s.server, s.auth, s.config.From, to, msg)
}

func buildMessage(from string, to []string, subject, textBody, htmlBody string) []byte {
	boundary := "boundary-portal-notice"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", sanitizeHeader(subject))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", textBody)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.Bytes()
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

// RevisionNotice describes a client asking for changes.
type RevisionNotice struct {
	ContentType string
	ItemID      string
	ItemTitle   string
	Status      string
	Reason      string
	RequestedBy string
	PortalURL   string
}

// SendRevisionNotice tells the delivery team a client requested changes.
func (s *Service) SendRevisionNotice(to []string, notice RevisionNotice) error {
	subject := fmt.Sprintf("%s needs revisions: %s", notice.ContentType, firstNonEmpty(notice.ItemTitle, notice.ItemID))
	html, err := renderTemplate(revisionTemplate, notice)
	if err != nil {
		return fmt.Errorf("render revision template: %w", err)
	}
	text := fmt.Sprintf("%s %s was marked %q by %s.\r\nReason: %s",
		notice.ContentType, firstNonEmpty(notice.ItemTitle, notice.ItemID), notice.Status,
		firstNonEmpty(notice.RequestedBy, "a client"), firstNonEmpty(notice.Reason, "(none given)"))
	return s.SendHTMLEmail(to, subject, text, html)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ParseRecipients splits a comma separated address list.
func ParseRecipients(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

var revisionTemplate = template.Must(template.New("revision").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Revisions requested</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .reason { background: #fff3cd; padding: 12px; border-radius: 4px; margin: 20px 0; white-space: pre-wrap; }
        .button { display: inline-block; padding: 12px 24px; background: #0066cc; color: white; text-decoration: none; border-radius: 4px; }
    </style>
</head>
<body>
    <h2>{{.ContentType}} needs revisions</h2>
    <p><strong>{{if .ItemTitle}}{{.ItemTitle}}{{else}}{{.ItemID}}{{end}}</strong> was marked <em>{{.Status}}</em>{{if .RequestedBy}} by {{.RequestedBy}}{{end}}.</p>
    {{if .Reason}}<div class="reason">{{.Reason}}</div>{{end}}
    {{if .PortalURL}}<p><a href="{{.PortalURL}}" class="button">Open in portal</a></p>{{end}}
</body>
</html>`))

func renderTemplate(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
