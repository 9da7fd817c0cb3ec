package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/allisson/esign/internal/notification/domain"
)

// SMTPConfig configures SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// BaseURL is the web application address used for the link in each email.
	BaseURL string
}

// Mailer emails a notification to a recipient.
type Mailer interface {
	Send(ctx context.Context, to, name string, event domain.Event) error
}

const emailTemplate = `<html>
<body style="font-family: sans-serif;">
<h2>{{ .Title }}</h2>
<p>Hello {{ .Name }},</p>
<p>{{ .Message }}</p>
{{- if .Link }}
<p><a href="{{ .Link }}">Open in eSign</a></p>
{{- end }}
<p style="color: #888; font-size: small;">{{ .Date }}</p>
</body>
</html>`

var mailTemplate = template.Must(template.New("notification").Parse(emailTemplate))

// SMTPMailer sends notification emails through an SMTP server.
type SMTPMailer struct {
	config SMTPConfig
	sender gomail.Sender
	dialer *gomail.Dialer
}

// NewSMTPMailer creates a mailer that dials the server for every message.
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

// Send renders event and emails it to the given address.
func (m *SMTPMailer) Send(ctx context.Context, to, name string, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := m.render(name, event)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetAddressHeader("To", to, name)
	msg.SetHeader("Subject", fmt.Sprintf("eSign: %s", event.Title))
	msg.SetBody("text/plain", event.Message)
	msg.AddAlternative("text/html", body)

	if m.sender != nil {
		err = gomail.Send(m.sender, msg)
	} else {
		err = m.dialer.DialAndSend(msg)
	}
	if err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) render(name string, event domain.Event) (string, error) {
	data := struct {
		Name    string
		Title   string
		Message string
		Link    string
		Date    string
	}{
		Name:    name,
		Title:   event.Title,
		Message: event.Message,
		Link:    m.link(event),
		Date:    event.OccurredAt.Format("02/01/2006 15:04 MST"),
	}

	var buf bytes.Buffer
	if err := mailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render notification email: %w", err)
	}
	return buf.String(), nil
}

// link points at the signing request the event refers to, when there is one.
func (m *SMTPMailer) link(event domain.Event) string {
	requestID := event.Data["request_id"]
	if m.config.BaseURL == "" || requestID == "" {
		return ""
	}
	return strings.TrimRight(m.config.BaseURL, "/") + "/signing-requests/" + requestID
}
