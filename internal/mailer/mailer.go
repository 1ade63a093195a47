// Package mailer renders and sends contact-form notifications.
//
// Sender is the seam the service depends on; ResendSender is the production
// implementation backed by the Resend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var contactTmpl = template.Must(template.ParseFS(templateFS, "templates/contact.html"))

// Email is one outgoing message.
type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// Sender delivers an Email and returns the provider's message ID.
type Sender interface {
	Send(ctx context.Context, e Email) (string, error)
}

// ContactView is the data the contact template renders. Every field is
// HTML-escaped by html/template; LinkedInURL is additionally URL-sanitised.
type ContactView struct {
	Role        string
	Name        string
	Email       string
	LinkedInURL string
	ReplyVia    string
	Message     string
	UserAgent   string
	Timestamp   string
}

// RenderContact produces the HTML body for a contact notification.
func RenderContact(v ContactView) (string, error) {
	var buf bytes.Buffer
	if err := contactTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("mailer: rendering contact template: %w", err)
	}
	return buf.String(), nil
}

type ResendSender struct {
	client *resend.Client
}

func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey)}
}

func (s *ResendSender) Send(ctx context.Context, e Email) (string, error) {
	req := &resend.SendEmailRequest{
		From:    e.From,
		To:      e.To,
		Subject: e.Subject,
		Html:    e.HTML,
		ReplyTo: e.ReplyTo,
	}
	sent, err := s.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mailer: resend: %w", err)
	}
	return sent.Id, nil
}
