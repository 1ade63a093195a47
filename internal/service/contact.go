package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/xid"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/mailer"
	"github.com/sakif/portfolio-api/internal/model"
)

// ContactConfig holds the envelope addresses for relayed messages.
type ContactConfig struct {
	From string
	To   string
}

// ContactService relays contact-form submissions to the site owner's inbox.
type ContactService struct {
	sender mailer.Sender // nil when no mail provider key is configured
	cfg    ContactConfig
	clock  clockwork.Clock
	logger *slog.Logger
}

func NewContactService(sender mailer.Sender, cfg ContactConfig, clock clockwork.Clock, logger *slog.Logger) *ContactService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ContactService{sender: sender, cfg: cfg, clock: clock, logger: logger}
}

// Send validates msg, renders the notification and hands it to the mail
// provider. It returns the provider's message ID.
func (s *ContactService) Send(ctx context.Context, msg model.ContactMessage) (string, error) {
	msg = withContactDefaults(msg)
	if (msg.Email == "" && msg.LinkedInURL == "") || msg.Message == "" {
		return "", apperror.ValidationFailed("message", "Missing required fields")
	}
	if s.sender == nil {
		return "", apperror.NotConfigured("Email service not configured")
	}

	// Correlates our logs with the provider's; not sent anywhere.
	ref := xid.New().String()

	html, err := mailer.RenderContact(mailer.ContactView{
		Role:        msg.Role,
		Name:        msg.Name,
		Email:       msg.Email,
		LinkedInURL: msg.LinkedInURL,
		ReplyVia:    msg.ReplyVia,
		Message:     msg.Message,
		UserAgent:   msg.Meta.UserAgent,
		Timestamp:   s.timestamp(msg.Meta.Timestamp),
	})
	if err != nil {
		return "", fmt.Errorf("service/contact: %w", err)
	}

	id, err := s.sender.Send(ctx, mailer.Email{
		From:    s.cfg.From,
		To:      []string{s.cfg.To},
		Subject: "[Contact] " + msg.Subject,
		HTML:    html,
		ReplyTo: msg.Email,
	})
	if err != nil {
		s.logger.Error("contact email failed",
			slog.String("ref", ref),
			slog.String("error", err.Error()),
		)
		return "", apperror.Internal("Failed to send email", err)
	}

	s.logger.Info("contact email sent",
		slog.String("ref", ref),
		slog.String("id", id),
		slog.String("role", msg.Role),
	)
	return id, nil
}

func withContactDefaults(msg model.ContactMessage) model.ContactMessage {
	msg.Email = strings.TrimSpace(msg.Email)
	msg.LinkedInURL = strings.TrimSpace(msg.LinkedInURL)
	if msg.Role == "" {
		msg.Role = "General"
	}
	if msg.Subject == "" {
		msg.Subject = "Message"
	}
	if msg.ReplyVia == "" {
		msg.ReplyVia = "Email"
	}
	return msg
}

// timestamp renders the browser-supplied ts, or now in unix millis.
func (s *ContactService) timestamp(ts any) string {
	switch v := ts.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		if v != 0 {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return strconv.FormatInt(s.clock.Now().UnixMilli(), 10)
}
