package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/mailer"
	"github.com/sakif/portfolio-api/internal/model"
)

type fakeSender struct {
	id   string
	err  error
	sent []mailer.Email
}

func (f *fakeSender) Send(ctx context.Context, e mailer.Email) (string, error) {
	f.sent = append(f.sent, e)
	return f.id, f.err
}

var contactCfg = ContactConfig{From: "site@example.com", To: "me@example.com"}

func newContactService(sender mailer.Sender) (*ContactService, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1714550400000))
	return NewContactService(sender, contactCfg, clock, discardLogger()), clock
}

func TestContact_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		msg  model.ContactMessage
	}{
		{name: "no contact channel", msg: model.ContactMessage{Message: "hi"}},
		{name: "no message", msg: model.ContactMessage{Email: "a@b.c"}},
		{name: "blank email only", msg: model.ContactMessage{Email: "   ", Message: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			svc, _ := newContactService(sender)

			_, err := svc.Send(context.Background(), tt.msg)

			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.EqualError(t, err, "Missing required fields")
			assert.Empty(t, sender.sent)
		})
	}
}

func TestContact_NotConfigured(t *testing.T) {
	svc, _ := newContactService(nil)

	_, err := svc.Send(context.Background(), model.ContactMessage{Email: "a@b.c", Message: "hi"})

	assert.ErrorIs(t, err, apperror.ErrNotConfigured)
	assert.EqualError(t, err, "Email service not configured")
}

func TestContact_SendsWithDefaults(t *testing.T) {
	sender := &fakeSender{id: "msg_123"}
	svc, _ := newContactService(sender)

	id, err := svc.Send(context.Background(), model.ContactMessage{
		Name:    "Ada",
		Email:   "ada@example.com",
		Message: "Let's talk",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_123", id)

	require.Len(t, sender.sent, 1)
	e := sender.sent[0]
	assert.Equal(t, "site@example.com", e.From)
	assert.Equal(t, []string{"me@example.com"}, e.To)
	assert.Equal(t, "[Contact] Message", e.Subject)
	assert.Equal(t, "ada@example.com", e.ReplyTo)
	assert.Contains(t, e.HTML, "<strong>Role:</strong> General")
	assert.Contains(t, e.HTML, "<strong>Reply via:</strong> Email")
	assert.Contains(t, e.HTML, "Timestamp: 1714550400000", "falls back to now in millis")
}

func TestContact_LinkedInOnly(t *testing.T) {
	sender := &fakeSender{id: "x"}
	svc, _ := newContactService(sender)

	_, err := svc.Send(context.Background(), model.ContactMessage{
		LinkedInURL: "https://www.linkedin.com/in/ada",
		Role:        "Recruiter",
		Subject:     "Role",
		ReplyVia:    "LinkedIn",
		Message:     "hi",
		Meta:        model.ContactMeta{UserAgent: "Mozilla/5.0", Timestamp: "2024-05-01T08:00:00Z"},
	})
	require.NoError(t, err)

	e := sender.sent[0]
	assert.Equal(t, "[Contact] Role", e.Subject)
	assert.Empty(t, e.ReplyTo, "no reply-to without an email")
	assert.Contains(t, e.HTML, "User-Agent: Mozilla/5.0")
	assert.Contains(t, e.HTML, "Timestamp: 2024-05-01T08:00:00Z")
}

func TestContact_NumericTimestamp(t *testing.T) {
	sender := &fakeSender{}
	svc, _ := newContactService(sender)

	_, err := svc.Send(context.Background(), model.ContactMessage{
		Email:   "a@b.c",
		Message: "hi",
		Meta:    model.ContactMeta{Timestamp: float64(1700000000123)},
	})
	require.NoError(t, err)

	assert.Contains(t, sender.sent[0].HTML, "Timestamp: 1700000000123")
}

func TestContact_ProviderFailure(t *testing.T) {
	svc, _ := newContactService(&fakeSender{err: errors.New("422 invalid from")})

	_, err := svc.Send(context.Background(), model.ContactMessage{Email: "a@b.c", Message: "hi"})

	assert.ErrorIs(t, err, apperror.ErrInternal)
	assert.EqualError(t, err, "Failed to send email")
}
