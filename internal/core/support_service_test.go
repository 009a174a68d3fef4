package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMailer struct {
	recipient string
	sender    string
	subject   string
	body      string
	err       error
}

func (f *fakeMailer) Send(recipient, sender, subject, body string) error {
	f.recipient, f.sender, f.subject, f.body = recipient, sender, subject, body
	return f.err
}

func TestSendTicketDeliversToInbox(t *testing.T) {
	mailer := &fakeMailer{}
	service := NewSupportService(mailer, "support@example.com", "noreply@example.com", zap.NewNop())

	ticketID, err := service.SendTicket(context.Background(), "user@example.com", "No sound", "EQ stopped working")
	require.NoError(t, err)
	assert.NotEmpty(t, ticketID)
	assert.Equal(t, "support@example.com", mailer.recipient)
	assert.Equal(t, "noreply@example.com", mailer.sender)
	assert.Equal(t, "[Support] No sound", mailer.subject)
	assert.Contains(t, mailer.body, ticketID)
	assert.Contains(t, mailer.body, "user@example.com")
	assert.Contains(t, mailer.body, "EQ stopped working")
}

func TestSendTicketWithoutInboxConfigured(t *testing.T) {
	service := NewSupportService(&fakeMailer{}, "", "noreply@example.com", zap.NewNop())

	_, err := service.SendTicket(context.Background(), "user@example.com", "Hi", "Help")
	assert.ErrorIs(t, err, ErrSupportUnavailable)
}

func TestSendTicketDeliveryFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp timeout")}
	service := NewSupportService(mailer, "support@example.com", "noreply@example.com", zap.NewNop())

	_, err := service.SendTicket(context.Background(), "user@example.com", "Hi", "Help")
	assert.ErrorIs(t, err, ErrMailDelivery)
}
