package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSupportUnavailable is returned when the support inbox or sender is
	// not configured.
	ErrSupportUnavailable = errors.New("support mail is not configured")
	// ErrMailDelivery wraps SMTP failures.
	ErrMailDelivery = errors.New("support mail delivery failed")
)

// supportService implements SupportService over an injected Mailer.
type supportService struct {
	mailer Mailer
	inbox  string
	sender string
	logger *zap.Logger
}

// NewSupportService creates the support ticket service.
func NewSupportService(mailer Mailer, inbox, sender string, logger *zap.Logger) SupportService {
	return &supportService{
		mailer: mailer,
		inbox:  inbox,
		sender: sender,
		logger: logger,
	}
}

// SendTicket forwards a user message to the support inbox and returns the
// assigned ticket id.
func (s *supportService) SendTicket(ctx context.Context, email, subject, message string) (string, error) {
	if s.mailer == nil || s.inbox == "" || s.sender == "" {
		return "", ErrSupportUnavailable
	}

	ticketID := uuid.NewString()
	body := fmt.Sprintf("Ticket: %s\nFrom: %s\n\n%s", ticketID, email, message)

	if err := s.mailer.Send(s.inbox, s.sender, "[Support] "+subject, body); err != nil {
		s.logger.Error("Support mail delivery failed",
			zap.String("ticketId", ticketID), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	s.logger.Info("Support ticket sent",
		zap.String("ticketId", ticketID), zap.String("from", email))
	return ticketID, nil
}
