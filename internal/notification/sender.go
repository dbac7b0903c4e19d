// Package notification delivers customer-facing messages. Delivery is
// best-effort: workflow callers log failures and move on.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sender delivers a message to a recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Email is one recorded outbound message.
type Email struct {
	To        string
	Subject   string
	Body      string
	From      string
	MessageID string
	SentAt    time.Time
}

// MemorySender records messages instead of delivering them. It stands in for
// a real provider in development and tests.
type MemorySender struct {
	from   string
	logger zerolog.Logger

	mu     sync.Mutex
	emails []Email
}

// NewMemorySender creates a recording sender.
func NewMemorySender(from string, logger zerolog.Logger) *MemorySender {
	if from == "" {
		from = "noreply@shophub.com"
	}
	return &MemorySender{
		from:   from,
		logger: logger.With().Str("component", "email-sender").Logger(),
	}
}

// Send records the message.
func (s *MemorySender) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient is required")
	}

	email := Email{
		To:        to,
		Subject:   subject,
		Body:      body,
		From:      s.from,
		MessageID: fmt.Sprintf("msg_%s", uuid.NewString()),
		SentAt:    time.Now(),
	}

	s.mu.Lock()
	s.emails = append(s.emails, email)
	s.mu.Unlock()

	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("message_id", email.MessageID).
		Msg("email sent")

	return nil
}

// Sent returns a copy of every recorded message.
func (s *MemorySender) Sent() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Email, len(s.emails))
	copy(out, s.emails)
	return out
}

// Clear discards the recorded messages.
func (s *MemorySender) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = nil
}
