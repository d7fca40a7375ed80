package email

import (
	"context"
	"errors"
)

// Notifier entrega un mensaje HTML a una direccion de correo.
type Notifier interface {
	Send(ctx context.Context, toEmail, subject, htmlBody string) error
}

var (
	ErrInvalidConfig    = errors.New("invalid email config")
	ErrMissingRecipient = errors.New("to email is required")
)

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Notifier {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _, _, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
