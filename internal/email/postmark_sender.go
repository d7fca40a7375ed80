package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"
)

var ErrPostmarkRejected = errors.New("postmark rejected message")

// PostmarkSender envia correos transaccionales con la API de Postmark.
type PostmarkSender struct {
	client   *postmark.Client
	from     string
	fromName string
}

func NewPostmarkSender(serverToken, accountToken, from, fromName string) (*PostmarkSender, error) {
	if strings.TrimSpace(serverToken) == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("%w: sender email is required", ErrInvalidConfig)
	}
	return &PostmarkSender{
		client:   postmark.NewClient(serverToken, accountToken),
		from:     from,
		fromName: fromName,
	}, nil
}

func (s *PostmarkSender) Send(ctx context.Context, toEmail, subject, htmlBody string) error {
	if strings.TrimSpace(toEmail) == "" {
		return ErrMissingRecipient
	}
	from := s.from
	if strings.TrimSpace(s.fromName) != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.from)
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     from,
		To:       toEmail,
		Subject:  subject,
		HTMLBody: htmlBody,
		Tag:      "auth",
	})
	if err != nil {
		return err
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("%w: %d - %s", ErrPostmarkRejected, resp.ErrorCode, resp.Message)
	}
	return nil
}
