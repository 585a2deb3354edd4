package mail

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	"user-management-api/internal/domain"
)

type MailgunSender struct {
	client  *mg.MailgunImpl
	from    string
	timeout time.Duration
}

func NewMailgunSender(domainName, apiKey, from string, timeout time.Duration) *MailgunSender {
	return &MailgunSender{
		client:  mg.NewMailgun(domainName, apiKey),
		from:    from,
		timeout: timeout,
	}
}

func (s *MailgunSender) Send(ctx context.Context, m Message) error {
	msg := s.client.NewMessage(s.from, m.Subject, m.Text, m.To)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailgun %s: %w: %w", m.Template, domain.ErrDelivery, err)
	}
	return nil
}
