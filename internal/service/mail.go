package service

import (
	"context"
	"fmt"

	"midas/reimbursehub/internal/config"
)

type MailSender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// NewMailSender returns the configured provider, or nil when mail is disabled.
func NewMailSender(cfg config.MailConfig) (MailSender, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "smtp":
		return NewSMTPSender(cfg.SMTP)
	case "sendgrid":
		return NewSendGridSender(cfg.SendGrid)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
