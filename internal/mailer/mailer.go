package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/carelog/carelog/internal/config"
)

// Message is an outbound transactional e-mail.
type Message struct {
	To      string
	Subject string
	HTML    string
	ReplyTo string
}

// Mailer delivers transactional e-mail. Delivery failures are never
// fatal to the operation that triggered them; callers log and continue.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type resendMailer struct {
	client *resend.Client
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewResendMailer builds a Resend-backed mailer. In test mode messages
// are logged instead of sent.
func NewResendMailer(cfg config.EmailConfig, logger *zap.Logger) Mailer {
	var client *resend.Client
	if cfg.APIKey != "" {
		client = resend.NewClient(cfg.APIKey)
	}
	return &resendMailer{client: client, cfg: cfg, logger: logger}
}

func (m *resendMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("missing recipient")
	}
	if m.cfg.TestMode {
		m.logger.Info("email suppressed (test mode)",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject))
		return nil
	}
	if m.client == nil {
		return errors.New("EMAIL_API_KEY not configured")
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	replyTo := msg.ReplyTo
	if replyTo == "" {
		replyTo = m.cfg.ReplyTo
	}
	if replyTo != "" {
		params.ReplyTo = replyTo
	}

	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	m.logger.Debug("email sent", zap.String("to", msg.To), zap.String("id", sent.Id))
	return nil
}
