// Package mail renders and delivers customer notification emails.
package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/support-desk/internal/config"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To        string
	ToName    string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer, or a LogMailer when no SMTP host is set.
func NewMailer(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if cfg.Host == "" {
		logger.Info("SMTP_HOST not set, emails will be logged instead of sent")
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.FromAddress, s.cfg.FromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.PlainBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (l *LogMailer) Send(_ context.Context, msg Message) error {
	l.logger.Info("email suppressed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.PlainBody),
	)
	return nil
}
