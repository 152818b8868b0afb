package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
	"go.uber.org/zap"
)

// SMTPSender emails issued tickets. Delivery is best effort: failures are
// logged here and never surface into the issuance path.
type SMTPSender struct {
	addr   string
	from   string
	auth   smtp.Auth
	logger *zap.Logger
}

type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from:   cfg.From,
		auth:   auth,
		logger: logger,
	}
}

func (s *SMTPSender) SendTicket(_ context.Context, to string, ticket domain.Ticket, eventTitle string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Your ticket for %s\r\n", eventTitle)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Your ticket code is %s.\r\n", ticket.Code)
	fmt.Fprintf(&b, "Show the QR code TICKET:%s:%s at the entrance.\r\n", ticket.EventID, ticket.Code)

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(b.String())); err != nil {
		s.logger.Warn("ticket email failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err),
		)
		return fmt.Errorf("send ticket email: %w", err)
	}
	return nil
}

// NoopSender is used when SMTP is not configured.
type NoopSender struct {
	logger *zap.Logger
}

func NewNoopSender(logger *zap.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

func (s *NoopSender) SendTicket(_ context.Context, to string, ticket domain.Ticket, _ string) error {
	s.logger.Debug("mail disabled, skipping ticket email",
		zap.String("to", to),
		zap.String("ticket_id", ticket.ID),
	)
	return nil
}
