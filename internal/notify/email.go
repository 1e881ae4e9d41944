package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// EmailGateway sends plain-text mail over SMTP with STARTTLS.
type EmailGateway struct {
	client *mail.Client
	from   string
}

func NewEmailGateway(cfg Config) (*EmailGateway, error) {
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SMTPUsername),
		mail.WithPassword(cfg.SMTPPassword),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &EmailGateway{client: client, from: cfg.SenderAddress()}, nil
}

func (g *EmailGateway) Send(ctx context.Context, msg Message) bool {
	if msg.Recipient == "" {
		return false
	}
	m, err := g.compose(msg)
	if err != nil {
		slog.WarnContext(ctx, "Invalid email message", "recipient", msg.Recipient, "error", err)
		return false
	}
	if err := g.client.DialAndSendWithContext(ctx, m); err != nil {
		slog.WarnContext(ctx, "Email delivery failed", "recipient", msg.Recipient, "error", err)
		return false
	}
	slog.InfoContext(ctx, "Email sent", "recipient", msg.Recipient)
	return true
}

func (g *EmailGateway) compose(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(g.from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.Recipient); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}
