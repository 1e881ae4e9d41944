// Package notify delivers reminder messages over SMS, email and WhatsApp.
//
// Gateways report delivery as a boolean. Transport errors are logged and
// turned into false; nothing is retried.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"churchclerk/internal/core"
)

const DefaultHTTPSMSURL = "https://api.httpsms.com/v1/messages/send"

type Message struct {
	Channel   core.Channel
	Recipient string
	Subject   string
	Body      string
}

type Gateway interface {
	Send(ctx context.Context, msg Message) bool
}

// Config carries gateway credentials. It is built once at startup and
// passed to the constructors.
type Config struct {
	OrgName string

	HTTPSMSURL        string
	HTTPSMSAPIKey     string
	HTTPSMSFromNumber string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	WhatsAppEnabled bool
	WhatsAppDataDir string

	Timeout time.Duration
}

// Validate names every missing credential. Callers log the error as a
// warning and keep running.
func (c Config) Validate() error {
	var missing []string
	if c.HTTPSMSAPIKey == "" {
		missing = append(missing, "HTTPSMS_API_KEY")
	}
	if c.HTTPSMSFromNumber == "" {
		missing = append(missing, "HTTPSMS_FROM_NUMBER")
	}
	if c.SMTPHost == "" {
		missing = append(missing, "EMAIL_HOST")
	}
	if c.SMTPUsername == "" {
		missing = append(missing, "EMAIL_HOST_USER")
	}
	if c.SMTPPassword == "" {
		missing = append(missing, "EMAIL_HOST_PASSWORD")
	}
	if c.WhatsAppEnabled && c.WhatsAppDataDir == "" {
		missing = append(missing, "WHATSAPP_DATA_DIR")
	}
	if len(missing) > 0 {
		return fmt.Errorf("notification gateway configuration missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SenderAddress is the From header for outgoing email.
func (c Config) SenderAddress() string {
	return fmt.Sprintf("%s Church <%s>", c.OrgName, c.SMTPUsername)
}

// Router picks the gateway registered for a message's channel.
type Router struct {
	gateways map[core.Channel]Gateway
}

func NewRouter() *Router {
	return &Router{gateways: map[core.Channel]Gateway{}}
}

func (r *Router) Register(ch core.Channel, g Gateway) {
	r.gateways[ch] = g
}

func (r *Router) Has(ch core.Channel) bool {
	_, ok := r.gateways[ch]
	return ok
}

func (r *Router) Send(ctx context.Context, msg Message) bool {
	g, ok := r.gateways[msg.Channel]
	if !ok {
		slog.WarnContext(ctx, "No gateway configured for channel", "channel", msg.Channel)
		return false
	}
	return g.Send(ctx, msg)
}

// Unavailable is registered in place of a gateway whose setup failed, so
// each send fails instead of the whole process.
type Unavailable struct {
	Reason error
}

func (u Unavailable) Send(ctx context.Context, msg Message) bool {
	slog.WarnContext(ctx, "Gateway unavailable",
		"channel", msg.Channel,
		"recipient", msg.Recipient,
		"error", u.Reason)
	return false
}
