package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotPaired = errors.New("whatsapp device is not linked; run `clerkctl whatsapp link`")

// waClient is the slice of the whatsmeow client the gateway needs.
type waClient interface {
	IsOnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error)
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

// WhatsAppGateway sends reminders from a linked WhatsApp device.
type WhatsAppGateway struct {
	client *whatsmeow.Client
	sender waClient
}

// OpenWhatsApp loads the linked device from the session store in dataDir.
func OpenWhatsApp(ctx context.Context, dataDir string) (*WhatsAppGateway, error) {
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", dataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("open whatsapp session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load whatsapp device: %w", err)
	}

	client := whatsmeow.NewClient(device, nil)
	client.AddEventHandler(func(evt interface{}) {
		switch evt.(type) {
		case *events.Connected:
			slog.Info("Connected to WhatsApp")
		case *events.Disconnected:
			slog.Info("Disconnected from WhatsApp")
		case *events.LoggedOut:
			slog.Warn("WhatsApp device logged out")
		}
	})
	return &WhatsAppGateway{client: client, sender: client}, nil
}

// Connect joins an already linked session.
func (g *WhatsAppGateway) Connect() error {
	if g.client.Store.ID == nil {
		return ErrNotPaired
	}
	if err := g.client.Connect(); err != nil {
		return fmt.Errorf("connect whatsapp: %w", err)
	}
	return nil
}

// Pair links a new device, printing each QR code to out until the phone
// scans one or the codes run out.
func (g *WhatsAppGateway) Pair(ctx context.Context, out io.Writer) error {
	if g.client.Store.ID != nil {
		fmt.Fprintln(out, "Device already linked.")
		return g.Connect()
	}
	qrChan, err := g.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("get qr channel: %w", err)
	}
	if err := g.client.Connect(); err != nil {
		return fmt.Errorf("connect whatsapp: %w", err)
	}
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			q, err := qrcode.New(evt.Code, qrcode.Medium)
			if err != nil {
				fmt.Fprintf(out, "QR Code: %s\n", evt.Code)
				continue
			}
			fmt.Fprintln(out, q.ToSmallString(false))
			fmt.Fprintln(out, "Scan with WhatsApp: Settings > Linked Devices > Link a Device")
		case "success":
			fmt.Fprintln(out, "Device linked.")
			return nil
		default:
			fmt.Fprintf(out, "Login event: %s\n", evt.Event)
		}
	}
	if g.client.Store.ID == nil {
		return errors.New("pairing did not complete")
	}
	return nil
}

func (g *WhatsAppGateway) Disconnect() {
	if g.client != nil {
		g.client.Disconnect()
	}
}

func (g *WhatsAppGateway) Send(ctx context.Context, msg Message) bool {
	if msg.Recipient == "" {
		return false
	}
	phone := NormalizePhoneNumber(msg.Recipient)

	resp, err := g.sender.IsOnWhatsApp(ctx, []string{phone})
	if err != nil {
		slog.WarnContext(ctx, "WhatsApp number lookup failed", "recipient", phone, "error", err)
		return false
	}
	if len(resp) == 0 || !resp[0].IsIn {
		slog.WarnContext(ctx, "Number is not on WhatsApp", "recipient", phone)
		return false
	}

	body := msg.Body
	if _, err := g.sender.SendMessage(ctx, resp[0].JID, &waE2E.Message{Conversation: &body}); err != nil {
		slog.WarnContext(ctx, "WhatsApp send failed", "recipient", phone, "error", err)
		return false
	}
	slog.InfoContext(ctx, "WhatsApp message sent", "recipient", phone)
	return true
}
