package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"

	"churchclerk/internal/core"
)

func TestSMSGatewaySend(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "ok", status: http.StatusOK, want: true},
		{name: "created", status: http.StatusCreated, want: true},
		{name: "accepted", status: http.StatusAccepted, want: true},
		{name: "unauthorized", status: http.StatusUnauthorized, want: false},
		{name: "server error", status: http.StatusInternalServerError, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got smsPayload
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s", r.Method)
				}
				if r.Header.Get("x-api-key") != "secret" {
					t.Errorf("missing api key header")
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("decode payload: %v", err)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			g := NewSMSGateway(Config{HTTPSMSURL: srv.URL, HTTPSMSAPIKey: "secret", HTTPSMSFromNumber: "+254700000001"}, srv.Client())
			ok := g.Send(context.Background(), Message{Channel: core.ChannelSMS, Recipient: "+254711111111", Body: "hello"})
			if ok != tt.want {
				t.Fatalf("Send() = %v, want %v", ok, tt.want)
			}
			if got.To != "+254711111111" || got.From != "+254700000001" || got.Content != "hello" {
				t.Fatalf("unexpected payload: %+v", got)
			}
		})
	}
}

func TestSMSGatewayTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := NewSMSGateway(Config{HTTPSMSURL: url}, nil)
	if g.Send(context.Background(), Message{Recipient: "+254711111111", Body: "x"}) {
		t.Fatal("expected failure when gateway is unreachable")
	}
}

func TestConfigValidate(t *testing.T) {
	err := Config{}.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	for _, key := range []string{"HTTPSMS_API_KEY", "HTTPSMS_FROM_NUMBER", "EMAIL_HOST_USER", "EMAIL_HOST_PASSWORD"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should name %s: %v", key, err)
		}
	}

	full := Config{
		HTTPSMSAPIKey:     "k",
		HTTPSMSFromNumber: "+254700000001",
		SMTPHost:          "smtp.gmail.com",
		SMTPUsername:      "clerk@example.com",
		SMTPPassword:      "p",
	}
	if err := full.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	full.WhatsAppEnabled = true
	if err := full.Validate(); err == nil || !strings.Contains(err.Error(), "WHATSAPP_DATA_DIR") {
		t.Fatalf("expected whatsapp data dir error, got %v", err)
	}
}

func TestSenderAddress(t *testing.T) {
	c := Config{OrgName: "Newlife", SMTPUsername: "clerk@example.com"}
	if got := c.SenderAddress(); got != "Newlife Church <clerk@example.com>" {
		t.Fatalf("SenderAddress() = %q", got)
	}
}

type stubGateway struct{ ok bool }

func (s stubGateway) Send(context.Context, Message) bool { return s.ok }

func TestRouter(t *testing.T) {
	r := NewRouter()
	r.Register(core.ChannelSMS, stubGateway{ok: true})
	r.Register(core.ChannelEmail, Unavailable{Reason: errors.New("no smtp host")})

	ctx := context.Background()
	if !r.Send(ctx, Message{Channel: core.ChannelSMS}) {
		t.Fatal("sms should route to the stub")
	}
	if r.Send(ctx, Message{Channel: core.ChannelEmail}) {
		t.Fatal("unavailable gateway must fail")
	}
	if r.Send(ctx, Message{Channel: core.ChannelWhatsApp}) {
		t.Fatal("unregistered channel must fail")
	}
	if r.Has(core.ChannelWhatsApp) || !r.Has(core.ChannelSMS) {
		t.Fatal("Has() mismatch")
	}
}

func TestEmailGatewayRequiresHost(t *testing.T) {
	if _, err := NewEmailGateway(Config{}); err == nil {
		t.Fatal("expected error without smtp host")
	}
}

func TestEmailComposeRejectsBadRecipient(t *testing.T) {
	g, err := NewEmailGateway(Config{OrgName: "Newlife", SMTPHost: "smtp.example.com", SMTPUsername: "clerk@example.com", SMTPPassword: "p"})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	if _, err := g.compose(Message{Recipient: "not an address", Subject: "s", Body: "b"}); err == nil {
		t.Fatal("expected invalid recipient error")
	}
	if _, err := g.compose(Message{Recipient: "member@example.com", Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("compose: %v", err)
	}
	if g.Send(context.Background(), Message{Channel: core.ChannelEmail}) {
		t.Fatal("empty recipient must fail without dialing")
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct{ in, want string }{
		{"0712345678", "254712345678"},
		{"+254 712 345 678", "254712345678"},
		{"2540712345678", "254712345678"},
		{"(0110) 123-456", "254110123456"},
		{"+14155550100", "14155550100"},
	}
	for _, tt := range tests {
		if got := NormalizePhoneNumber(tt.in); got != tt.want {
			t.Errorf("NormalizePhoneNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type fakeWhatsApp struct {
	registered bool
	lookupErr  error
	sendErr    error
	sentTo     types.JID
	sentBody   string
}

func (f *fakeWhatsApp) IsOnWhatsApp(_ context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return []types.IsOnWhatsAppResponse{{
		Query: phones[0],
		JID:   types.NewJID(phones[0], types.DefaultUserServer),
		IsIn:  f.registered,
	}}, nil
}

func (f *fakeWhatsApp) SendMessage(_ context.Context, to types.JID, m *waE2E.Message, _ ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error) {
	f.sentTo = to
	f.sentBody = m.GetConversation()
	return whatsmeow.SendResponse{}, f.sendErr
}

func TestWhatsAppGatewaySend(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeWhatsApp
		want bool
	}{
		{name: "delivered", fake: &fakeWhatsApp{registered: true}, want: true},
		{name: "not on whatsapp", fake: &fakeWhatsApp{}, want: false},
		{name: "lookup error", fake: &fakeWhatsApp{lookupErr: errors.New("offline")}, want: false},
		{name: "send error", fake: &fakeWhatsApp{registered: true, sendErr: errors.New("boom")}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &WhatsAppGateway{sender: tt.fake}
			ok := g.Send(context.Background(), Message{Channel: core.ChannelWhatsApp, Recipient: "0712345678", Body: "hi"})
			if ok != tt.want {
				t.Fatalf("Send() = %v, want %v", ok, tt.want)
			}
			if tt.want && (tt.fake.sentTo.User != "254712345678" || tt.fake.sentBody != "hi") {
				t.Fatalf("sent to %s body %q", tt.fake.sentTo, tt.fake.sentBody)
			}
		})
	}
}
