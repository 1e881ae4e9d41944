package core

import "time"

type ActivityKind string

const (
	ActivityPickedUp          ActivityKind = "certificate.picked_up"
	ActivityReminderSent      ActivityKind = "reminder.dispatched"
	ActivityStageChanged      ActivityKind = "transfer.stage_changed"
	ActivityCommunionRecorded ActivityKind = "communion.recorded"
	ActivityReportGenerated   ActivityKind = "report.generated"
)

// Activity is one entry of the clerk's audit trail.
type Activity struct {
	ID         int64
	Kind       ActivityKind
	RecordID   string
	Detail     string
	Actor      string
	OccurredAt time.Time
}

// Channel is a reminder delivery channel.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelEmail || c == ChannelWhatsApp
}

func (c Channel) Label() string {
	switch c {
	case ChannelSMS:
		return "SMS"
	case ChannelEmail:
		return "email"
	case ChannelWhatsApp:
		return "WhatsApp"
	}
	return string(c)
}

// ContactFor returns the certificate's address on the channel, or "" when
// the record has none.
func (c Certificate) ContactFor(ch Channel) string {
	switch ch {
	case ChannelEmail:
		return c.Email
	case ChannelSMS, ChannelWhatsApp:
		return c.PhoneNumber
	}
	return ""
}
