package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"churchclerk/internal/core"
)

// ActivityMessage is the wire form of one audit trail entry.
type ActivityMessage struct {
	Kind       string    `json:"kind"`
	RecordID   string    `json:"record_id"`
	Detail     string    `json:"detail,omitempty"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewActivityMessage(a core.Activity) *ActivityMessage {
	return &ActivityMessage{
		Kind:       string(a.Kind),
		RecordID:   a.RecordID,
		Detail:     a.Detail,
		Actor:      a.Actor,
		OccurredAt: a.OccurredAt,
	}
}

func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Activity converts the message back to a domain entry. The store assigns the ID.
func (m *ActivityMessage) Activity() core.Activity {
	return core.Activity{
		Kind:       core.ActivityKind(m.Kind),
		RecordID:   m.RecordID,
		Detail:     m.Detail,
		Actor:      m.Actor,
		OccurredAt: m.OccurredAt,
	}
}

func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" {
		return nil, fmt.Errorf("activity message without kind")
	}
	return &msg, nil
}
