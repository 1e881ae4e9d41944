// Package notifytest provides a recording gateway for tests.
package notifytest

import (
	"context"
	"sync"

	"churchclerk/internal/notify"
)

// Recorder captures every message and fails for recipients listed in Fail.
type Recorder struct {
	mu       sync.Mutex
	Fail     map[string]bool
	messages []notify.Message
}

func NewRecorder(failing ...string) *Recorder {
	r := &Recorder{Fail: map[string]bool{}}
	for _, f := range failing {
		r.Fail[f] = true
	}
	return r
}

func (r *Recorder) Send(_ context.Context, msg notify.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return !r.Fail[msg.Recipient]
}

func (r *Recorder) Messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.messages...)
}
