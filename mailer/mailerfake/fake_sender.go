package mailerfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-edu-portal/mailer"
)

var _ mailer.Sender = (*FakeSender)(nil)

// FakeSender records messages. Err, when set, is returned from Send.
type FakeSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	Err  error
}

func NewFakeSender() *FakeSender {
	return &FakeSender{}
}

func (f *FakeSender) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *FakeSender) Sent() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Message(nil), f.sent...)
}

// Last returns the most recent message, or false when nothing was sent.
func (f *FakeSender) Last() (mailer.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return mailer.Message{}, false
	}
	return f.sent[len(f.sent)-1], true
}
