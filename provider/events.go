package provider

import (
	"sort"
	"sync"
)

type EventType string

const (
	EventInitialSession   EventType = "INITIAL_SESSION"
	EventSignedIn         EventType = "SIGNED_IN"
	EventSignedOut        EventType = "SIGNED_OUT"
	EventTokenRefreshed   EventType = "TOKEN_REFRESHED"
	EventUserUpdated      EventType = "USER_UPDATED"
	EventUserDeleted      EventType = "USER_DELETED"
	EventPasswordRecovery EventType = "PASSWORD_RECOVERY"
)

// Event is an auth-state change. Seq increases by one per emitted event.
type Event struct {
	Seq     uint64
	Type    EventType
	Session *Session
}

type Listener func(Event)

type Subscription struct {
	once   sync.Once
	cancel func()
}

func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Broadcaster numbers events and delivers them to listeners in emit order.
// The zero value is ready to use.
type Broadcaster struct {
	emitMu    sync.Mutex // serialises numbering and delivery
	mu        sync.Mutex
	seq       uint64
	nextID    uint64
	listeners map[uint64]Listener
}

func (b *Broadcaster) Subscribe(l Listener) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[uint64]Listener)
	}
	b.nextID++
	id := b.nextID
	b.listeners[id] = l
	return NewSubscription(func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	})
}

// Emit numbers and delivers an event synchronously. Listeners must not call Emit.
func (b *Broadcaster) Emit(t EventType, s *Session) Event {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	b.mu.Lock()
	b.seq++
	evt := Event{Seq: b.seq, Type: t, Session: s}
	ids := make([]uint64, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	targets := make([]Listener, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, b.listeners[id])
	}
	b.mu.Unlock()

	for _, l := range targets {
		l(evt)
	}
	return evt
}

// Listeners reports how many listeners are registered.
func (b *Broadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
