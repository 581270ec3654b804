package sessions

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/rs/zerolog/log"
)

type Listener func(Session)

type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the listener. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Store is the read side of a browser's session. Only the Writer returned
// alongside it can change the state.
type Store struct {
	writeMu   sync.Mutex // held across update and delivery so listeners see writes in order
	mu        sync.RWMutex
	current   Session
	lastSeq   uint64
	nextID    uint64
	listeners map[uint64]Listener
}

// Writer is the single mutable handle on a Store.
type Writer struct {
	store *Store
}

// New returns a loading store and its writer.
func New() (*Store, *Writer) {
	s := &Store{
		current:   Loading(),
		listeners: make(map[uint64]Listener),
	}
	return s, &Writer{store: s}
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers l for every future change. Listeners run synchronously
// on the writer's goroutine and must not block.
func (s *Store) Subscribe(l Listener) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = l
	return &Subscription{cancel: func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}}
}

// Watch delivers the current state and every change to l until ctx is done.
// The listener is removed on return.
func (s *Store) Watch(ctx context.Context, l Listener) error {
	sub := s.Subscribe(l)
	defer sub.Unsubscribe()
	l(s.Current())
	<-ctx.Done()
	return ctx.Err()
}

func (s *Store) subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// set replaces the state and notifies listeners. accept runs under the lock
// and may veto the write.
func (s *Store) set(accept func(current Session, lastSeq uint64) (Session, uint64, bool)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next, seq, ok := accept(s.current, s.lastSeq)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.current = next
	s.lastSeq = seq
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	targets := make([]Listener, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range targets {
		l(next)
	}
}

func (w *Writer) Store() *Store {
	return w.store
}

// Resolve records the result of the bootstrap session check. It does nothing
// once the session has left the loading state, since whatever did that is
// newer than the check.
func (w *Writer) Resolve(principal *users.User) {
	principal = principal.Clone()
	w.store.set(func(current Session, lastSeq uint64) (Session, uint64, bool) {
		if !current.IsLoading {
			return current, lastSeq, false
		}
		return Session{Principal: principal}, lastSeq, true
	})
}

func (w *Writer) SignedIn(principal *users.User) {
	w.replace(principal)
}

func (w *Writer) SignedOut() {
	w.replace(nil)
}

func (w *Writer) replace(principal *users.User) {
	principal = principal.Clone()
	w.store.set(func(_ Session, lastSeq uint64) (Session, uint64, bool) {
		return Session{Principal: principal}, lastSeq, true
	})
}

// Apply folds a provider event into the session. Events that are not newer
// than the last applied one are dropped. A refresh or update that would change
// the principal's identity or role signs the session out instead.
func (w *Writer) Apply(evt provider.Event) {
	var principal *users.User
	if evt.Session != nil {
		principal = evt.Session.User.Clone()
	}

	w.store.set(func(current Session, lastSeq uint64) (Session, uint64, bool) {
		if evt.Seq != 0 && evt.Seq <= lastSeq {
			log.Debug().Uint64("seq", evt.Seq).Uint64("last", lastSeq).Str("event", string(evt.Type)).Msg("dropping stale auth event")
			return current, lastSeq, false
		}
		seq := lastSeq
		if evt.Seq != 0 {
			seq = evt.Seq
		}

		switch evt.Type {
		case provider.EventSignedOut, provider.EventUserDeleted:
			return Session{}, seq, true
		case provider.EventSignedIn, provider.EventInitialSession:
			return Session{Principal: principal}, seq, true
		case provider.EventTokenRefreshed, provider.EventUserUpdated:
			if principal == nil {
				return Session{}, seq, true
			}
			if old := current.Principal; old != nil && (old.ID != principal.ID || users.NormaliseRole(old.Role) != users.NormaliseRole(principal.Role)) {
				log.Warn().Str("user", principal.ID).Str("event", string(evt.Type)).Msg("principal changed without sign-in, forcing re-authentication")
				return Session{}, seq, true
			}
			return Session{Principal: principal}, seq, true
		}
		// Other events (password recovery) carry no session change.
		current.IsLoading = false
		return current, seq, true
	})
}

// Follow applies every auth-state change of p until the subscription is cancelled.
func (w *Writer) Follow(p provider.Provider) *provider.Subscription {
	return p.OnAuthStateChange(w.Apply)
}

// Bootstrap runs the initial session check. A failed check resolves to a
// signed-out session so routing can proceed.
func (w *Writer) Bootstrap(ctx context.Context, p provider.Provider) error {
	ps, err := p.GetSession(ctx)
	if err != nil {
		w.Resolve(nil)
		return err
	}
	if ps == nil {
		w.Resolve(nil)
		return nil
	}
	w.Resolve(ps.User)
	return nil
}
