package loginsession

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-edu-portal/internal/errors"
	pkgerrors "github.com/pkg/errors"
)

var _ Repo = (*InMemoryLoginSessionRepo)(nil)

type InMemoryLoginSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session // clientID -> Session
}

func NewInMemoryLoginSessionRepo() *InMemoryLoginSessionRepo {
	return &InMemoryLoginSessionRepo{
		sessions: make(map[string]Session),
	}
}

func (r *InMemoryLoginSessionRepo) Upsert(_ context.Context, clientID string, session Session) error {
	if clientID == "" {
		return pkgerrors.New("[InMemoryLoginSessionRepo Upsert] clientID is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[clientID] = session
	return nil
}

func (r *InMemoryLoginSessionRepo) Get(_ context.Context, clientID string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[clientID]
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}
	return session, nil
}

func (r *InMemoryLoginSessionRepo) Delete(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, clientID)
	return nil
}

func (r *InMemoryLoginSessionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
