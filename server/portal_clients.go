package server

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-edu-portal/auth"
	"github.com/jrsteele09/go-edu-portal/internal/errors"
	"github.com/jrsteele09/go-edu-portal/internal/metrics"
	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/jrsteele09/go-edu-portal/server/loginsession"
	"github.com/jrsteele09/go-edu-portal/sessions"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const bootstrapTimeout = 15 * time.Second

// portalClient is the server-side state of one browser.
type portalClient struct {
	id       string
	provider provider.Provider
	flow     *auth.FlowController
	store    *sessions.Store
	ready    chan struct{} // closed once the initial session check is done
	persist  *provider.Subscription

	mu       sync.Mutex
	view     *auth.AuthView
	lastSeen time.Time
}

// authView returns the mounted auth view, mounting one if needed.
func (pc *portalClient) authView() *auth.AuthView {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.view == nil || !pc.view.Mounted() {
		pc.view = pc.flow.Mount()
	}
	return pc.view
}

// leaveAuthView unmounts the auth view when the browser navigates elsewhere.
func (pc *portalClient) leaveAuthView() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.view != nil {
		pc.view.Unmount()
		pc.view = nil
	}
}

func (pc *portalClient) touch(now time.Time) {
	pc.mu.Lock()
	pc.lastSeen = now
	pc.mu.Unlock()
}

func (pc *portalClient) idleSince() time.Time {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.lastSeen
}

func (pc *portalClient) close() {
	pc.leaveAuthView()
	pc.persist.Unsubscribe()
	pc.flow.Stop()
}

// ClientRegistry holds one portalClient per browser. Provider tokens are
// written to the login session repo so a browser can resume after a restart
// or an eviction.
type ClientRegistry struct {
	backend     provider.Backend
	repo        loginsession.Repo
	resetURL    string
	idleTimeout time.Duration
	nowFunc     func() time.Time

	mu      sync.Mutex
	clients map[string]*portalClient
}

func NewClientRegistry(backend provider.Backend, repo loginsession.Repo, resetURL string, idleTimeout time.Duration) *ClientRegistry {
	return &ClientRegistry{
		backend:     backend,
		repo:        repo,
		resetURL:    resetURL,
		idleTimeout: idleTimeout,
		nowFunc:     time.Now,
		clients:     make(map[string]*portalClient),
	}
}

// Get returns the client for id, creating and bootstrapping it on first use.
func (cr *ClientRegistry) Get(ctx context.Context, id string) (*portalClient, error) {
	cr.mu.Lock()
	pc, ok := cr.clients[id]
	if !ok {
		var err error
		pc, err = cr.newClient(ctx, id)
		if err != nil {
			cr.mu.Unlock()
			return nil, err
		}
		cr.clients[id] = pc
		metrics.ActiveClients.Set(float64(len(cr.clients)))
		cr.mu.Unlock()

		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bootstrapTimeout)
		if err := pc.flow.Start(bctx); err != nil {
			log.Warn().Err(err).Str("client", id).Msg("session bootstrap failed")
		}
		cancel()
		close(pc.ready)
	} else {
		cr.mu.Unlock()
	}

	select {
	case <-pc.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	pc.touch(cr.nowFunc())
	return pc, nil
}

func (cr *ClientRegistry) newClient(ctx context.Context, id string) (*portalClient, error) {
	p := cr.backend.Client(cr.restore(ctx, id))
	store, writer := sessions.New()
	flow, err := auth.NewFlowController(p, writer, cr.resetURL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[ClientRegistry newClient]")
	}
	pc := &portalClient{
		id:       id,
		provider: p,
		flow:     flow,
		store:    store,
		ready:    make(chan struct{}),
		lastSeen: cr.nowFunc(),
	}
	pc.persist = p.OnAuthStateChange(func(evt provider.Event) { cr.persist(id, evt) })
	return pc, nil
}

// restore loads the stored provider session for id, if any.
func (cr *ClientRegistry) restore(ctx context.Context, id string) *provider.Session {
	stored, err := cr.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, errors.ErrSessionNotFound) {
			log.Err(err).Str("client", id).Msg("could not load login session")
		}
		return nil
	}
	return &provider.Session{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		ExpiresAt:    stored.ExpiresAt,
	}
}

func (cr *ClientRegistry) persist(id string, evt provider.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch evt.Type {
	case provider.EventSignedOut, provider.EventUserDeleted:
		if err := cr.repo.Delete(ctx, id); err != nil {
			log.Err(err).Str("client", id).Msg("could not delete login session")
		}
	case provider.EventSignedIn, provider.EventInitialSession, provider.EventTokenRefreshed, provider.EventUserUpdated:
		s := evt.Session
		if s == nil || s.User == nil {
			return
		}
		err := cr.repo.Upsert(ctx, id, loginsession.Session{
			UserID:       s.User.ID,
			Email:        s.User.Email,
			Role:         s.User.Role.String(),
			AccessToken:  s.AccessToken,
			RefreshToken: s.RefreshToken,
			ExpiresAt:    s.ExpiresAt,
			CreatedAt:    cr.nowFunc(),
		})
		if err != nil {
			log.Err(err).Str("client", id).Msg("could not store login session")
		}
	}
}

// Sweep drops clients idle for longer than the idle timeout and reports how
// many were removed. Their login sessions stay in the repo.
func (cr *ClientRegistry) Sweep() int {
	if cr.idleTimeout <= 0 {
		return 0
	}
	cutoff := cr.nowFunc().Add(-cr.idleTimeout)

	cr.mu.Lock()
	var idle []*portalClient
	for id, pc := range cr.clients {
		select {
		case <-pc.ready:
		default:
			continue
		}
		if pc.idleSince().Before(cutoff) {
			idle = append(idle, pc)
			delete(cr.clients, id)
		}
	}
	metrics.ActiveClients.Set(float64(len(cr.clients)))
	cr.mu.Unlock()

	for _, pc := range idle {
		pc.close()
	}
	return len(idle)
}

// Run sweeps idle clients every interval until ctx is done.
func (cr *ClientRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := cr.Sweep(); n > 0 {
				log.Debug().Int("evicted", n).Msg("evicted idle clients")
			}
		}
	}
}

func (cr *ClientRegistry) Len() int {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return len(cr.clients)
}
