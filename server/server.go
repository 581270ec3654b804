package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-edu-portal/internal/config"
	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/jrsteele09/go-edu-portal/server/loginsession"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FunctionsClient reaches the hosted chat and payment functions.
type FunctionsClient interface {
	Chat(ctx context.Context, message string) (string, error)
	PaymentLink(ctx context.Context, plan, userID string) (string, error)
}

// Deps holds the collaborators the server is built from.
type Deps struct {
	Backend       provider.Backend
	LoginSessions loginsession.Repo
	Functions     FunctionsClient // optional
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	backend   provider.Backend
	clients   *ClientRegistry
	functions FunctionsClient
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Backend == nil {
		return nil, errors.New("[Server New] auth backend is required")
	}
	if deps.LoginSessions == nil {
		return nil, errors.New("[Server New] login session repo is required")
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		backend:   deps.Backend,
		functions: deps.Functions,
		clients:   NewClientRegistry(deps.Backend, deps.LoginSessions, cfg.GetResetRedirectURL(), cfg.GetClientIdleTimeout()),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkSocketOrigin,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.InitialiseSystem(ctx); err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to initialise the system")
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Clients exposes the browser registry, mainly so main can run eviction.
func (s *Server) Clients() *ClientRegistry {
	return s.clients
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Debug().Msgf("[%s] %s", colourMethod(parts[0]), parts[1])
		} else {
			log.Debug().Msgf("[%s] %s", colourMethod(""), parts[0])
		}
	}
}

func (s *Server) checkSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == s.config.GetBaseURL() {
		return true
	}
	return s.config.GetAllowedOrigins().IsAllowedOrigin(origin)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
