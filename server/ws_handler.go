package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-edu-portal/sessions"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// SessionSnapshot is the message pushed to a browser whenever its session changes.
type SessionSnapshot struct {
	Loading       bool           `json:"loading"`
	Authenticated bool           `json:"authenticated"`
	Principal     *PrincipalView `json:"principal,omitempty"`
}

func newSessionSnapshot(s sessions.Session) SessionSnapshot {
	return SessionSnapshot{
		Loading:       s.IsLoading,
		Authenticated: s.Authenticated(),
		Principal:     newPrincipalView(s.Principal),
	}
}

// SessionSocketHandler streams the browser's session over a websocket until
// the connection closes.
func (s *Server) SessionSocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := s.portalClient(w, r)
		if !ok {
			return
		}
		conn, err := s.upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			log.Info().Err(err).Str("client", pc.id).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Listeners run on the store's writer, so they only signal. The
		// write loop always sends the current session.
		changed := make(chan struct{}, 1)
		go func() {
			_ = pc.store.Watch(ctx, func(sessions.Session) {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
		}()
		go readSocket(conn, cancel)

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			case <-changed:
				pc.touch(s.clients.nowFunc())
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(newSessionSnapshot(pc.store.Current())); err != nil {
					log.Debug().Err(err).Str("client", pc.id).Msg("websocket write failed")
					return
				}
			case <-ticker.C:
				pc.touch(s.clients.nowFunc())
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

// readSocket drains the connection so control frames are handled, and
// cancels once the peer goes away.
func readSocket(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket closed")
			}
			return
		}
	}
}
