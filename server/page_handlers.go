package server

import (
	"net/http"

	"github.com/jrsteele09/go-edu-portal/auth"
	"github.com/jrsteele09/go-edu-portal/guard"
	"github.com/jrsteele09/go-edu-portal/internal/metrics"
	"github.com/jrsteele09/go-edu-portal/layout"
	"github.com/jrsteele09/go-edu-portal/navigation"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/rs/zerolog/log"
)

const unresolvableRoleMessage = "Your account does not have a portal role. Please sign in again."

// secretFields are never echoed back to the browser.
var secretFields = []string{"password", "confirmPassword"}

// PrincipalView is the signed-in user as the browser sees it.
type PrincipalView struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"fullName,omitempty"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	Dashboard     string `json:"dashboard"`
}

func newPrincipalView(u *users.User) *PrincipalView {
	if u == nil {
		return nil
	}
	return &PrincipalView{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		Role:          users.NormaliseRole(u.Role).String(),
		EmailVerified: u.EmailVerified,
		Dashboard:     navigation.Resolve(u.RoleName()),
	}
}

// PageResponse describes the page a browser should render.
type PageResponse struct {
	View      navigation.View  `json:"view"`
	Path      string           `json:"path"`
	Shell     layout.ShellKind `json:"shell"`
	Layout    layout.Layout    `json:"layout"`
	Principal *PrincipalView   `json:"principal,omitempty"`
	Auth      *auth.ViewState  `json:"auth,omitempty"`
	Error     string           `json:"error,omitempty"`
	Notice    string           `json:"notice,omitempty"`
}

// portalClient resolves the browser behind r, issuing a cookie to new browsers.
func (s *Server) portalClient(w http.ResponseWriter, r *http.Request) (*portalClient, bool) {
	id, fresh := s.clientID(r)
	pc, err := s.clients.Get(r.Context(), id)
	if err != nil {
		log.Err(err).Str("path", r.URL.Path).Msg("could not load client")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return nil, false
	}
	if fresh {
		s.setClientCookie(w, r, id)
	}
	return pc, true
}

// PageHandler routes every page request through the guard.
func (s *Server) PageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := s.portalClient(w, r)
		if !ok {
			return
		}

		d := guard.Decide(r.URL.Path, pc.store.Current())
		metrics.RouteDecisions.WithLabelValues(d.Kind.String()).Inc()
		if d.View != navigation.ViewAuth {
			pc.leaveAuthView()
		}

		switch d.Kind {
		case guard.Pending:
			// portalClient waits for the session check, so a request only lands
			// here if that wait is ever dropped.
			w.WriteHeader(http.StatusNoContent)
			return
		case guard.RedirectToDashboard:
			if d.Target == d.Path {
				// The role resolves to the page we are on, sign out so the visit can end.
				if err := pc.flow.SignOut(r.Context(), nil); err != nil {
					log.Err(err).Str("client", pc.id).Msg("sign-out of unresolvable role failed")
				}
				redirectWithError(w, r, navigation.RouteAuth, unresolvableRoleMessage)
				return
			}
			redirectSuccess(w, r, d.Target)
			return
		case guard.RedirectToAuth:
			redirectSuccess(w, r, d.Target)
			return
		}

		shell := layout.SelectShell(d)
		resp := PageResponse{
			View:      d.View,
			Path:      d.Path,
			Shell:     shell,
			Layout:    layout.Chrome(shell),
			Principal: newPrincipalView(pc.store.Current().Principal),
			Error:     r.URL.Query().Get("error"),
			Notice:    r.URL.Query().Get("notice"),
		}
		if d.View == navigation.ViewAuth {
			state := pc.authView().State()
			for _, secret := range secretFields {
				delete(state.Main.Fields, secret)
			}
			resp.Auth = &state
		}
		status := http.StatusOK
		if d.View == navigation.ViewNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, resp)
	}
}
