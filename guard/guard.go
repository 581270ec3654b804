package guard

import (
	"github.com/jrsteele09/go-edu-portal/internal/utils"
	"github.com/jrsteele09/go-edu-portal/navigation"
	"github.com/jrsteele09/go-edu-portal/sessions"
)

type Kind int

const (
	// Pending means the session is still loading and nothing may be rendered.
	Pending Kind = iota
	Allow
	RedirectToAuth
	RedirectToDashboard
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case RedirectToAuth:
		return "redirect_to_auth"
	case RedirectToDashboard:
		return "redirect_to_dashboard"
	}
	return "unknown"
}

// Decision is the outcome of a navigation. View is set for Allow, Target for
// redirects and Role for RedirectToDashboard.
type Decision struct {
	Kind   Kind
	Path   string
	View   navigation.View
	Target string
	Role   string
}

// Redirect reports whether the decision moves the browser elsewhere.
func (d Decision) Redirect() bool {
	return d.Kind == RedirectToAuth || d.Kind == RedirectToDashboard
}

// Decide routes path for session. It never fails and has no side effects.
func Decide(path string, session sessions.Session) Decision {
	route, _ := navigation.Lookup(path)
	if session.IsLoading {
		return Decision{Kind: Pending, Path: route.Path}
	}
	principal := session.Principal

	switch route.Access {
	case navigation.AccessPublic:
		if principal != nil && route.Landing {
			role := principal.RoleName()
			return Decision{Kind: RedirectToDashboard, Path: route.Path, Target: navigation.Resolve(role), Role: utils.Value(role)}
		}
		return Decision{Kind: Allow, Path: route.Path, View: route.View}
	case navigation.AccessAuthenticated:
		if principal == nil {
			return toAuth(route)
		}
		return Decision{Kind: Allow, Path: route.Path, View: route.View}
	case navigation.AccessRole:
		if principal == nil || utils.Value(principal.RoleName()) != route.Role {
			return toAuth(route)
		}
		return Decision{Kind: Allow, Path: route.Path, View: route.View}
	}
	return toAuth(route)
}

func toAuth(route navigation.Route) Decision {
	return Decision{Kind: RedirectToAuth, Path: route.Path, Target: navigation.RouteAuth}
}
