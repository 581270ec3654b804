package sessions

import "github.com/jrsteele09/go-edu-portal/users"

// Session is the authentication state of one browser.
type Session struct {
	Principal *users.User
	IsLoading bool
}

// Loading is the state before the first session check resolves.
func Loading() Session {
	return Session{IsLoading: true}
}

// Authenticated reports whether a principal is present once loading is done.
func (s Session) Authenticated() bool {
	return !s.IsLoading && s.Principal != nil
}
