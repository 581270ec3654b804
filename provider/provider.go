package provider

import (
	"context"
	"time"

	"github.com/jrsteele09/go-edu-portal/users"
)

// Session is the provider's view of a signed-in browser.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         *users.User `json:"user,omitempty"`
}

// Expired reports whether the access token is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || s.ExpiresAt.IsZero() || !now.Before(s.ExpiresAt)
}

// SignUpResult carries the new user. Session is nil while the email is unconfirmed.
type SignUpResult struct {
	User    *users.User
	Session *Session
}

// Provider is one browser's handle on the auth provider.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	OnAuthStateChange(listener Listener) *Subscription
	GetSession(ctx context.Context) (*Session, error)
}

// Backend creates provider clients. restore carries tokens persisted from an
// earlier visit and may be nil.
type Backend interface {
	Client(restore *Session) Provider
}

// EmailConfirmer is implemented by backends that verify sign-up emails themselves.
type EmailConfirmer interface {
	ConfirmEmail(ctx context.Context, token string) (*users.User, error)
}

// PasswordUpdater is implemented by backends that complete password recovery themselves.
type PasswordUpdater interface {
	UpdatePassword(ctx context.Context, recoveryToken, newPassword string) error
}
