package local

import (
	"context"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-edu-portal/internal/errors"
	"github.com/jrsteele09/go-edu-portal/mailer"
	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/jrsteele09/go-edu-portal/token"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/rs/zerolog/log"
)

var _ provider.Provider = (*Client)(nil)

// Client is one browser's connection to the local backend.
type Client struct {
	backend *Backend
	events  provider.Broadcaster
	mu      sync.Mutex
	session *provider.Session
}

func newClient(b *Backend, restore *provider.Session) *Client {
	c := &Client{backend: b}
	if restore != nil {
		s := *restore
		c.session = &s
	}
	return c
}

func (c *Client) OnAuthStateChange(listener provider.Listener) *provider.Subscription {
	return c.events.Subscribe(listener)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*provider.Session, error) {
	u, err := c.backend.users.GetByEmail(ctx, email)
	if errors.Is(err, errors.ErrUserNotFound) {
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, unexpected(err)
	}
	if !u.CheckPassword(password) {
		return nil, invalidCredentials()
	}
	if c.backend.requireConfirmation && !u.EmailVerified {
		return nil, provider.NewError(provider.CodeEmailNotConfirmed, http.StatusBadRequest, "Email not confirmed")
	}

	now := c.backend.nowFunc()
	if err := c.backend.users.SetLastLogin(ctx, u.Email, now); err != nil {
		log.Err(err).Str("user", u.ID).Msg("could not record last login")
	}
	u.LastLogin = now

	s, err := c.backend.newSession(u)
	if err != nil {
		return nil, unexpected(err)
	}
	c.setSession(s)
	c.events.Emit(provider.EventSignedIn, s)
	return s, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*provider.SignUpResult, error) {
	if len(password) < users.MinPasswordLength {
		return nil, weakPassword()
	}
	if _, err := c.backend.users.GetByEmail(ctx, email); err == nil {
		return nil, provider.NewError(provider.CodeUserAlreadyExists, http.StatusUnprocessableEntity, "User already registered")
	} else if !errors.Is(err, errors.ErrUserNotFound) {
		return nil, unexpected(err)
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, unexpected(err)
	}
	u := &users.User{
		Email:         users.NormaliseEmail(email),
		PasswordHash:  hash,
		FullName:      fullNameOf(metadata),
		Role:          users.RoleFromMetadata(metadata),
		EmailVerified: !c.backend.requireConfirmation,
		Metadata:      cloneMetadata(metadata),
		DateJoined:    c.backend.nowFunc(),
	}
	if err := c.backend.users.Upsert(ctx, u); err != nil {
		if errors.Is(err, errors.ErrUserExists) {
			return nil, provider.NewError(provider.CodeUserAlreadyExists, http.StatusUnprocessableEntity, "User already registered")
		}
		return nil, unexpected(err)
	}

	if c.backend.requireConfirmation {
		if err := c.backend.sendLink(ctx, mailer.KindConfirmEmail, u, token.PurposeConfirmation, c.backend.confirmURL); err != nil {
			return nil, unexpected(err)
		}
		return &provider.SignUpResult{User: publicUser(u)}, nil
	}

	s, err := c.backend.newSession(u)
	if err != nil {
		return nil, unexpected(err)
	}
	c.setSession(s)
	c.events.Emit(provider.EventSignedIn, s)
	return &provider.SignUpResult{User: publicUser(u), Session: s}, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s != nil && s.RefreshToken != "" {
		if err := c.backend.tokens.Revoke(ctx, s.RefreshToken, token.PurposeRefresh); err != nil {
			log.Err(err).Msg("could not revoke refresh token")
		}
	}
	c.events.Emit(provider.EventSignedOut, nil)
	return nil
}

// ResetPasswordForEmail mails a recovery link. Unknown addresses succeed
// silently so the endpoint cannot be used to probe for accounts.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	if redirectTo == "" {
		return provider.NewError(provider.CodeValidationFailed, http.StatusBadRequest, "A redirect URL is required")
	}
	u, err := c.backend.users.GetByEmail(ctx, email)
	if errors.Is(err, errors.ErrUserNotFound) {
		log.Debug().Str("email", email).Msg("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return unexpected(err)
	}
	if err := c.backend.sendLink(ctx, mailer.KindPasswordReset, u, token.PurposeRecovery, redirectTo); err != nil {
		return unexpected(err)
	}
	return nil
}

// GetSession validates the held session, refreshing an expired access token
// when the refresh token still holds.
func (c *Client) GetSession(ctx context.Context) (*provider.Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil, nil
	}

	claims, err := c.backend.tokens.Parse(ctx, s.AccessToken, token.PurposeAccess)
	switch {
	case err == nil:
		u, err := c.backend.users.GetByID(ctx, claims.Subject)
		if errors.Is(err, errors.ErrUserNotFound) {
			c.setSession(nil)
			c.events.Emit(provider.EventUserDeleted, nil)
			return nil, nil
		}
		if err != nil {
			return nil, unexpected(err)
		}
		fresh := &provider.Session{
			AccessToken:  s.AccessToken,
			RefreshToken: s.RefreshToken,
			ExpiresAt:    claims.ExpiresAt.Time,
			User:         publicUser(u),
		}
		c.setSession(fresh)
		return fresh, nil
	case errors.Is(err, errors.ErrTokenExpired) && s.RefreshToken != "",
		s.AccessToken == "" && s.RefreshToken != "":
		fresh, err := c.refresh(ctx, s)
		if errors.Is(err, errors.ErrSessionExpired) {
			log.Debug().Err(err).Msg("stored session can no longer be refreshed")
			c.setSession(nil)
			c.events.Emit(provider.EventSignedOut, nil)
			return nil, nil
		}
		return fresh, err
	}
	c.setSession(nil)
	return nil, nil
}

func (c *Client) refresh(ctx context.Context, s *provider.Session) (*provider.Session, error) {
	claims, err := c.backend.tokens.Parse(ctx, s.RefreshToken, token.PurposeRefresh)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSessionExpired, "[Client refresh] %v", err)
	}
	u, err := c.backend.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, errors.ErrUserNotFound) {
		c.setSession(nil)
		c.events.Emit(provider.EventUserDeleted, nil)
		return nil, nil
	}
	if err != nil {
		return nil, unexpected(err)
	}
	if err := c.backend.tokens.Revoke(ctx, s.RefreshToken, token.PurposeRefresh); err != nil {
		log.Err(err).Str("user", u.ID).Msg("could not rotate refresh token")
	}
	fresh, err := c.backend.newSession(u)
	if err != nil {
		return nil, unexpected(err)
	}
	c.setSession(fresh)
	c.events.Emit(provider.EventTokenRefreshed, fresh)
	return fresh, nil
}

func (c *Client) setSession(s *provider.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}
