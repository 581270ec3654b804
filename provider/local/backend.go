package local

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-edu-portal/internal/errors"
	"github.com/jrsteele09/go-edu-portal/mailer"
	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/jrsteele09/go-edu-portal/token"
	"github.com/jrsteele09/go-edu-portal/users"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	_ provider.Backend         = (*Backend)(nil)
	_ provider.EmailConfirmer  = (*Backend)(nil)
	_ provider.PasswordUpdater = (*Backend)(nil)
)

// Backend is an in-process auth provider over the portal's own user store.
type Backend struct {
	users               users.UserRepo
	tokens              *token.Manager
	mailer              mailer.Sender
	appName             string
	confirmURL          string
	requireConfirmation bool
	nowFunc             func() time.Time
}

type Option func(*Backend)

// WithEmailConfirmation makes new accounts confirm their email, via a link to
// confirmURL, before they can sign in.
func WithEmailConfirmation(required bool, confirmURL string) Option {
	return func(b *Backend) {
		b.requireConfirmation = required
		b.confirmURL = confirmURL
	}
}

func WithAppName(name string) Option {
	return func(b *Backend) {
		b.appName = name
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(b *Backend) {
		b.nowFunc = now
	}
}

func NewBackend(repo users.UserRepo, tokens *token.Manager, sender mailer.Sender, opts ...Option) (*Backend, error) {
	if repo == nil {
		return nil, pkgerrors.New("[NewBackend] Users repo is required")
	}
	if tokens == nil {
		return nil, pkgerrors.New("[NewBackend] Token manager is required")
	}
	if sender == nil {
		return nil, pkgerrors.New("[NewBackend] Mail sender is required")
	}
	b := &Backend{
		users:   repo,
		tokens:  tokens,
		mailer:  sender,
		appName: "Edu Portal",
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.requireConfirmation && b.confirmURL == "" {
		return nil, pkgerrors.New("[NewBackend] Confirmation URL is required when email confirmation is on")
	}
	return b, nil
}

func (b *Backend) Client(restore *provider.Session) provider.Provider {
	return newClient(b, restore)
}

// ConfirmEmail marks the account behind a confirmation token as verified.
func (b *Backend) ConfirmEmail(ctx context.Context, raw string) (*users.User, error) {
	claims, err := b.tokens.Parse(ctx, raw, token.PurposeConfirmation)
	if err != nil {
		return nil, provider.NewError(provider.CodeValidationFailed, http.StatusBadRequest, "Confirmation link is invalid or has expired")
	}
	u, err := b.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, lookupFailure(err)
	}
	if err := b.users.SetVerified(ctx, u.Email, true); err != nil {
		return nil, unexpected(err)
	}
	if err := b.tokens.Revoke(ctx, raw, token.PurposeConfirmation); err != nil {
		log.Err(err).Str("user", u.ID).Msg("could not revoke confirmation token")
	}
	u.EmailVerified = true
	return publicUser(u), nil
}

// UpdatePassword completes a password reset started by ResetPasswordForEmail.
func (b *Backend) UpdatePassword(ctx context.Context, raw, newPassword string) error {
	if len(newPassword) < users.MinPasswordLength {
		return weakPassword()
	}
	claims, err := b.tokens.Parse(ctx, raw, token.PurposeRecovery)
	if err != nil {
		return provider.NewError(provider.CodeValidationFailed, http.StatusBadRequest, "Reset link is invalid or has expired")
	}
	u, err := b.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return lookupFailure(err)
	}
	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return unexpected(err)
	}
	u.PasswordHash = hash
	// Following the reset link proves ownership of the address.
	u.EmailVerified = true
	if err := b.users.Upsert(ctx, u); err != nil {
		return unexpected(err)
	}
	if err := b.tokens.Revoke(ctx, raw, token.PurposeRecovery); err != nil {
		log.Err(err).Str("user", u.ID).Msg("could not revoke recovery token")
	}
	return nil
}

// SeedUser creates a verified account unless the email is already taken.
func (b *Backend) SeedUser(ctx context.Context, email, password string, role users.RoleType, fullName string) (*users.User, bool, error) {
	existing, err := b.users.GetByEmail(ctx, email)
	if err == nil {
		return publicUser(existing), false, nil
	}
	if !errors.Is(err, errors.ErrUserNotFound) {
		return nil, false, pkgerrors.Wrap(err, "[Backend SeedUser] lookup")
	}
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, false, pkgerrors.Wrap(err, "[Backend SeedUser] hash")
	}
	u := &users.User{
		Email:         users.NormaliseEmail(email),
		PasswordHash:  hash,
		FullName:      fullName,
		Role:          role,
		EmailVerified: true,
		Metadata:      map[string]any{users.MetadataRoleKey: string(role), "fullName": fullName},
		DateJoined:    b.nowFunc(),
	}
	if err := b.users.Upsert(ctx, u); err != nil {
		return nil, false, pkgerrors.Wrap(err, "[Backend SeedUser] upsert")
	}
	return publicUser(u), true, nil
}

func (b *Backend) newSession(u *users.User) (*provider.Session, error) {
	access, exp, err := b.tokens.Issue(u, token.PurposeAccess)
	if err != nil {
		return nil, err
	}
	refresh, _, err := b.tokens.Issue(u, token.PurposeRefresh)
	if err != nil {
		return nil, err
	}
	return &provider.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
		User:         publicUser(u),
	}, nil
}

func (b *Backend) sendLink(ctx context.Context, kind mailer.Kind, u *users.User, purpose token.Purpose, base string) error {
	raw, _, err := b.tokens.Issue(u, purpose)
	if err != nil {
		return err
	}
	link, err := withToken(base, raw)
	if err != nil {
		return err
	}
	msg, err := mailer.Render(kind, u.Email, b.appName, link)
	if err != nil {
		return err
	}
	return b.mailer.Send(ctx, msg)
}

func withToken(base, raw string) (string, error) {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return "", pkgerrors.Errorf("[withToken] invalid redirect URL %q", base)
	}
	q := u.Query()
	q.Set("token", raw)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func publicUser(u *users.User) *users.User {
	c := u.Clone()
	c.PasswordHash = ""
	return c
}

func cloneMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

func fullNameOf(metadata map[string]any) string {
	name, _ := metadata["fullName"].(string)
	return strings.TrimSpace(name)
}

func invalidCredentials() error {
	return provider.NewError(provider.CodeInvalidCredentials, http.StatusBadRequest, "Invalid login credentials")
}

func weakPassword() error {
	return provider.NewError(provider.CodeWeakPassword, http.StatusUnprocessableEntity, "Password should be at least 6 characters")
}

func unexpected(err error) error {
	return &provider.Error{Code: provider.CodeUnexpected, Status: http.StatusInternalServerError, Message: "Unexpected failure", Err: err}
}

func lookupFailure(err error) error {
	if errors.Is(err, errors.ErrUserNotFound) {
		return provider.NewError(provider.CodeValidationFailed, http.StatusNotFound, "User not found")
	}
	return unexpected(err)
}
