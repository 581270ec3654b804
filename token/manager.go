package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-edu-portal/internal/errors"
	"github.com/jrsteele09/go-edu-portal/users"
	pkgerrors "github.com/pkg/errors"
)

// Purpose binds a token to the one flow that may redeem it.
type Purpose string

const (
	PurposeAccess       Purpose = "access"
	PurposeRefresh      Purpose = "refresh"
	PurposeRecovery     Purpose = "recovery"
	PurposeConfirmation Purpose = "confirmation"
)

type Claims struct {
	Email         string         `json:"email"`
	Role          string         `json:"role,omitempty"`
	EmailVerified bool           `json:"email_verified"`
	Metadata      map[string]any `json:"user_metadata,omitempty"`
	Purpose       Purpose        `json:"purpose"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 tokens for the local provider.
type Manager struct {
	secret       []byte
	issuer       string
	expiry       map[Purpose]time.Duration
	revokedCache RevokedTokenCache
	nowFunc      func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(purpose Purpose, expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.expiry[purpose] = expiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithRevokedTokenCache(cache RevokedTokenCache) ManagerOption {
	return func(m *Manager) {
		m.revokedCache = cache
	}
}

func New(secret string, options ...ManagerOption) (*Manager, error) {
	if secret == "" {
		return nil, pkgerrors.New("[token New] signing secret is required")
	}
	m := &Manager{
		secret: []byte(secret),
		issuer: "edu-portal",
		expiry: map[Purpose]time.Duration{
			PurposeAccess:       time.Hour,
			PurposeRefresh:      7 * 24 * time.Hour,
			PurposeRecovery:     time.Hour,
			PurposeConfirmation: 24 * time.Hour,
		},
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.revokedCache == nil {
		m.revokedCache = NewInMemoryRevokedTokenCache(m.nowFunc)
	}
	return m, nil
}

// Issue signs a token of the given purpose for user and returns it with its expiry.
func (m *Manager) Issue(user *users.User, purpose Purpose) (string, time.Time, error) {
	now := m.nowFunc()
	exp := now.Add(m.expiry[purpose])
	claims := Claims{
		Email:         user.Email,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
		Purpose:       purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
	}
	if purpose == PurposeAccess {
		claims.Metadata = user.Metadata
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, pkgerrors.Wrap(err, "[Manager Issue] sign")
	}
	return signed, exp, nil
}

// Parse verifies raw and checks it was issued for purpose. Expired tokens
// return errors.ErrTokenExpired, everything else errors.ErrInvalidToken.
func (m *Manager) Parse(ctx context.Context, raw string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	if err != nil {
		if pkgerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.Wrapf(errors.ErrInvalidToken, "[Manager Parse] %v", err)
	}
	if claims.Purpose != purpose {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "[Manager Parse] purpose %q, want %q", claims.Purpose, purpose)
	}
	revoked, err := m.revokedCache.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Manager Parse] revocation check")
	}
	if revoked {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "[Manager Parse] token %s revoked", claims.ID)
	}
	return claims, nil
}

// Revoke blocks a token until it would have expired anyway. Invalid tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, raw string, purpose Purpose) error {
	claims, err := m.Parse(ctx, raw, purpose)
	if err != nil {
		return nil
	}
	return m.revokedCache.Add(ctx, claims.ID, claims.ExpiresAt.Time)
}
