package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-edu-portal/internal/errors"
	"github.com/jrsteele09/go-edu-portal/token"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/stretchr/testify/require"
)

const (
	secretStr = "1234"
	issuer    = "com.testissuer"
)

type testFixture struct {
	now     time.Time
	manager *token.Manager
	user    *users.User
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		user: &users.User{
			ID:       "user-1",
			Email:    "sam@example.com",
			Role:     users.RoleStudent,
			Metadata: map[string]any{"role": "student", "gradeLevel": "7"},
		},
	}
	m, err := token.New(secretStr,
		token.WithIssuer(issuer),
		token.WithNowFunc(func() time.Time { return f.now }),
		token.WithTokenExpiry(token.PurposeAccess, time.Minute),
	)
	require.NoError(t, err)
	f.manager = m
	return f
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("secret required", func(t *testing.T) {
		_, err := token.New("")
		require.Error(t, err)
	})

	t.Run("round trip", func(t *testing.T) {
		f := setupTestFixture(t)
		raw, exp, err := f.manager.Issue(f.user, token.PurposeAccess)
		require.NoError(t, err)
		require.Equal(t, f.now.Add(time.Minute), exp)

		claims, err := f.manager.Parse(ctx, raw, token.PurposeAccess)
		require.NoError(t, err)
		require.Equal(t, "user-1", claims.Subject)
		require.Equal(t, "student", claims.Role)
		require.Equal(t, "7", claims.Metadata["gradeLevel"])
	})

	t.Run("purpose mismatch", func(t *testing.T) {
		f := setupTestFixture(t)
		raw, _, err := f.manager.Issue(f.user, token.PurposeRecovery)
		require.NoError(t, err)
		_, err = f.manager.Parse(ctx, raw, token.PurposeAccess)
		require.True(t, errors.Is(err, errors.ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		f := setupTestFixture(t)
		raw, _, err := f.manager.Issue(f.user, token.PurposeAccess)
		require.NoError(t, err)
		f.now = f.now.Add(2 * time.Minute)
		_, err = f.manager.Parse(ctx, raw, token.PurposeAccess)
		require.True(t, errors.Is(err, errors.ErrTokenExpired))
	})

	t.Run("foreign signature", func(t *testing.T) {
		f := setupTestFixture(t)
		other, err := token.New("other-secret", token.WithIssuer(issuer), token.WithNowFunc(func() time.Time { return f.now }))
		require.NoError(t, err)
		raw, _, err := other.Issue(f.user, token.PurposeAccess)
		require.NoError(t, err)
		_, err = f.manager.Parse(ctx, raw, token.PurposeAccess)
		require.True(t, errors.Is(err, errors.ErrInvalidToken))
	})

	t.Run("revoked", func(t *testing.T) {
		f := setupTestFixture(t)
		raw, _, err := f.manager.Issue(f.user, token.PurposeRefresh)
		require.NoError(t, err)
		require.NoError(t, f.manager.Revoke(ctx, raw, token.PurposeRefresh))
		_, err = f.manager.Parse(ctx, raw, token.PurposeRefresh)
		require.True(t, errors.Is(err, errors.ErrInvalidToken))
		require.NoError(t, f.manager.Revoke(ctx, "garbage", token.PurposeRefresh))
	})
}

func TestInMemoryRevokedTokenCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	c := token.NewInMemoryRevokedTokenCache(func() time.Time { return now })

	require.NoError(t, c.Add(ctx, "jti-1", now.Add(time.Minute)))
	revoked, err := c.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = c.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)
}
