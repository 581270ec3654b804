package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-edu-portal/internal/errors"
	"github.com/jrsteele09/go-edu-portal/users"
	fakeuserrepo "github.com/jrsteele09/go-edu-portal/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "Pat.Parent@Example.com"
	testPassword = "abc123"
)

func TestRoleFromMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		expected users.RoleType
	}{
		{"missing metadata", nil, users.RoleStudent},
		{"empty role", map[string]any{"role": "  "}, users.RoleStudent},
		{"non-string role", map[string]any{"role": 42}, users.RoleStudent},
		{"teacher", map[string]any{"role": "teacher"}, users.RoleTeacher},
		{"unknown kept verbatim", map[string]any{"role": "superuser"}, users.RoleType("superuser")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, users.RoleFromMetadata(tt.metadata))
		})
	}

	require.Equal(t, users.RoleStudent, users.NormaliseRole(""))
	require.Equal(t, users.RoleTeacher, users.NormaliseRole(" teacher "))
	require.Equal(t, users.RoleType("janitor"), users.NormaliseRole("janitor"))

	require.True(t, users.RoleAdmin.Known())
	require.False(t, users.RoleType("superuser").Known())
}

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword(testPassword)
	require.NoError(t, err)

	u := &users.User{PasswordHash: hash}
	require.True(t, u.CheckPassword(testPassword))
	require.False(t, u.CheckPassword("abc124"))
}

func TestUserCloneIsolatesMetadata(t *testing.T) {
	u := &users.User{ID: "u1", Role: users.RoleParent, Metadata: map[string]any{"childName": "Sam"}}
	c := u.Clone()
	c.Metadata["childName"] = "Alex"
	require.Equal(t, "Sam", u.Metadata["childName"])
	require.Equal(t, "parent", *u.RoleName())

	require.Equal(t, "student", *(&users.User{ID: "u2"}).RoleName())

	var nilUser *users.User
	require.Nil(t, nilUser.RoleName())
	require.Nil(t, nilUser.Clone())
}

func TestFakeUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	u := &users.User{Email: testEmail, Role: users.RoleParent}
	require.NoError(t, repo.Upsert(ctx, u))
	require.NotEmpty(t, u.ID)

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "pat.parent@example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		err := repo.Upsert(ctx, &users.User{Email: "pat.parent@example.com"})
		require.True(t, errors.Is(err, errors.ErrUserExists))
	})

	t.Run("returned users are copies", func(t *testing.T) {
		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		got.Role = users.RoleAdmin
		again, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, users.RoleParent, again.Role)
	})

	t.Run("set verified and last login", func(t *testing.T) {
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		require.NoError(t, repo.SetVerified(ctx, testEmail, true))
		require.NoError(t, repo.SetLastLogin(ctx, testEmail, at))
		got, err := repo.GetByEmail(ctx, testEmail)
		require.NoError(t, err)
		require.True(t, got.EmailVerified)
		require.Equal(t, at, got.LastLogin)
	})

	t.Run("list pages", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, &users.User{Email: "a@example.com"}))
		resp, err := repo.List(ctx, 0, 1)
		require.NoError(t, err)
		require.Equal(t, 2, resp.Total)
		require.Len(t, resp.Users, 1)
		require.Equal(t, "a@example.com", resp.Users[0].Email)

		resp, err = repo.List(ctx, 5, 1)
		require.NoError(t, err)
		require.Empty(t, resp.Users)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, testEmail))
		_, err := repo.GetByEmail(ctx, testEmail)
		require.True(t, errors.Is(err, errors.ErrUserNotFound))
		require.True(t, errors.Is(repo.Delete(ctx, testEmail), errors.ErrUserNotFound))
	})
}
