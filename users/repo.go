package users

import (
	"context"
	"strings"
	"time"
)

type UserRepo interface {
	Upsert(ctx context.Context, user *User) error
	Delete(ctx context.Context, email string) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, offset, limit int) (UsersListResponse, error)
	SetVerified(ctx context.Context, email string, verified bool) error
	SetLastLogin(ctx context.Context, email string, at time.Time) error
}

type UsersListResponse struct {
	Users  []*User `json:"users"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// NormaliseEmail is the key every repo stores emails under.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
