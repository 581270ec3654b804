package loginsession

import (
	"context"
	"time"
)

// Session is what a browser needs to resume its provider session after a restart.
type Session struct {
	// Core identity
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`

	// Tokens (refresh is essential, access is convenience)
	RefreshToken string `json:"refreshToken"`
	AccessToken  string `json:"accessToken"`

	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repo interface {
	Upsert(ctx context.Context, clientID string, session Session) error
	Get(ctx context.Context, clientID string) (Session, error)
	Delete(ctx context.Context, clientID string) error
}
