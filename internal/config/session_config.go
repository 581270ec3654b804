package config

import "time"

type SessionConfig interface {
	GetSessionCookieName() string
	GetMaxSessionAge() time.Duration
	GetClientIdleTimeout() time.Duration
	GetTokenSecret() string
	GetTokenIssuer() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRecoveryTokenExpiry() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionCookieName() string {
	return GetEnv("SESSION_COOKIE_NAME", "portal_session")
}

func (Session) GetMaxSessionAge() time.Duration {
	return GetDuration("SESSION_MAX_AGE", 7*24*time.Hour)
}

// GetClientIdleTimeout is how long an unused browser client stays in memory.
func (Session) GetClientIdleTimeout() time.Duration {
	return GetDuration("CLIENT_IDLE_TIMEOUT", 30*time.Minute)
}

func (Session) GetTokenSecret() string {
	return GetEnv("TOKEN_SECRET", "dev-secret-change-me")
}

func (Session) GetTokenIssuer() string {
	return GetEnv("TOKEN_ISSUER", "edu-portal")
}

func (Session) GetAccessTokenExpiry() time.Duration {
	return GetDuration("ACCESS_TOKEN_EXPIRY", time.Hour)
}

func (Session) GetRefreshTokenExpiry() time.Duration {
	return GetDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
}

func (Session) GetRecoveryTokenExpiry() time.Duration {
	return GetDuration("RECOVERY_TOKEN_EXPIRY", time.Hour)
}
