package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var _ provider.Backend = (*Backend)(nil)

type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	// SignUpURL, RecoverURL and LogoutURL are the provider's user-management endpoints.
	SignUpURL  string
	RecoverURL string
	LogoutURL  string
	HTTPClient *http.Client
}

// Backend talks to a hosted OpenID Connect provider.
type Backend struct {
	cfg      Config
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	http     *http.Client
}

// NewBackend discovers the issuer's endpoints and keys.
func NewBackend(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.IssuerURL == "" || cfg.ClientID == "" {
		return nil, errors.New("[remote NewBackend] issuer URL and client ID are required")
	}
	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}
	p, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[remote NewBackend] discovery")
	}
	return NewBackendWithVerifier(cfg, p.Endpoint(), p.Verifier(&oidc.Config{ClientID: cfg.ClientID}))
}

// NewBackendWithVerifier skips discovery, for providers with fixed endpoints.
func NewBackendWithVerifier(cfg Config, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) (*Backend, error) {
	if verifier == nil {
		return nil, errors.New("[remote NewBackendWithVerifier] ID token verifier is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Backend{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess},
		},
		verifier: verifier,
		http:     httpClient,
	}, nil
}

func (b *Backend) Client(restore *provider.Session) provider.Provider {
	return newClient(b, restore)
}

func (b *Backend) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.http)
}

type idClaims struct {
	Email         string         `json:"email"`
	EmailVerified bool           `json:"email_verified"`
	Name          string         `json:"name"`
	Role          string         `json:"role"`
	UserMetadata  map[string]any `json:"user_metadata"`
}

// sessionFromToken verifies the ID token in tok and builds a session from it.
// fallback is used when a refresh response carries no ID token.
func (b *Backend) sessionFromToken(ctx context.Context, tok *oauth2.Token, fallback *users.User) (*provider.Session, error) {
	s := &provider.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		User:         fallback.Clone(),
	}
	rawID, _ := tok.Extra("id_token").(string)
	if rawID == "" {
		if fallback == nil {
			return nil, errors.New("[remote sessionFromToken] token response has no id_token")
		}
		return s, nil
	}
	idt, err := b.verifier.Verify(ctx, rawID)
	if err != nil {
		return nil, errors.Wrap(err, "[remote sessionFromToken] verify id_token")
	}
	var claims idClaims
	if err := idt.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[remote sessionFromToken] claims")
	}
	metadata := claims.UserMetadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	if _, ok := metadata[users.MetadataRoleKey]; !ok && claims.Role != "" {
		metadata[users.MetadataRoleKey] = claims.Role
	}
	s.User = &users.User{
		ID:            idt.Subject,
		Email:         claims.Email,
		FullName:      claims.Name,
		Role:          users.RoleFromMetadata(metadata),
		EmailVerified: claims.EmailVerified,
		Metadata:      metadata,
	}
	return s, nil
}

type errorResponse struct {
	Error       string `json:"error"`
	ErrorCode   string `json:"error_code"`
	Code        string `json:"code"`
	Msg         string `json:"msg"`
	Description string `json:"error_description"`
}

func (e errorResponse) code() string {
	for _, c := range []string{e.ErrorCode, e.Code, e.Error} {
		if c != "" {
			return c
		}
	}
	return ""
}

func (e errorResponse) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Description
}

// postJSON sends body to endpoint and decodes a 2xx response into out.
// Other statuses become provider errors.
func (b *Backend) postJSON(ctx context.Context, endpoint, bearer string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "[remote postJSON] marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "[remote postJSON] request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else if b.cfg.ClientSecret != "" {
		req.SetBasicAuth(b.cfg.ClientID, b.cfg.ClientSecret)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return &provider.Error{Code: provider.CodeUnexpected, Status: http.StatusBadGateway, Message: "Provider unreachable", Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &provider.Error{Code: provider.CodeUnexpected, Status: resp.StatusCode, Message: "Could not read provider response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		_ = json.Unmarshal(raw, &er)
		return mapError(resp.StatusCode, er.code(), er.message())
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &provider.Error{Code: provider.CodeUnexpected, Status: resp.StatusCode, Message: "Malformed provider response", Err: err}
	}
	return nil
}

// mapTokenError converts an OAuth token endpoint failure.
func mapTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := http.StatusBadRequest
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return mapError(status, re.ErrorCode, re.ErrorDescription)
	}
	return &provider.Error{Code: provider.CodeUnexpected, Status: http.StatusBadGateway, Message: "Provider unreachable", Err: err}
}

func mapError(status int, code, message string) error {
	lower := strings.ToLower(code + " " + message)
	var c provider.ErrorCode
	switch {
	case status == http.StatusTooManyRequests || code == "slow_down" || strings.Contains(lower, "rate_limit"):
		c = provider.CodeRateLimited
	case strings.Contains(lower, "not confirmed") || strings.Contains(lower, "not verified") || code == "email_not_confirmed":
		c = provider.CodeEmailNotConfirmed
	case code == "invalid_grant" || code == "invalid_credentials":
		c = provider.CodeInvalidCredentials
	case code == "user_already_exists" || code == "email_exists":
		c = provider.CodeUserAlreadyExists
	case code == "weak_password":
		c = provider.CodeWeakPassword
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		c = provider.CodeValidationFailed
	default:
		c = provider.CodeUnexpected
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return provider.NewError(c, status, message)
}
