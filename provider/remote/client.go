package remote

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var _ provider.Provider = (*Client)(nil)

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
	tok, err := c.backend.oauth.PasswordCredentialsToken(c.backend.oauthContext(ctx), email, password)
	if err != nil {
		return nil, mapTokenError(err)
	}
	s, err := c.backend.sessionFromToken(ctx, tok, nil)
	if err != nil {
		return nil, &provider.Error{Code: provider.CodeUnexpected, Status: http.StatusBadGateway, Message: "Invalid provider token", Err: err}
	}
	c.setSession(s)
	c.events.Emit(provider.EventSignedIn, s)
	return s, nil
}

type signUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

type signUpResponse struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
	AccessToken      string         `json:"access_token"`
	RefreshToken     string         `json:"refresh_token"`
	ExpiresIn        int64          `json:"expires_in"`
	IDToken          string         `json:"id_token"`
}

func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*provider.SignUpResult, error) {
	if c.backend.cfg.SignUpURL == "" {
		return nil, provider.NewError(provider.CodeUnexpected, http.StatusNotImplemented, "Sign-up is not available")
	}
	var resp signUpResponse
	if err := c.backend.postJSON(ctx, c.backend.cfg.SignUpURL, "", signUpRequest{Email: email, Password: password, Data: metadata}, &resp); err != nil {
		return nil, err
	}
	if resp.UserMetadata == nil {
		resp.UserMetadata = metadata
	}
	u := &users.User{
		ID:            resp.ID,
		Email:         resp.Email,
		Role:          users.RoleFromMetadata(resp.UserMetadata),
		EmailVerified: resp.EmailConfirmedAt != nil,
		Metadata:      resp.UserMetadata,
	}
	if name, ok := resp.UserMetadata["fullName"].(string); ok {
		u.FullName = name
	}
	if resp.AccessToken == "" {
		return &provider.SignUpResult{User: u}, nil
	}

	tok := (&oauth2.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}).WithExtra(map[string]any{"id_token": resp.IDToken})
	s, err := c.backend.sessionFromToken(ctx, tok, u)
	if err != nil {
		return nil, &provider.Error{Code: provider.CodeUnexpected, Status: http.StatusBadGateway, Message: "Invalid provider token", Err: err}
	}
	c.setSession(s)
	c.events.Emit(provider.EventSignedIn, s)
	return &provider.SignUpResult{User: s.User, Session: s}, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s != nil && c.backend.cfg.LogoutURL != "" {
		if err := c.backend.postJSON(ctx, c.backend.cfg.LogoutURL, s.AccessToken, struct{}{}, nil); err != nil {
			log.Err(err).Msg("provider logout failed, session cleared locally")
		}
	}
	c.events.Emit(provider.EventSignedOut, nil)
	return nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	if c.backend.cfg.RecoverURL == "" {
		return provider.NewError(provider.CodeUnexpected, http.StatusNotImplemented, "Password recovery is not available")
	}
	endpoint, err := url.Parse(c.backend.cfg.RecoverURL)
	if err != nil {
		return &provider.Error{Code: provider.CodeUnexpected, Status: http.StatusInternalServerError, Message: "Invalid recover URL", Err: err}
	}
	if redirectTo != "" {
		q := endpoint.Query()
		q.Set("redirect_to", redirectTo)
		endpoint.RawQuery = q.Encode()
	}
	return c.backend.postJSON(ctx, endpoint.String(), "", map[string]string{"email": email}, nil)
}

func (c *Client) GetSession(ctx context.Context) (*provider.Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil, nil
	}
	if s.User != nil && !s.Expired(time.Now()) {
		return s, nil
	}
	if s.RefreshToken == "" {
		c.setSession(nil)
		return nil, nil
	}
	return c.refresh(ctx, s)
}

func (c *Client) refresh(ctx context.Context, s *provider.Session) (*provider.Session, error) {
	src := c.backend.oauth.TokenSource(c.backend.oauthContext(ctx), &oauth2.Token{RefreshToken: s.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			c.setSession(nil)
			c.events.Emit(provider.EventSignedOut, nil)
			return nil, nil
		}
		return nil, mapTokenError(err)
	}
	fresh, err := c.backend.sessionFromToken(ctx, tok, s.User)
	if err != nil {
		c.setSession(nil)
		c.events.Emit(provider.EventSignedOut, nil)
		return nil, nil
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
