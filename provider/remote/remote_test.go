package remote_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/jrsteele09/go-edu-portal/provider/remote"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const clientID = "portal"

type testIdP struct {
	srv        *httptest.Server
	key        *rsa.PrivateKey
	mu         sync.Mutex
	redirectTo string
	logouts    int
}

func (idp *testIdP) idToken(t *testing.T, sub, email string, metadata map[string]any) string {
	t.Helper()
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":            idp.srv.URL,
		"aud":            clientID,
		"sub":            sub,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"email":          email,
		"email_verified": true,
		"name":           "Pat Parent",
		"user_metadata":  metadata,
	})
	signed, err := tok.SignedString(idp.key)
	require.NoError(t, err)
	return signed
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestIdP(t *testing.T) *testIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	idp := &testIdP{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.Form.Get("grant_type") {
		case "password":
			switch {
			case r.Form.Get("username") == "pending@example.com":
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Email not confirmed"})
			case r.Form.Get("username") != "pat@example.com" || r.Form.Get("password") != "secret123":
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid user credentials"})
			default:
				writeJSON(w, http.StatusOK, map[string]any{
					"access_token":  "at-1",
					"refresh_token": "rt-1",
					"token_type":    "Bearer",
					"expires_in":    3600,
					"id_token":      idp.idToken(t, "user-1", "pat@example.com", map[string]any{"role": "parent"}),
				})
			}
		case "refresh_token":
			if r.Form.Get("refresh_token") != "rt-1" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Token is not active"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "at-2",
				"refresh_token": "rt-2",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"id_token":      idp.idToken(t, "user-1", "pat@example.com", map[string]any{"role": "parent"}),
			})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		}
	})
	mux.HandleFunc("POST /signup", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string         `json:"email"`
			Data  map[string]any `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Email == "pat@example.com" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error_code": "user_already_exists", "msg": "User already registered"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "user-2", "email": body.Email, "user_metadata": body.Data})
	})
	mux.HandleFunc("POST /recover", func(w http.ResponseWriter, r *http.Request) {
		idp.mu.Lock()
		idp.redirectTo = r.URL.Query().Get("redirect_to")
		idp.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		idp.mu.Lock()
		idp.logouts++
		idp.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)
	return idp
}

func setupTestFixture(t *testing.T) (*testIdP, *remote.Backend) {
	t.Helper()
	idp := newTestIdP(t)
	verifier := oidc.NewVerifier(idp.srv.URL, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&idp.key.PublicKey}}, &oidc.Config{ClientID: clientID})
	backend, err := remote.NewBackendWithVerifier(remote.Config{
		ClientID:   clientID,
		SignUpURL:  idp.srv.URL + "/signup",
		RecoverURL: idp.srv.URL + "/recover",
		LogoutURL:  idp.srv.URL + "/logout",
		HTTPClient: idp.srv.Client(),
	}, oauth2.Endpoint{TokenURL: idp.srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}, verifier)
	require.NoError(t, err)
	return idp, backend
}

func TestRemoteSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials build a session from the ID token", func(t *testing.T) {
		_, backend := setupTestFixture(t)
		client := backend.Client(nil)
		var got []provider.EventType
		client.OnAuthStateChange(func(e provider.Event) { got = append(got, e.Type) })

		s, err := client.SignInWithPassword(ctx, "pat@example.com", "secret123")
		require.NoError(t, err)
		require.Equal(t, "at-1", s.AccessToken)
		require.Equal(t, "user-1", s.User.ID)
		require.Equal(t, users.RoleParent, s.User.Role)
		require.Equal(t, "Pat Parent", s.User.FullName)
		require.Equal(t, []provider.EventType{provider.EventSignedIn}, got)
	})

	t.Run("bad password maps to invalid credentials", func(t *testing.T) {
		_, backend := setupTestFixture(t)
		_, err := backend.Client(nil).SignInWithPassword(ctx, "pat@example.com", "nope")
		require.Equal(t, provider.CodeInvalidCredentials, provider.CodeOf(err))
	})

	t.Run("unconfirmed email is reported", func(t *testing.T) {
		_, backend := setupTestFixture(t)
		_, err := backend.Client(nil).SignInWithPassword(ctx, "pending@example.com", "secret123")
		require.Equal(t, provider.CodeEmailNotConfirmed, provider.CodeOf(err))
	})

	t.Run("ID token signed by another key is rejected", func(t *testing.T) {
		idp := newTestIdP(t)
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		verifier := oidc.NewVerifier(idp.srv.URL, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&other.PublicKey}}, &oidc.Config{ClientID: clientID})
		backend, err := remote.NewBackendWithVerifier(remote.Config{ClientID: clientID, HTTPClient: idp.srv.Client()},
			oauth2.Endpoint{TokenURL: idp.srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}, verifier)
		require.NoError(t, err)

		_, err = backend.Client(nil).SignInWithPassword(ctx, "pat@example.com", "secret123")
		require.Equal(t, provider.CodeUnexpected, provider.CodeOf(err))
	})
}

func TestRemoteSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("new account without tokens awaits confirmation", func(t *testing.T) {
		_, backend := setupTestFixture(t)
		res, err := backend.Client(nil).SignUp(ctx, "new@example.com", "secret123", map[string]any{"role": "teacher", "fullName": "Tia Teacher"})
		require.NoError(t, err)
		require.Nil(t, res.Session)
		require.Equal(t, users.RoleTeacher, res.User.Role)
		require.Equal(t, "Tia Teacher", res.User.FullName)
		require.False(t, res.User.EmailVerified)
	})

	t.Run("existing account", func(t *testing.T) {
		_, backend := setupTestFixture(t)
		_, err := backend.Client(nil).SignUp(ctx, "pat@example.com", "secret123", nil)
		require.Equal(t, provider.CodeUserAlreadyExists, provider.CodeOf(err))
	})
}

func TestRemoteRecoveryAndSignOut(t *testing.T) {
	ctx := context.Background()
	idp, backend := setupTestFixture(t)
	client := backend.Client(nil)

	require.NoError(t, client.ResetPasswordForEmail(ctx, "pat@example.com", "http://portal.test/auth/update-password"))
	require.Equal(t, "http://portal.test/auth/update-password", idp.redirectTo)

	_, err := client.SignInWithPassword(ctx, "pat@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, client.SignOut(ctx))
	require.Equal(t, 1, idp.logouts)

	s, err := client.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestRemoteGetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("restored refresh token is exchanged", func(t *testing.T) {
		_, backend := setupTestFixture(t)
		client := backend.Client(&provider.Session{RefreshToken: "rt-1"})
		var got []provider.EventType
		client.OnAuthStateChange(func(e provider.Event) { got = append(got, e.Type) })

		s, err := client.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, s)
		require.Equal(t, "at-2", s.AccessToken)
		require.Equal(t, "rt-2", s.RefreshToken)
		require.Equal(t, users.RoleParent, s.User.Role)
		require.Equal(t, []provider.EventType{provider.EventTokenRefreshed}, got)
	})

	t.Run("rejected refresh token signs out", func(t *testing.T) {
		_, backend := setupTestFixture(t)
		client := backend.Client(&provider.Session{RefreshToken: "stale"})
		var got []provider.EventType
		client.OnAuthStateChange(func(e provider.Event) { got = append(got, e.Type) })

		s, err := client.GetSession(ctx)
		require.NoError(t, err)
		require.Nil(t, s)
		require.Equal(t, []provider.EventType{provider.EventSignedOut}, got)
	})

	t.Run("no session", func(t *testing.T) {
		_, backend := setupTestFixture(t)
		s, err := backend.Client(nil).GetSession(ctx)
		require.NoError(t, err)
		require.Nil(t, s)
	})
}
