package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/jrsteele09/go-edu-portal/internal/metrics"
	"github.com/jrsteele09/go-edu-portal/navigation"
	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/jrsteele09/go-edu-portal/sessions"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Navigate asks the caller to move to path.
type Navigate func(path string)

// PendingConfirmation describes a completed registration.
type PendingConfirmation struct {
	Email string
	Role  users.RoleType
	// SignedIn is set when the provider opened a session without email confirmation.
	SignedIn bool
}

// FlowController owns every write to one browser's session.
type FlowController struct {
	provider         provider.Provider
	writer           *sessions.Writer
	resetRedirectURL string

	mu  sync.Mutex
	sub *provider.Subscription
}

func NewFlowController(p provider.Provider, w *sessions.Writer, resetRedirectURL string) (*FlowController, error) {
	if p == nil {
		return nil, errors.New("[NewFlowController] provider is required")
	}
	if w == nil {
		return nil, errors.New("[NewFlowController] session writer is required")
	}
	return &FlowController{provider: p, writer: w, resetRedirectURL: resetRedirectURL}, nil
}

// Session returns the read side of the controlled session.
func (fc *FlowController) Session() *sessions.Store {
	return fc.writer.Store()
}

// Start follows the provider's auth-state changes and runs the initial
// session check. The session leaves the loading state even when the check fails.
func (fc *FlowController) Start(ctx context.Context) error {
	fc.mu.Lock()
	if fc.sub == nil {
		fc.sub = fc.provider.OnAuthStateChange(func(evt provider.Event) {
			metrics.SessionEvents.WithLabelValues(string(evt.Type)).Inc()
			fc.writer.Apply(evt)
		})
	}
	fc.mu.Unlock()

	if err := fc.writer.Bootstrap(ctx, fc.provider); err != nil {
		log.Warn().Err(err).Msg("initial session check failed, continuing signed out")
		return errors.Wrap(err, "[Start] session check")
	}
	return nil
}

// Stop detaches from the provider.
func (fc *FlowController) Stop() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.sub.Unsubscribe()
	fc.sub = nil
}

func (fc *FlowController) SignIn(ctx context.Context, email, password string, navigate Navigate) (u *users.User, err error) {
	defer record("signin", &err)

	form := SignInForm{Email: strings.TrimSpace(email), Password: password}
	if err := Validate(form); err != nil {
		return nil, err
	}
	s, err := fc.provider.SignInWithPassword(ctx, form.Email, form.Password)
	if err != nil {
		log.Info().Str("email", form.Email).Str("code", string(provider.CodeOf(err))).Msg("sign-in rejected")
		return nil, classify(err)
	}
	if s == nil || s.User == nil {
		return nil, &ProviderError{Code: provider.CodeUnexpected, Message: GenericMessage}
	}

	fc.writer.SignedIn(s.User)
	if navigate != nil {
		navigate(navigation.Resolve(s.User.RoleName()))
	}
	return s.User.Clone(), nil
}

func (fc *FlowController) SignUp(ctx context.Context, form SignUpForm, navigate Navigate) (pc *PendingConfirmation, err error) {
	defer record("signup", &err)

	form.Email = strings.TrimSpace(form.Email)
	if err := validateSignUp(form); err != nil {
		return nil, err
	}
	res, err := fc.provider.SignUp(ctx, form.Email, form.Password, signUpMetadata(form))
	if err != nil {
		log.Info().Str("email", form.Email).Str("code", string(provider.CodeOf(err))).Msg("sign-up rejected")
		return nil, classify(err)
	}

	pc = &PendingConfirmation{Email: form.Email, Role: form.Payload.Role()}
	if res != nil && res.Session != nil && res.Session.User != nil {
		pc.SignedIn = true
		fc.writer.SignedIn(res.Session.User)
		if navigate != nil {
			navigate(navigation.Resolve(res.Session.User.RoleName()))
		}
		return pc, nil
	}
	if navigate != nil {
		navigate(navigation.RouteHome)
	}
	return pc, nil
}

// RequestPasswordReset sends a recovery link. The session is never touched.
func (fc *FlowController) RequestPasswordReset(ctx context.Context, email string) (err error) {
	defer record("reset", &err)

	form := ResetForm{Email: strings.TrimSpace(email)}
	if err := Validate(form); err != nil {
		return err
	}
	if err := fc.provider.ResetPasswordForEmail(ctx, form.Email, fc.resetRedirectURL); err != nil {
		return classify(err)
	}
	return nil
}

// SignOut clears the session even when the provider call fails.
func (fc *FlowController) SignOut(ctx context.Context, navigate Navigate) (err error) {
	defer record("signout", &err)

	perr := fc.provider.SignOut(ctx)
	fc.writer.SignedOut()
	if navigate != nil {
		navigate(navigation.RouteAuth)
	}
	if perr != nil {
		log.Warn().Err(perr).Msg("provider sign-out failed")
		return classify(perr)
	}
	return nil
}

func record(operation string, err *error) {
	metrics.AuthAttempts.WithLabelValues(operation, outcome(*err)).Inc()
}
