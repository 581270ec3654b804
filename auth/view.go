package auth

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var ErrViewUnmounted = errors.New("auth view is not mounted")

// FormMode selects the schema a form is validated against.
type FormMode int

const (
	FormSignIn FormMode = iota
	FormSignUp
	FormResetRequest
)

func (m FormMode) String() string {
	switch m {
	case FormSignIn:
		return "signIn"
	case FormSignUp:
		return "signUp"
	case FormResetRequest:
		return "resetRequest"
	}
	return "unknown"
}

// FormState is the in-progress data of one form.
type FormState struct {
	Mode             FormMode          `json:"mode"`
	Fields           map[string]string `json:"fields"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

func newFormState(mode FormMode) FormState {
	return FormState{Mode: mode, Fields: map[string]string{}}
}

func (f FormState) clone() FormState {
	out := FormState{Mode: f.Mode, Fields: make(map[string]string, len(f.Fields))}
	for k, v := range f.Fields {
		out.Fields[k] = v
	}
	if len(f.ValidationErrors) > 0 {
		out.ValidationErrors = make(map[string]string, len(f.ValidationErrors))
		for k, v := range f.ValidationErrors {
			out.ValidationErrors[k] = v
		}
	}
	return out
}

// ViewState is a snapshot of an AuthView.
type ViewState struct {
	Main      FormState `json:"main"`
	ResetOpen bool      `json:"resetOpen"`
	Reset     FormState `json:"reset"`
	MainBusy  bool      `json:"mainBusy"`
	ResetBusy bool      `json:"resetBusy"`
	Error     string    `json:"error,omitempty"`
	Info      string    `json:"info,omitempty"`
}

// AuthView is the UI state of one mounted auth page. The main form toggles
// between sign-in and sign-up. The reset dialog is only reachable from sign-in
// and is submitted independently of the main form.
type AuthView struct {
	flow *FlowController

	mu        sync.Mutex
	mounted   bool
	main      FormState
	reset     FormState
	resetOpen bool
	mainBusy  bool
	resetBusy bool
	errMsg    string
	info      string

	// mainGen changes whenever the main form is replaced.
	mainGen uint64
}

// Mount creates a view in sign-in mode.
func (fc *FlowController) Mount() *AuthView {
	return &AuthView{
		flow:    fc,
		mounted: true,
		main:    newFormState(FormSignIn),
		reset:   newFormState(FormResetRequest),
	}
}

// Unmount tears the view down. Operations still in flight keep updating the
// session but no longer touch the view or navigate.
func (v *AuthView) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mounted = false
}

func (v *AuthView) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

func (v *AuthView) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ViewState{
		Main:      v.main.clone(),
		ResetOpen: v.resetOpen,
		Reset:     v.reset.clone(),
		MainBusy:  v.mainBusy,
		ResetBusy: v.resetBusy,
		Error:     v.errMsg,
		Info:      v.info,
	}
}

// ToggleForm switches between sign-in and sign-up. The email is kept, every
// other field and all validation errors are cleared.
func (v *AuthView) ToggleForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := FormSignUp
	if v.main.Mode == FormSignUp {
		next = FormSignIn
	}
	email := v.main.Fields["email"]
	v.main = newFormState(next)
	v.mainGen++
	if email != "" {
		v.main.Fields["email"] = email
	}
	if next == FormSignUp {
		v.resetOpen = false
		v.reset = newFormState(FormResetRequest)
	}
	v.errMsg, v.info = "", ""
}

// OpenResetDialog opens the reset dialog, prefilled with the sign-in email.
// It reports false outside sign-in mode.
func (v *AuthView) OpenResetDialog() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.main.Mode != FormSignIn {
		return false
	}
	if !v.resetOpen {
		v.reset = newFormState(FormResetRequest)
		if email := v.main.Fields["email"]; email != "" {
			v.reset.Fields["email"] = email
		}
	}
	v.resetOpen = true
	return true
}

func (v *AuthView) CloseResetDialog() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resetOpen = false
}

// SetField records a keystroke on the main form.
func (v *AuthView) SetField(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.main.Fields[name] = value
}

func (v *AuthView) SetResetField(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reset.Fields[name] = value
}

// Submit sends the main form in its current mode.
func (v *AuthView) Submit(ctx context.Context, navigate Navigate) error {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return ErrViewUnmounted
	}
	if v.mainBusy {
		v.mu.Unlock()
		return ErrSubmissionInFlight
	}
	v.mainBusy = true
	form := v.main.clone()
	gen := v.mainGen
	v.main.ValidationErrors = nil
	v.errMsg, v.info = "", ""
	v.mu.Unlock()

	nav := v.whileMounted(navigate)
	var (
		err  error
		info string
	)
	switch form.Mode {
	case FormSignUp:
		var su SignUpForm
		su, err = ParseSignUpFields(form.Fields["role"], form.Fields)
		if err == nil {
			var pc *PendingConfirmation
			pc, err = v.flow.SignUp(ctx, su, nav)
			if err == nil && !pc.SignedIn {
				info = "Check your email to confirm your account."
			}
		}
	default:
		_, err = v.flow.SignIn(ctx, form.Fields["email"], form.Fields["password"], nav)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted {
		return err
	}
	v.mainBusy = false
	if v.mainGen != gen {
		// The form that was submitted no longer exists.
		return err
	}
	v.info = info
	v.applyError(&v.main, err)
	return err
}

// SubmitReset sends the reset dialog. It may run alongside Submit.
func (v *AuthView) SubmitReset(ctx context.Context) error {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return ErrViewUnmounted
	}
	if !v.resetOpen {
		v.mu.Unlock()
		return errors.New("reset dialog is not open")
	}
	if v.resetBusy {
		v.mu.Unlock()
		return ErrSubmissionInFlight
	}
	v.resetBusy = true
	email := v.reset.Fields["email"]
	v.reset.ValidationErrors = nil
	v.mu.Unlock()

	err := v.flow.RequestPasswordReset(ctx, email)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted {
		return err
	}
	v.resetBusy = false
	if err == nil {
		v.resetOpen = false
		v.reset = newFormState(FormResetRequest)
		v.info = "If an account exists for that email, a reset link is on its way."
		return nil
	}
	v.applyError(&v.reset, err)
	return err
}

// applyError must be called with v.mu held.
func (v *AuthView) applyError(form *FormState, err error) {
	if err == nil {
		return
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		form.ValidationErrors = make(map[string]string, len(ve.Fields))
		for k, msg := range ve.Fields {
			form.ValidationErrors[k] = msg
		}
		return
	}
	var ce *CredentialError
	if errors.As(err, &ce) {
		delete(form.Fields, "password")
		delete(form.Fields, "confirmPassword")
	}
	v.errMsg = Message(err)
}

func (v *AuthView) whileMounted(navigate Navigate) Navigate {
	if navigate == nil {
		return nil
	}
	return func(path string) {
		if v.Mounted() {
			navigate(path)
		}
	}
}
