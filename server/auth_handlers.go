package server

import (
	"net/http"

	"github.com/jrsteele09/go-edu-portal/auth"
	"github.com/jrsteele09/go-edu-portal/navigation"
	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/rs/zerolog/log"
)

var signUpFields = []string{
	"role", "fullName", "email", "password", "confirmPassword",
	"gradeLevel", "school", "subjectsTaught", "childName", "childGrade",
}

// switchMode puts the main form of v into mode.
func switchMode(v *auth.AuthView, mode auth.FormMode) {
	if v.State().Main.Mode != mode {
		v.ToggleForm()
	}
}

func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := s.portalClient(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, navigation.RouteAuth, "Invalid form submission")
			return
		}

		v := pc.authView()
		switchMode(v, auth.FormSignIn)
		v.SetField("email", r.PostForm.Get("email"))
		v.SetField("password", r.PostForm.Get("password"))

		target := navigation.RouteAuth
		if err := v.Submit(r.Context(), func(path string) { target = path }); err != nil {
			redirectWithError(w, r, navigation.RouteAuth, auth.Message(err))
			return
		}
		redirectSuccess(w, r, target)
	}
}

func (s *Server) SignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := s.portalClient(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, navigation.RouteAuth, "Invalid form submission")
			return
		}

		v := pc.authView()
		switchMode(v, auth.FormSignUp)
		for _, field := range signUpFields {
			if r.PostForm.Has(field) {
				v.SetField(field, r.PostForm.Get(field))
			}
		}

		target := navigation.RouteAuth
		if err := v.Submit(r.Context(), func(path string) { target = path }); err != nil {
			redirectWithError(w, r, navigation.RouteAuth, auth.Message(err))
			return
		}
		if info := v.State().Info; info != "" {
			redirectWithNotice(w, r, target, info)
			return
		}
		redirectSuccess(w, r, target)
	}
}

func (s *Server) ResetRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := s.portalClient(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, navigation.RouteAuth, "Invalid form submission")
			return
		}

		v := pc.authView()
		switchMode(v, auth.FormSignIn)
		v.OpenResetDialog()
		v.SetResetField("email", r.PostForm.Get("email"))
		if err := v.SubmitReset(r.Context()); err != nil {
			redirectWithError(w, r, navigation.RouteAuth, auth.Message(err))
			return
		}
		redirectWithNotice(w, r, navigation.RouteAuth, v.State().Info)
	}
}

func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := s.portalClient(w, r)
		if !ok {
			return
		}
		target := navigation.RouteAuth
		if err := pc.flow.SignOut(r.Context(), func(path string) { target = path }); err != nil {
			log.Err(err).Str("client", pc.id).Msg("provider sign-out failed")
		}
		redirectSuccess(w, r, target)
	}
}

func (s *Server) ToggleFormHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := s.portalClient(w, r)
		if !ok {
			return
		}
		pc.authView().ToggleForm()
		redirectSuccess(w, r, navigation.RouteAuth)
	}
}

func (s *Server) ResetDialogHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := s.portalClient(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, navigation.RouteAuth, "Invalid form submission")
			return
		}
		v := pc.authView()
		if r.PostForm.Get("open") == "false" {
			v.CloseResetDialog()
			redirectSuccess(w, r, navigation.RouteAuth)
			return
		}
		if !v.OpenResetDialog() {
			redirectWithError(w, r, navigation.RouteAuth, "Password reset is only available from sign in.")
			return
		}
		redirectSuccess(w, r, navigation.RouteAuth)
	}
}

func (s *Server) ConfirmEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		confirmer, ok := s.backend.(provider.EmailConfirmer)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if _, err := confirmer.ConfirmEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
			log.Info().Err(err).Msg("email confirmation failed")
			redirectWithError(w, r, navigation.RouteAuth, "This confirmation link is invalid or has expired.")
			return
		}
		redirectWithNotice(w, r, navigation.RouteAuth, "Email confirmed. You can sign in now.")
	}
}

type updatePasswordForm struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func (s *Server) UpdatePasswordPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.backend.(provider.PasswordUpdater); !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"view":  "update-password",
			"token": r.URL.Query().Get("token"),
			"error": r.URL.Query().Get("error"),
		})
	}
}

func (s *Server) UpdatePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		updater, ok := s.backend.(provider.PasswordUpdater)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, navigation.RouteAuth, "Invalid form submission")
			return
		}
		form := updatePasswordForm{
			Token:           r.PostForm.Get("token"),
			Password:        r.PostForm.Get("password"),
			ConfirmPassword: r.PostForm.Get("confirmPassword"),
		}
		retry := withQuery(RouteAuthUpdatePassword, "token", form.Token)
		if err := auth.Validate(form); err != nil {
			redirectWithError(w, r, retry, auth.Message(err))
			return
		}
		if err := updater.UpdatePassword(r.Context(), form.Token, form.Password); err != nil {
			log.Info().Err(err).Msg("password update failed")
			redirectWithError(w, r, navigation.RouteAuth, "This reset link is invalid or has expired.")
			return
		}
		redirectWithNotice(w, r, navigation.RouteAuth, "Password updated. Please sign in.")
	}
}
