package auth_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-edu-portal/auth"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/stretchr/testify/require"
)

func TestAuthViewModes(t *testing.T) {
	f := setupTestFixture(t, false)

	t.Run("starts in sign-in with the dialog closed", func(t *testing.T) {
		v := f.flow.Mount()
		s := v.State()
		require.Equal(t, auth.FormSignIn, s.Main.Mode)
		require.False(t, s.ResetOpen)
		require.Equal(t, auth.FormResetRequest, s.Reset.Mode)
	})

	t.Run("toggling keeps the email and clears the rest", func(t *testing.T) {
		v := f.flow.Mount()
		v.SetField("email", "pat@example.com")
		v.SetField("password", "abc")
		require.Error(t, v.Submit(context.Background(), nil))
		require.NotEmpty(t, v.State().Main.ValidationErrors)

		v.ToggleForm()
		s := v.State()
		require.Equal(t, auth.FormSignUp, s.Main.Mode)
		require.Equal(t, map[string]string{"email": "pat@example.com"}, s.Main.Fields)
		require.Empty(t, s.Main.ValidationErrors)

		v.ToggleForm()
		require.Equal(t, auth.FormSignIn, v.State().Main.Mode)
		require.Equal(t, "pat@example.com", v.State().Main.Fields["email"])
	})

	t.Run("reset dialog is only reachable from sign-in", func(t *testing.T) {
		v := f.flow.Mount()
		v.SetField("email", "pat@example.com")
		require.True(t, v.OpenResetDialog())
		require.Equal(t, "pat@example.com", v.State().Reset.Fields["email"])

		v.ToggleForm()
		require.False(t, v.State().ResetOpen)
		require.False(t, v.OpenResetDialog())

		v.ToggleForm()
		require.True(t, v.OpenResetDialog())
		v.CloseResetDialog()
		require.False(t, v.State().ResetOpen)
	})
}

func TestAuthViewSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("credential error clears the password and keeps the email", func(t *testing.T) {
		f := setupTestFixture(t, false)
		f.seed(t, parentEmail, users.RoleParent)
		v := f.flow.Mount()
		v.SetField("email", parentEmail)
		v.SetField("password", "wrong-one")

		err := v.Submit(ctx, f.navigate)
		require.Error(t, err)
		s := v.State()
		require.Equal(t, auth.CredentialMessage, s.Error)
		require.Equal(t, parentEmail, s.Main.Fields["email"])
		require.NotContains(t, s.Main.Fields, "password")
		require.False(t, s.MainBusy)
	})

	t.Run("sign-up mode submits the role payload", func(t *testing.T) {
		f := setupTestFixture(t, true)
		v := f.flow.Mount()
		v.ToggleForm()
		for k, val := range map[string]string{
			"role": "parent", "fullName": "Pat Parent", "email": "pat@example.com",
			"password": "abc123", "confirmPassword": "abc123", "childName": "Robin",
		} {
			v.SetField(k, val)
		}

		require.NoError(t, v.Submit(ctx, f.navigate))
		require.Equal(t, []string{"/"}, f.visited)
		require.Contains(t, v.State().Info, "Check your email")

		u, err := f.repo.GetByEmail(ctx, "pat@example.com")
		require.NoError(t, err)
		require.Equal(t, users.RoleParent, u.Role)
		require.Equal(t, "Robin", u.Metadata["childName"])
	})

	t.Run("mismatched confirmation lands on the confirmation field", func(t *testing.T) {
		f := setupTestFixture(t, true)
		v := f.flow.Mount()
		v.ToggleForm()
		for k, val := range map[string]string{
			"role": "student", "fullName": "Sam", "email": "sam@example.com",
			"password": "abc123", "confirmPassword": "abc124", "gradeLevel": "7",
		} {
			v.SetField(k, val)
		}

		require.Error(t, v.Submit(ctx, f.navigate))
		require.Equal(t, "Passwords don't match", v.State().Main.ValidationErrors["confirmPassword"])
		require.Empty(t, v.State().Error)
		require.Zero(t, f.provider.Calls("signup"))
	})

	t.Run("reset dialog reports success and closes", func(t *testing.T) {
		f := setupTestFixture(t, false)
		v := f.flow.Mount()
		require.True(t, v.OpenResetDialog())
		v.SetResetField("email", "user@example.com")

		require.NoError(t, v.SubmitReset(ctx))
		s := v.State()
		require.False(t, s.ResetOpen)
		require.NotEmpty(t, s.Info)
		require.Nil(t, f.store.Current().Principal)
	})

	t.Run("reset needs an open dialog", func(t *testing.T) {
		f := setupTestFixture(t, false)
		require.Error(t, f.flow.Mount().SubmitReset(ctx))
	})
}

func TestAuthViewConcurrency(t *testing.T) {
	ctx := context.Background()

	setupGated := func(t *testing.T) (*testFixture, *auth.AuthView) {
		f := setupTestFixture(t, false)
		f.seed(t, parentEmail, users.RoleParent)
		f.provider.gate = make(chan struct{})
		f.provider.entered = make(chan struct{}, 1)
		v := f.flow.Mount()
		v.SetField("email", parentEmail)
		v.SetField("password", parentPassword)
		return f, v
	}

	t.Run("second submit of the same form is refused", func(t *testing.T) {
		f, v := setupGated(t)
		done := make(chan error, 1)
		go func() { done <- v.Submit(ctx, nil) }()
		<-f.provider.entered

		require.True(t, v.State().MainBusy)
		require.ErrorIs(t, v.Submit(ctx, nil), auth.ErrSubmissionInFlight)

		// The reset form is independent of the main form.
		require.True(t, v.OpenResetDialog())
		v.SetResetField("email", "user@example.com")
		require.NoError(t, v.SubmitReset(ctx))

		close(f.provider.gate)
		require.NoError(t, <-done)
		require.False(t, v.State().MainBusy)
		require.Equal(t, 1, f.provider.Calls("signin"))
	})

	t.Run("result after a toggle leaves the new form alone", func(t *testing.T) {
		f, v := setupGated(t)
		v.SetField("password", "wrong-password")
		done := make(chan error, 1)
		go func() { done <- v.Submit(ctx, nil) }()
		<-f.provider.entered

		v.ToggleForm()
		v.SetField("password", "secret1")
		v.SetField("fullName", "New Person")
		close(f.provider.gate)

		err := <-done
		var ce *auth.CredentialError
		require.ErrorAs(t, err, &ce)

		state := v.State()
		require.Equal(t, auth.FormSignUp, state.Main.Mode)
		require.Equal(t, "secret1", state.Main.Fields["password"])
		require.Equal(t, "New Person", state.Main.Fields["fullName"])
		require.Equal(t, parentEmail, state.Main.Fields["email"])
		require.Empty(t, state.Main.ValidationErrors)
		require.Empty(t, state.Error)
		require.False(t, state.MainBusy)
		require.Nil(t, f.store.Current().Principal)
	})

	t.Run("result after unmount updates the session only", func(t *testing.T) {
		f, v := setupGated(t)
		var navigated []string
		done := make(chan error, 1)
		go func() { done <- v.Submit(ctx, func(p string) { navigated = append(navigated, p) }) }()
		<-f.provider.entered

		v.Unmount()
		close(f.provider.gate)
		require.NoError(t, <-done)

		require.Empty(t, navigated)
		require.True(t, v.State().MainBusy)
		require.Equal(t, users.RoleParent, f.store.Current().Principal.Role)
		require.ErrorIs(t, v.Submit(ctx, nil), auth.ErrViewUnmounted)
	})
}
