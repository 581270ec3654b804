package auth_test

import (
	"testing"

	"github.com/jrsteele09/go-edu-portal/auth"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		form   any
		fields []string
	}{
		{"valid sign-in", auth.SignInForm{Email: "a@example.com", Password: "abc123"}, nil},
		{"short password", auth.SignInForm{Email: "a@example.com", Password: "abc12"}, []string{"password"}},
		{"bad email", auth.SignInForm{Email: "a@", Password: "abc123"}, []string{"email"}},
		{"empty reset", auth.ResetForm{}, []string{"email"}},
		{"blank grade", auth.StudentPayload{GradeLevel: " "}, []string{"gradeLevel"}},
		{"no subjects", auth.TeacherPayload{}, []string{"subjectsTaught"}},
		{"blank subject", auth.TeacherPayload{SubjectsTaught: []string{"Maths", " "}}, []string{"subjectsTaught"}},
		{"parent without child", auth.ParentPayload{}, []string{"childName"}},
		{"parent", auth.ParentPayload{ChildName: "Robin"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.Validate(tt.form)
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			var ve *auth.ValidationError
			require.ErrorAs(t, err, &ve)
			for _, f := range tt.fields {
				require.Contains(t, ve.Fields, f)
			}
			require.Len(t, ve.Fields, len(tt.fields))
		})
	}
}

func TestParseSignUpFields(t *testing.T) {
	base := map[string]string{"fullName": "Tia", "email": " tia@example.com ", "password": "abc123", "confirmPassword": "abc123"}

	t.Run("teacher subjects are split", func(t *testing.T) {
		fields := map[string]string{"subjectsTaught": "Maths, Physics,,", "school": "Hill"}
		for k, v := range base {
			fields[k] = v
		}
		form, err := auth.ParseSignUpFields("Teacher", fields)
		require.NoError(t, err)
		require.Equal(t, "tia@example.com", form.Email)
		require.Equal(t, auth.TeacherPayload{SubjectsTaught: []string{"Maths", "Physics"}, School: "Hill"}, form.Payload)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := auth.ParseSignUpFields("janitor", base)
		var ve *auth.ValidationError
		require.ErrorAs(t, err, &ve)
		require.Contains(t, ve.Fields, "role")
	})
}

func TestPayloadFromMetadata(t *testing.T) {
	p, ok := auth.PayloadFromMetadata(map[string]any{"role": "teacher", "subjectsTaught": []any{"Maths", 3, "Art"}})
	require.True(t, ok)
	require.Equal(t, users.RoleTeacher, p.Role())
	require.Equal(t, []string{"Maths", "Art"}, p.(auth.TeacherPayload).SubjectsTaught)

	p, ok = auth.PayloadFromMetadata(map[string]any{"gradeLevel": "5"})
	require.True(t, ok)
	require.Equal(t, auth.StudentPayload{GradeLevel: "5"}, p)

	_, ok = auth.PayloadFromMetadata(map[string]any{"role": "admin"})
	require.False(t, ok)
}

func TestMessage(t *testing.T) {
	require.Empty(t, auth.Message(nil))
	require.Equal(t, "Passwords don't match", auth.Message(&auth.ValidationError{Fields: map[string]string{"confirmPassword": "Passwords don't match"}}))
	require.Equal(t, auth.GenericMessage, auth.Message(&auth.ProviderError{Message: auth.GenericMessage}))
}
