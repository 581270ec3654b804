package auth

import (
	"strings"

	"github.com/jrsteele09/go-edu-portal/internal/utils"
	"github.com/jrsteele09/go-edu-portal/users"
)

// SignupPayload carries the role-specific part of a registration. The
// concrete type selects which fields are validated.
type SignupPayload interface {
	Role() users.RoleType
	Metadata() map[string]any
	signupPayload()
}

type StudentPayload struct {
	GradeLevel string `json:"gradeLevel" validate:"required,notblank"`
	School     string `json:"school"`
}

func (StudentPayload) Role() users.RoleType { return users.RoleStudent }

func (p StudentPayload) Metadata() map[string]any {
	m := map[string]any{"gradeLevel": strings.TrimSpace(p.GradeLevel)}
	if p.School != "" {
		m["school"] = p.School
	}
	return m
}

func (StudentPayload) signupPayload() {}

type TeacherPayload struct {
	SubjectsTaught []string `json:"subjectsTaught" validate:"subjects"`
	School         string   `json:"school"`
}

func (TeacherPayload) Role() users.RoleType { return users.RoleTeacher }

func (p TeacherPayload) Metadata() map[string]any {
	subjects := make([]any, 0, len(p.SubjectsTaught))
	for _, s := range p.SubjectsTaught {
		subjects = append(subjects, strings.TrimSpace(s))
	}
	m := map[string]any{"subjectsTaught": subjects}
	if p.School != "" {
		m["school"] = p.School
	}
	return m
}

func (TeacherPayload) signupPayload() {}

type ParentPayload struct {
	ChildName  string `json:"childName" validate:"required,notblank"`
	ChildGrade string `json:"childGrade"`
}

func (ParentPayload) Role() users.RoleType { return users.RoleParent }

func (p ParentPayload) Metadata() map[string]any {
	m := map[string]any{"childName": strings.TrimSpace(p.ChildName)}
	if p.ChildGrade != "" {
		m["childGrade"] = p.ChildGrade
	}
	return m
}

func (ParentPayload) signupPayload() {}

// adminPayload only exists so an admin registration attempt can be rejected
// with a field error instead of a parse failure.
type adminPayload struct{}

func (adminPayload) Role() users.RoleType     { return users.RoleAdmin }
func (adminPayload) Metadata() map[string]any { return map[string]any{} }
func (adminPayload) signupPayload()           {}

// signUpMetadata packs the role, the full name and the role attributes for the provider.
func signUpMetadata(form SignUpForm) map[string]any {
	m := form.Payload.Metadata()
	m[users.MetadataRoleKey] = form.Payload.Role().String()
	m["fullName"] = strings.TrimSpace(form.FullName)
	return m
}

// PayloadFromMetadata rebuilds the registration payload stored on a user.
func PayloadFromMetadata(metadata map[string]any) (SignupPayload, bool) {
	str := func(key string) string {
		s, _ := metadata[key].(string)
		return s
	}
	switch users.RoleFromMetadata(metadata) {
	case users.RoleStudent:
		return StudentPayload{GradeLevel: str("gradeLevel"), School: str("school")}, true
	case users.RoleTeacher:
		return TeacherPayload{SubjectsTaught: utils.ToStringSlice(metadata["subjectsTaught"]), School: str("school")}, true
	case users.RoleParent:
		return ParentPayload{ChildName: str("childName"), ChildGrade: str("childGrade")}, true
	}
	return nil, false
}

// ParseSignUpFields builds a SignUpForm from submitted form fields. Only the
// role is checked here, everything else is left to validation.
func ParseSignUpFields(role string, fields map[string]string) (SignUpForm, error) {
	form := SignUpForm{
		FullName:        fields["fullName"],
		Email:           strings.TrimSpace(fields["email"]),
		Password:        fields["password"],
		ConfirmPassword: fields["confirmPassword"],
	}
	switch users.RoleType(strings.ToLower(strings.TrimSpace(role))) {
	case users.RoleStudent:
		form.Payload = StudentPayload{GradeLevel: fields["gradeLevel"], School: fields["school"]}
	case users.RoleTeacher:
		form.Payload = TeacherPayload{SubjectsTaught: splitList(fields["subjectsTaught"]), School: fields["school"]}
	case users.RoleParent:
		form.Payload = ParentPayload{ChildName: fields["childName"], ChildGrade: fields["childGrade"]}
	case users.RoleAdmin:
		form.Payload = adminPayload{}
	default:
		return form, &ValidationError{Fields: map[string]string{"role": "Choose a role"}}
	}
	return form, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
