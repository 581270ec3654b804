package auth

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/pkg/errors"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	notBlankTag = "notblank"
	eqFieldTag  = "eqfield"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report form field names rather than Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if s, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return false
	})
	_ = validate.RegisterValidation("subjects", func(fl validator.FieldLevel) bool {
		subjects, ok := fl.Field().Interface().([]string)
		if !ok || len(subjects) == 0 {
			return false
		}
		for _, s := range subjects {
			if strings.TrimSpace(s) == "" {
				return false
			}
		}
		return true
	})

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, eqFieldTag, "subjects"} {
		_ = validate.RegisterTranslation(tag, translator, noop, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case eqFieldTag:
		return "Passwords don't match"
	case "subjects":
		return "list at least one subject"
	}
	return ""
}

type SignInForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type ResetForm struct {
	Email string `json:"email" validate:"required,email"`
}

type SignUpForm struct {
	FullName        string        `json:"fullName" validate:"required,notblank"`
	Email           string        `json:"email" validate:"required,email"`
	Password        string        `json:"password" validate:"required,min=6"`
	ConfirmPassword string        `json:"confirmPassword" validate:"required,eqfield=Password"`
	Payload         SignupPayload `json:"-" validate:"-"`
}

// Validate checks v against its validate tags. Failures come back as a
// *ValidationError keyed by form field name.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "[Validate]")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fe.Translate(translator)
		}
	}
	return &ValidationError{Fields: fields}
}

// validateSignUp checks the shared fields and the role payload together.
func validateSignUp(form SignUpForm) error {
	fields := map[string]string{}
	merge := func(err error) error {
		if err == nil {
			return nil
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		for k, msg := range ve.Fields {
			fields[k] = msg
		}
		return nil
	}

	if err := merge(Validate(form)); err != nil {
		return err
	}
	switch {
	case form.Payload == nil:
		fields["role"] = "Choose a role"
	case form.Payload.Role() == users.RoleAdmin:
		fields["role"] = "Admin accounts cannot be created here"
	default:
		if err := merge(Validate(form.Payload)); err != nil {
			return err
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
