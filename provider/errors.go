package provider

import (
	"fmt"

	"github.com/jrsteele09/go-edu-portal/internal/errors"
)

type ErrorCode string

const (
	CodeInvalidCredentials ErrorCode = "invalid_credentials"
	CodeEmailNotConfirmed  ErrorCode = "email_not_confirmed"
	CodeUserAlreadyExists  ErrorCode = "user_already_exists"
	CodeWeakPassword       ErrorCode = "weak_password"
	CodeRateLimited        ErrorCode = "over_request_rate_limit"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeUnexpected         ErrorCode = "unexpected_failure"
)

// Error is a failure reported by the auth provider.
type Error struct {
	Code    ErrorCode
	Message string
	Status  int
	Err     error
}

// codeSentinels lets callers match provider rejections with errors.Is.
var codeSentinels = map[ErrorCode]error{
	CodeInvalidCredentials: errors.ErrInvalidCredentials,
	CodeEmailNotConfirmed:  errors.ErrEmailNotConfirmed,
}

func NewError(code ErrorCode, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: codeSentinels[code]}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the provider code carried by err, or CodeUnexpected for any
// other non-nil error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeUnexpected
}
