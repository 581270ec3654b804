package auth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jrsteele09/go-edu-portal/provider"
	"github.com/pkg/errors"
)

const (
	CredentialMessage  = "Invalid email or password. Please check your details and try again."
	UnconfirmedMessage = "Please confirm your email address before signing in."
	AccountExists      = "An account with this email already exists."
	RateLimitedMessage = "Too many attempts. Please wait a moment and try again."
	GenericMessage     = "Something went wrong. Please try again."
)

var ErrSubmissionInFlight = errors.New("submission already in flight")

// ValidationError is a local form failure. It never reaches the provider.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// CredentialError is a provider rejection of the submitted credentials.
type CredentialError struct {
	Code    provider.ErrorCode
	Message string
}

func (e *CredentialError) Error() string {
	return e.Message
}

// ProviderError is any other remote failure.
type ProviderError struct {
	Code    provider.ErrorCode
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// classify maps a provider failure onto the flow's error taxonomy.
func classify(err error) error {
	code := provider.CodeOf(err)
	switch code {
	case provider.CodeInvalidCredentials:
		return &CredentialError{Code: code, Message: CredentialMessage}
	case provider.CodeEmailNotConfirmed:
		return &CredentialError{Code: code, Message: UnconfirmedMessage}
	case provider.CodeUserAlreadyExists:
		return &ProviderError{Code: code, Message: AccountExists, Err: err}
	case provider.CodeRateLimited:
		return &ProviderError{Code: code, Message: RateLimitedMessage, Err: err}
	case provider.CodeWeakPassword:
		return &ValidationError{Fields: map[string]string{"password": "Password is too weak"}}
	}
	return &ProviderError{Code: code, Message: GenericMessage, Err: err}
}

// Message returns the notification text for an error returned by the flow.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		keys := make([]string, 0, len(ve.Fields))
		for k := range ve.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			return ve.Fields[keys[0]]
		}
		return GenericMessage
	}
	var ce *CredentialError
	if errors.As(err, &ce) {
		return ce.Message
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Message
	}
	if errors.Is(err, ErrSubmissionInFlight) {
		return "Please wait for the current request to finish."
	}
	return GenericMessage
}

// outcome labels an error for metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var ve *ValidationError
	var ce *CredentialError
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &ce):
		return "rejected"
	case errors.Is(err, ErrSubmissionInFlight):
		return "in_flight"
	}
	return "error"
}
