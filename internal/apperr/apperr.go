// Package apperr defines the coded errors exchanged with the backend service
// and maps them to user-facing messages.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Canonical error codes. Identity codes use the auth/<kebab-identifier> form.
const (
	CodeWrongPassword    = "auth/wrong-password"
	CodeUserNotFound     = "auth/user-not-found"
	CodeInvalidEmail     = "auth/invalid-email"
	CodeEmailInUse       = "auth/email-already-in-use"
	CodeWeakPassword     = "auth/weak-password"
	CodeTooManyRequests  = "auth/too-many-requests"
	CodeNetwork          = "auth/network-request-failed"
	CodeTokenExpired     = "auth/user-token-expired"
	CodeProfileMissing   = "auth/profile-missing"
	CodePermissionDenied = "permission-denied"
	CodeInvalidArgument  = "invalid-argument"
	CodeValidation       = "validation/invalid-field"
	CodeInternal         = "internal"
)

// Kind classifies an error for routing and presentation.
type Kind int

const (
	KindUnknown Kind = iota
	KindCredential
	KindRegistration
	KindRateLimit
	KindNetwork
	KindAuthorization
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindCredential:
		return "CredentialError"
	case KindRegistration:
		return "RegistrationError"
	case KindRateLimit:
		return "RateLimitError"
	case KindNetwork:
		return "NetworkError"
	case KindAuthorization:
		return "AuthorizationError"
	case KindValidation:
		return "ValidationError"
	default:
		return "UnknownError"
	}
}

// Error is a tagged error carrying a canonical code.
type Error struct {
	Code    string
	Message string
	Err     error
}

// New returns an error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap returns an error with the given code that wraps err.
func Wrap(code string, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Err: err}
}

// Validation returns a client-side field validation error.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%sError (%s).", vendorPrefix, e.Code)
	}
	return fmt.Sprintf("%s%s (%s).", vendorPrefix, e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches coded errors by code so sentinels compare equal to rehydrated copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// KindOf classifies err by its code.
func KindOf(err error) Kind {
	code := CodeOf(err)
	if code == "" && err != nil {
		code = scanCode(err.Error())
	}
	if strings.HasPrefix(code, "validation/") {
		return KindValidation
	}
	if entry, ok := table[code]; ok {
		return entry.kind
	}
	return KindUnknown
}
