// Package apperr defines the typed errors returned by the registration,
// identifier and booking services. Callers branch on Kind with errors.Is
// against the exported sentinels, never on message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindDuplicateEmail   Kind = "DUPLICATE_EMAIL"
	KindDuplicateLicense Kind = "DUPLICATE_LICENSE"
	KindInvalidSeed      Kind = "INVALID_SEED"
	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
	KindNotFound         Kind = "NOT_FOUND"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindOTPRequired      Kind = "OTP_REQUIRED"
)

// Error carries the kind plus an optional field-level reason. Reason is safe
// to show to clients; Err is the underlying cause and is only logged.
type Error struct {
	Kind   Kind
	Field  string
	Reason string
	Err    error
}

var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrDuplicateEmail   = &Error{Kind: KindDuplicateEmail}
	ErrDuplicateLicense = &Error{Kind: KindDuplicateLicense}
	ErrInvalidSeed      = &Error{Kind: KindInvalidSeed}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrOTPRequired      = &Error{Kind: KindOTPRequired}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrDuplicateEmail)
// holds for every duplicate-email error regardless of field or reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(field, reason string) *Error {
	return &Error{Kind: KindValidation, Field: field, Reason: reason}
}

func DuplicateEmail() *Error {
	return &Error{Kind: KindDuplicateEmail, Field: "email", Reason: "email already registered"}
}

func DuplicateLicense() *Error {
	return &Error{Kind: KindDuplicateLicense, Field: "license", Reason: "license number already registered"}
}

func InvalidSeed(field, reason string) *Error {
	return &Error{Kind: KindInvalidSeed, Field: field, Reason: reason}
}

// Unavailable wraps an infrastructure failure. The operation name ends up in
// logs only.
func Unavailable(op string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Reason: "storage temporarily unavailable", Err: fmt.Errorf("%s: %w", op, err)}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Reason: what + " not found"}
}

func Unauthorized(reason string) *Error {
	return &Error{Kind: KindUnauthorized, Reason: reason}
}

func OTPRequired(reason string) *Error {
	return &Error{Kind: KindOTPRequired, Reason: reason}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when err
// is not typed.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status code the web layer responds with.
// Untyped errors are internal errors.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidSeed, KindOTPRequired:
		return http.StatusBadRequest
	case KindDuplicateEmail, KindDuplicateLicense:
		return http.StatusConflict
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
