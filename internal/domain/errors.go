package domain

import (
	"errors"
	"fmt"
)

// ErrKind groups error codes by how callers should react; the HTTP layer maps
// each kind to one status.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"
	KindAuth           ErrKind = "auth"
	KindNotFound       ErrKind = "not_found"
	KindConflict       ErrKind = "conflict"
	KindInfrastructure ErrKind = "infrastructure"
	KindInternal       ErrKind = "internal"
)

// Stable machine codes. Clients branch on these, so never rename one.
const (
	CodeInvalidJSON        = "invalid_json"
	CodeMissingField       = "missing_field"
	CodeInvalidField       = "invalid_field"
	CodeWeakPassword       = "weak_password"
	CodeInvalidCredentials = "invalid_credentials"
	CodeTokenMissing       = "token_missing"
	CodeTokenInvalid       = "token_invalid"
	CodeTokenMalformed     = "token_malformed"
	CodeTokenExpired       = "token_expired"
	CodeUserNotFound       = "user_not_found"
	CodeEmailExists        = "email_already_exists"
	CodeDBUnavailable      = "db_unavailable"
	CodeRabbitUnavailable  = "rabbit_unavailable"
	CodeHashFailed         = "hash_failed"
	CodeTokenSignFailed    = "token_sign_failed"
	CodeInternal           = "internal_error"
)

// Error carries a client safe Code and Message. Cause is for logs only and
// must never be rendered to a caller.
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

// with sets meta from alternating key/value pairs.
func (e *Error) with(kv ...string) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]string, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Meta[kv[i]] = kv[i+1]
	}
	return e
}

// Is reports whether any error in err's chain is a domain error with code.
func Is(err error, code string) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// KindOf returns the kind of a domain error, or "" for foreign errors.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, CodeInvalidJSON, "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return New(KindValidation, CodeMissingField, "missing required field").with("field", field)
}

func ErrInvalidField(field, reason string) *Error {
	return New(KindValidation, CodeInvalidField, "invalid field").with("field", field, "reason", reason)
}

func ErrWeakPassword(reason string) *Error {
	return New(KindValidation, CodeWeakPassword, "password does not meet requirements").with("reason", reason)
}

// ErrInvalidCredentials covers unknown email, wrong password and unusable
// tokens alike so callers cannot probe which accounts exist.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, CodeInvalidCredentials, "invalid credentials")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, CodeTokenMissing, "no token provided")
}

func ErrTokenInvalid() *Error {
	return New(KindAuth, CodeTokenInvalid, "invalid token")
}

func ErrTokenMalformed(cause error) *Error {
	return Wrap(KindAuth, CodeTokenMalformed, "malformed token", cause)
}

func ErrTokenExpired() *Error {
	return New(KindAuth, CodeTokenExpired, "token is expired")
}

func ErrUserNotFound() *Error {
	return New(KindNotFound, CodeUserNotFound, "user not found")
}

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, CodeEmailExists, "email already registered")
}

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeDBUnavailable, "database unavailable", cause)
}

func ErrRabbitUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeRabbitUnavailable, "message broker unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, CodeHashFailed, "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, CodeTokenSignFailed, "token signing failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, CodeInternal, "internal error", cause)
}
