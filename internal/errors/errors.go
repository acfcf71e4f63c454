package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by the session core
var (
	// Authentication errors
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrMemberRecordMissing = errors.New("member record missing")

	// Session errors
	ErrSessionPersistence = errors.New("session persistence failed")
	ErrSessionExpired     = errors.New("session expired")

	// Authorization errors
	ErrUnauthorizedRole = errors.New("unauthorized role")

	// Storage errors
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrNotFound      = errors.New("not found")

	// Request errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrRateLimited    = errors.New("rate limited")
)

// Messages shown to end users. Credential failures share one message so the
// caller cannot tell which credential set was checked.
const (
	MsgInvalidCredentials = "Invalid identifier or password"
	MsgSessionExpired     = "Your session has expired, please sign in again"
	MsgUnauthorizedRole   = "You do not have access to that area"
	MsgInvalidRequest     = "Identifier and password are required"
	MsgRateLimited        = "Too many attempts, please wait and try again"
	MsgGeneric            = "Unable to sign in right now, please try again later"
)

// UserMessage maps an error to the message that may be displayed to a user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, ErrSessionExpired):
		return MsgSessionExpired
	case errors.Is(err, ErrUnauthorizedRole):
		return MsgUnauthorizedRole
	case errors.Is(err, ErrInvalidRequest):
		return MsgInvalidRequest
	case errors.Is(err, ErrRateLimited):
		return MsgRateLimited
	default:
		return MsgGeneric
	}
}

// HTTPStatus maps an error kind to the status code used by the JSON API.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorizedRole):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicCode is the code shown to API callers. Server side kinds such as a
// missing member record or duplicate rows all read as internal_error; Code
// keeps them apart for logs.
func PublicCode(err error) string {
	if HTTPStatus(err) >= http.StatusInternalServerError {
		return "internal_error"
	}
	return Code(err)
}

// Code returns a stable machine readable code for an error kind. It is meant
// for logs; responses use PublicCode.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrMemberRecordMissing):
		return "member_record_missing"
	case errors.Is(err, ErrSessionPersistence):
		return "session_persistence_error"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrUnauthorizedRole):
		return "unauthorized_role"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
