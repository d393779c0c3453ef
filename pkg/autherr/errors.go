// Package autherr defines the failures surfaced by the authentication
// pipeline. Callers match them with errors.Is and errors.As.
package autherr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for a bad username or password, a
	// missing required credential, or a rejected device code / refresh token.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserMigrated is a special case of ErrInvalidCredentials: the legacy
	// account has been migrated to a Microsoft account.
	ErrUserMigrated = fmt.Errorf("%w: user migrated", ErrInvalidCredentials)

	// ErrAuthPending means the user has not finished device code consent
	// yet. The caller should retry after the polling interval.
	ErrAuthPending = errors.New("authorization pending")

	// ErrServiceUnavailable is returned when an upstream response violates
	// its expected shape (e.g. the Microsoft login page can't be parsed).
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrXboxRequest is the parent of every XboxError.
	ErrXboxRequest = errors.New("xbox live request failed")

	// ErrRequest covers transport failures, unexpected HTTP statuses,
	// malformed or absent bodies and client token mismatches.
	ErrRequest = errors.New("request failed")

	// ErrInvalidState is returned when an operation is attempted in the
	// wrong lifecycle state.
	ErrInvalidState = errors.New("invalid state")
)

// RequestError carries the details of a failed upstream call. It unwraps to
// the taxonomy sentinel chosen for the failure (ErrRequest by default).
type RequestError struct {
	URL        string
	StatusCode int
	Code       string
	Message    string
	Body       []byte
	Kind       error
	Err        error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	kind := e.Kind
	if kind == nil {
		kind = ErrRequest
	}
	switch {
	case e.StatusCode != 0 && e.Code != "":
		return fmt.Sprintf("%s: %s (%d %s): %s", kind, e.URL, e.StatusCode, e.Code, msg)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s (%d): %s", kind, e.URL, e.StatusCode, msg)
	default:
		return fmt.Sprintf("%s: %s: %s", kind, e.URL, msg)
	}
}

func (e *RequestError) Unwrap() []error {
	kind := e.Kind
	if kind == nil {
		kind = ErrRequest
	}
	if e.Err != nil {
		return []error{kind, e.Err}
	}
	return []error{kind}
}

// XboxReason classifies a non-zero XSTS error code.
type XboxReason int

const (
	XboxOther XboxReason = iota
	XboxNoAccount
	XboxCountryUnavailable
	XboxChildAccount
)

// XSTS error codes with a dedicated reason.
const (
	XErrNoAccount          uint64 = 2148916233
	XErrCountryUnavailable uint64 = 2148916235
	XErrChildAccount       uint64 = 2148916238
)

func (r XboxReason) String() string {
	switch r {
	case XboxNoAccount:
		return "no-xbox-account"
	case XboxCountryUnavailable:
		return "country-unavailable"
	case XboxChildAccount:
		return "child-account-needs-family"
	default:
		return "other"
	}
}

// XboxError is returned when the XSTS service refuses to issue a token.
type XboxError struct {
	Reason XboxReason
	Code   uint64
}

// NewXboxError maps an XSTS error code to its reason.
func NewXboxError(code uint64) *XboxError {
	reason := XboxOther
	switch code {
	case XErrNoAccount:
		reason = XboxNoAccount
	case XErrCountryUnavailable:
		reason = XboxCountryUnavailable
	case XErrChildAccount:
		reason = XboxChildAccount
	}
	return &XboxError{Reason: reason, Code: code}
}

func (e *XboxError) Error() string {
	switch e.Reason {
	case XboxNoAccount:
		return "microsoft account does not have an xbox live account attached"
	case XboxCountryUnavailable:
		return "xbox live is not available in your country"
	case XboxChildAccount:
		return "this account is a child account, add it to a family in order to log in"
	default:
		return fmt.Sprintf("error occurred while authenticating to xbox live, error id: %d", e.Code)
	}
}

func (e *XboxError) Unwrap() error { return ErrXboxRequest }
