// Package errs contains sentinel errors and error kinds shared across layers
// for stable mapping to HTTP responses and sync decisions.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the caller exceeded its request budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrOutOfStock indicates a strict stock decrement could not be applied.
	ErrOutOfStock = errors.New("out of stock")

	// ErrNoRefreshToken indicates the provider completed the flow without offline access.
	ErrNoRefreshToken = errors.New("no refresh token returned")

	// ErrNotConfigured indicates a required setting is missing at request time.
	ErrNotConfigured = errors.New("not configured")
)

// ValidationError is a client-correctable input error. Message is safe to show to callers.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation returns a *ValidationError with the given message.
func Validation(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Kind classifies failures coming back from the external spreadsheet provider.
type Kind int

const (
	// KindTransient covers network failures, timeouts, malformed responses and anything unclassified.
	KindTransient Kind = iota
	// KindQuota is a provider rate-limit or quota rejection. Retryable.
	KindQuota
	// KindRevoked means the refresh token was permanently revoked.
	KindRevoked
	// KindNotFound means the target spreadsheet is gone or no longer reachable.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindQuota:
		return "quota_exceeded"
	case KindRevoked:
		return "refresh_token_revoked"
	case KindNotFound:
		return "spreadsheet_not_found"
	default:
		return "transient"
	}
}

// ExternalError is the tagged error produced at the provider client boundary.
type ExternalError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ExternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// External wraps err with a provider error kind.
func External(kind Kind, op string, err error) error {
	return &ExternalError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the external kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var ext *ExternalError
	if errors.As(err, &ext) {
		return ext.Kind, true
	}
	return KindTransient, false
}

// IsPermanent reports whether err makes the seller's sheet connection unusable.
func IsPermanent(err error) bool {
	k, ok := KindOf(err)
	return ok && (k == KindRevoked || k == KindNotFound)
}

// MessageError attaches a client-facing message to a sentinel.
type MessageError struct {
	Msg string
	Err error
}

func (e *MessageError) Error() string { return e.Msg }

func (e *MessageError) Unwrap() error { return e.Err }

// WithMessage returns err carrying msg as its client-facing text. errors.Is still matches err.
func WithMessage(err error, msg string) error {
	return &MessageError{Msg: msg, Err: err}
}
