package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the gateway.

// ErrValidation indicates a client-side validation failure. It is raised
// before any network call and never leaves the operation that raised it
// except as a field-scoped message.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates the backend rejected the credential used for a
// single call (HTTP 401). Callers are expected to refresh the session once
// and retry before treating the session as dead.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrAuthExpired indicates the session is dead after the one refresh-retry
// allowed by the auth policy. It always bubbles up to a redirect-to-login,
// never to an error banner.
type ErrAuthExpired struct {
	Reason string
}

func (e *ErrAuthExpired) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("session expired: %s", e.Reason)
	}
	return "session expired"
}

// ErrNetwork indicates a transport-level failure. Local state is left
// untouched and the operation may be retried by the user.
type ErrNetwork struct {
	Err error
}

func (e *ErrNetwork) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *ErrNetwork) Unwrap() error {
	return e.Err
}

// ErrServerRejected indicates a structured 4xx rejection from the backend
// (e.g. address limit exceeded). The message is surfaced verbatim.
type ErrServerRejected struct {
	Status  int
	Message string
}

func (e *ErrServerRejected) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request rejected with status %d", e.Status)
}

// ErrNotFound indicates a resource was not found. For the postal lookup
// this is non-fatal and leaves the form editable.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrBusy indicates a mutation was refused because another mutation for the
// same resource is still in flight. The UI disables the action instead of
// queuing or cancelling.
type ErrBusy struct {
	Operation string
}

func (e *ErrBusy) Error() string {
	return fmt.Sprintf("operation already in flight: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// Permanent reports whether err is a definitive rejection that retrying
// with backoff cannot fix. Unauthorized errors go through the session
// layer's refresh-once policy instead.
func Permanent(err error) bool {
	var (
		unauthorized *ErrUnauthorized
		expired      *ErrAuthExpired
		rejected     *ErrServerRejected
		notFound     *ErrNotFound
		validation   *ErrValidation
		busy         *ErrBusy
	)
	return errors.As(err, &unauthorized) ||
		errors.As(err, &expired) ||
		errors.As(err, &rejected) ||
		errors.As(err, &notFound) ||
		errors.As(err, &validation) ||
		errors.As(err, &busy)
}
