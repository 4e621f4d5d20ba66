package common

import (
	"errors"
	"fmt"
)

var (
	// Submission errors.
	ErrValidation = errors.New("validation error")

	// Mock handler has no route for the request; the dispatcher falls back
	// to the network on this error only.
	ErrUnimplementedRoute = errors.New("mock endpoint not implemented")

	// Repository/store errors.
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Auth errors.
	ErrAuth      = errors.New("authentication failed")
	ErrForbidden = errors.New("operation not permitted for role")

	// Transport errors.
	ErrUpload      = errors.New("upload failed")
	ErrNetwork     = errors.New("network error")
	ErrUnavailable = errors.New("server unavailable")
	ErrDecode      = errors.New("malformed response body")
)

// ValidationError reports the first request field that failed validation.
type ValidationError struct {
	Field string
	Tag   string
}

func (e *ValidationError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Field)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrValidation, e.Field, e.Tag)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// RouteError is returned by the mock handler for routes it does not model.
type RouteError struct {
	Method string
	Path   string
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrUnimplementedRoute, e.Method, e.Path)
}

func (e *RouteError) Unwrap() error { return ErrUnimplementedRoute }

// StatusError is a non-2xx HTTP response. Kind is ErrNetwork for JSON
// requests and ErrUpload for file uploads.
type StatusError struct {
	Kind       error
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Kind, e.StatusCode, e.Body)
}

// Unwrap exposes Kind and, for 401/403, ErrAuth.
func (e *StatusError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.StatusCode == 401 || e.StatusCode == 403 {
		errs = append(errs, ErrAuth)
	}
	if e.StatusCode == 404 {
		errs = append(errs, ErrNotFound)
	}
	return errs
}

// UploadStepError tells which image of a multi-image submission failed.
// Nothing was created when it is returned.
type UploadStepError struct {
	Step  int
	Total int
	Err   error
}

func (e *UploadStepError) Error() string {
	return fmt.Sprintf("upload %d of %d: %v", e.Step, e.Total, e.Err)
}

func (e *UploadStepError) Unwrap() error { return e.Err }
