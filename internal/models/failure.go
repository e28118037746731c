package models

import (
	"errors"
	"fmt"
)

// Reason classifies why a core operation failed.
type Reason string

const (
	ReasonNoMatch    Reason = "NoMatch"
	ReasonUpstream   Reason = "UpstreamError"
	ReasonParse      Reason = "ParseError"
	ReasonValidation Reason = "ValidationError"
	ReasonStorage    Reason = "StorageError"
)

// Sentinels matched by errors.Is against a *Failure of the same reason.
var (
	ErrNoMatch    = errors.New("no matching address")
	ErrUpstream   = errors.New("upstream service unavailable")
	ErrParse      = errors.New("malformed upstream response")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
)

// ErrNotFound is returned when no location has the requested id.
var ErrNotFound = errors.New("location not found")

func (r Reason) sentinel() error {
	switch r {
	case ReasonNoMatch:
		return ErrNoMatch
	case ReasonUpstream:
		return ErrUpstream
	case ReasonParse:
		return ErrParse
	case ReasonValidation:
		return ErrValidation
	case ReasonStorage:
		return ErrStorage
	}
	return nil
}

// Failure is the typed error returned across the core's boundaries.
type Failure struct {
	Reason  Reason
	Message string
	// Fields lists individual violations for ValidationError.
	Fields []string
	Err    error
}

// NewFailure creates a failure with the given reason wrapping err (which may be nil).
func NewFailure(reason Reason, message string, err error) *Failure {
	return &Failure{Reason: reason, Message: message, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Reason, f.Message)
	}
	return fmt.Sprintf("%s: %s: %v", f.Reason, f.Message, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Is(target error) bool {
	s := f.Reason.sentinel()
	return s != nil && target == s
}

// ReasonOf extracts the failure reason from err, if it carries one.
func ReasonOf(err error) (Reason, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason, true
	}
	return "", false
}
