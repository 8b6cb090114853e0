package errors

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks a request the core refuses before calling the model
var ErrInvalidInput = errors.New("invalid input")

// Summary errors
var (
	ErrSummaryNotFound = errors.New("summary not found")
	ErrPersistence     = errors.New("failed to persist summary")
)

// Model errors
var (
	ErrUpstream        = errors.New("model service call failed")
	ErrUpstreamTimeout = errors.New("model service timed out")
	ErrParse           = errors.New("model response could not be parsed")
)

// UpstreamError reports a failed call to the hosted model: transport failure,
// non-2xx status, or deadline exceeded.
type UpstreamError struct {
	Op         string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: model service timed out: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: model service returned status %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: model service call failed: %v", e.Op, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is matches ErrUpstream always and ErrUpstreamTimeout when the call timed out
func (e *UpstreamError) Is(target error) bool {
	if target == ErrUpstream {
		return true
	}
	return target == ErrUpstreamTimeout && e.Timeout
}

// ParseError reports a model response that did not yield a valid summary
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse model response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to parse model response: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NewParseError builds a ParseError with an optional cause
func NewParseError(reason string, err error) *ParseError {
	return &ParseError{Reason: reason, Err: err}
}
