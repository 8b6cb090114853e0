package entities

import "errors"

// Domain errors
var (
	ErrEmptyTranscript = errors.New("transcript must not be empty")
	ErrEmptyOverview   = errors.New("summary overview must not be empty")
)
