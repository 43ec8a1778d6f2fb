package engine

import "errors"

// The three failure classes the engine surfaces. Every error returned
// from Process wraps one of them, callers match with errors.Is.
var (
	ErrInvalidData = errors.New("invalid data")
	ErrProcessing  = errors.New("processing error")
	ErrTiming      = errors.New("timing error")
)
