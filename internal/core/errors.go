package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResults is returned when an input produced zero candidates
	ErrNoResults = errors.New("no results")
	// ErrUnsupportedDomain is returned for URLs no provider handles
	ErrUnsupportedDomain = errors.New("unsupported url")
	// ErrProviderUnavailable is returned on upstream transport or parse failures
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrMatchNotFound is returned when no playable equivalent exists for a metadata song
	ErrMatchNotFound = errors.New("no playable match")
	// ErrNothingPlaying is returned by operations that need a current song
	ErrNothingPlaying = errors.New("nothing is playing")
	// ErrInvalidArgument is returned for out of range command arguments
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSessionClosed is returned by a controller after teardown
	ErrSessionClosed = errors.New("session closed")
	// ErrNotConnected is returned for a guild without a voice session
	ErrNotConnected = errors.New("not connected to a voice channel")
)

// ProviderError is an upstream failure. It matches ErrProviderUnavailable.
type ProviderError struct {
	Provider Provider
	Op       string
	Err      error
}

// NewProviderError wraps err as a failure of op on provider p.
func NewProviderError(p Provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: p, Op: op, Err: err}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// IsUserFacing reports whether err stems from the request or the guild's state
// rather than from a fault.
func IsUserFacing(err error) bool {
	return errors.Is(err, ErrNoResults) ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrUnsupportedDomain) ||
		errors.Is(err, ErrNothingPlaying) ||
		errors.Is(err, ErrInvalidArgument)
}
