package engine

import (
	"errors"
	"fmt"
)

// Typed error kinds surfaced by Engine operations (spec §7). They wrap a
// descriptive message via %w so errors.Is/errors.As keep working against the
// sentinel values below.
var (
	// ErrConfiguration marks a setting the engine cannot be built from:
	// NewEngine wraps it around a failure to create the disk-backed job
	// store or the thread backend. A missing distributed client makes that
	// backend kind resolve to job.ErrNoBackend instead, and a web-app command
	// without its placeholders fails with backend.ErrMissingPlaceholder.
	ErrConfiguration = errors.New("engine: configuration error")
	// ErrValidation marks a bad caller argument. No Engine method returns
	// it; an unknown backend kind named on a job yields job.ErrNoBackend.
	ErrValidation = errors.New("engine: validation error")
	// ErrResource marks a resource-accounting failure. No Engine method
	// returns it: backend.Counter.Release ignores a release when nothing is
	// in use and reports no error.
	ErrResource = errors.New("engine: resource error")
	// ErrCancellation is returned by Join when its timeout elapses before
	// every job has reached a terminal status.
	ErrCancellation = errors.New("engine: cancelled")
	// ErrNotRunning is returned by Submit when called against an engine
	// that has not been started, or has already been stopped.
	ErrNotRunning = errors.New("engine: not running")
)

// ConfigurationError wraps ErrConfiguration with a descriptive message.
func ConfigurationError(format string, args ...any) error {
	return wrapf(ErrConfiguration, format, args...)
}

// ValidationError wraps ErrValidation with a descriptive message.
func ValidationError(format string, args ...any) error {
	return wrapf(ErrValidation, format, args...)
}

// ResourceError wraps ErrResource with a descriptive message.
func ResourceError(format string, args ...any) error {
	return wrapf(ErrResource, format, args...)
}

// wrapf builds an error matching errors.Is(err, sentinel) whose message is
// format applied to args, followed by the sentinel's own text.
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", sentinel)
}
