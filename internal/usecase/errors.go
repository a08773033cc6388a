package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrSourceUnavailable marks a provider fetch failure: the affected
	// teams are skipped this cycle, never rejected.
	ErrSourceUnavailable = errors.New("source unavailable")
)
