// internal/errors/errors.go
package errors

import (
	"fmt"
	"time"
)

// ErrInvalidRepoFormat is returned when a repository argument is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// QuotaExceededError is returned when the GitHub rate limit is exhausted and no
// transparent wait was possible. ResetAt and RetryAfter carry whatever hints the
// API provided; either may be zero.
type QuotaExceededError struct {
	Resource   string
	ResetAt    time.Time
	RetryAfter time.Duration
}

func (e *QuotaExceededError) Error() string {
	switch {
	case !e.ResetAt.IsZero():
		return fmt.Sprintf("github %s rate limit exceeded, resets at %s", e.Resource, e.ResetAt.UTC().Format(time.RFC3339))
	case e.RetryAfter > 0:
		return fmt.Sprintf("github %s rate limit exceeded, retry after %s", e.Resource, e.RetryAfter)
	default:
		return fmt.Sprintf("github %s rate limit exceeded", e.Resource)
	}
}

// MissingParamError is returned when a tool call omits a required parameter.
// It is raised before any remote call is attempted.
type MissingParamError struct {
	Tool  string
	Param string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("tool %q: missing required parameter %q", e.Tool, e.Param)
}

// UnknownToolError is returned when a caller invokes a tool name that was never registered.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Tool)
}
