// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRepoFormat is returned when a repository string is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// ErrRepositoryNotFound is returned when the hosting API does not know the repository.
// It is terminal for that repository: retrying will not help.
type ErrRepositoryNotFound struct {
	FullName string
}

func (e *ErrRepositoryNotFound) Error() string {
	return fmt.Sprintf("repository %q not found upstream", e.FullName)
}

// ErrNotFound is returned when a locally persisted row does not exist.
type ErrNotFound struct {
	Resource string
	Key      string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

// ErrUpstream wraps network, HTTP and rate-limit failures of the hosting API.
type ErrUpstream struct {
	Op          string
	StatusCode  int
	RateLimited bool
	ResetAt     time.Time
	Err         error
}

func (e *ErrUpstream) Error() string {
	switch {
	case e.RateLimited:
		return fmt.Sprintf("upstream %s: rate limited until %s: %v", e.Op, e.ResetAt.Format(time.RFC3339), e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
	}
}

func (e *ErrUpstream) Unwrap() error { return e.Err }

// Retryable reports whether a later attempt may succeed. Client errors other
// than rate limiting are not retryable.
func (e *ErrUpstream) Retryable() bool {
	if e.RateLimited {
		return true
	}
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == 429
}

// ErrValidation describes a malformed input value.
type ErrValidation struct {
	Field  string
	Value  string
	Reason string
}

func (e *ErrValidation) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ErrConflict is returned when a write would violate a uniqueness constraint.
type ErrConflict struct {
	Resource string
	Key      string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Resource, e.Key)
}

// ErrStore wraps any persistence failure.
type ErrStore struct {
	Op  string
	Err error
}

func (e *ErrStore) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *ErrStore) Unwrap() error { return e.Err }

// ErrForbidden is returned when the caller's role does not permit an operation.
type ErrForbidden struct {
	Role   string
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("role %q may not %s", e.Role, e.Action)
}

// Store wraps err as an *ErrStore unless it is nil or already one.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *ErrStore
	if errors.As(err, &se) {
		return err
	}
	return &ErrStore{Op: op, Err: err}
}

// IsRetryable reports whether err is an upstream failure worth retrying.
func IsRetryable(err error) bool {
	var ue *ErrUpstream
	return errors.As(err, &ue) && ue.Retryable()
}
