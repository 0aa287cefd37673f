package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidRequest        = errors.New("invalid vote request")
	ErrProviderInactive      = errors.New("vote provider is inactive")
	ErrProviderUnavailable   = errors.New("vote provider is unavailable")
	ErrCooldownActive        = errors.New("vote cooldown is active")
	ErrInternalCommitFailure = errors.New("vote commit failed")
)

// Narrowed not-found errors; each still matches ErrNotFound.
var (
	ErrProviderNotFound error = notFoundError{subject: "vote provider"}
	ErrVoteNotFound     error = notFoundError{subject: "vote"}
	ErrUserNotFound     error = notFoundError{subject: "player"}
)

type notFoundError struct {
	subject string
}

func (e notFoundError) Error() string {
	return e.subject + " not found"
}

func (e notFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CooldownActiveError carries the time left until the action is allowed
// again. It matches ErrCooldownActive.
type CooldownActiveError struct {
	Remaining  time.Duration
	EligibleAt time.Time
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("vote cooldown is active for %s", e.Remaining.Round(time.Second))
}

func (e *CooldownActiveError) Is(target error) bool {
	return target == ErrCooldownActive
}

// Code returns the stable machine-readable kind of a vote error.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrProviderInactive):
		return "provider_inactive"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrCooldownActive):
		return "cooldown_active"
	case errors.Is(err, ErrInternalCommitFailure):
		return "internal_commit_failure"
	default:
		return "internal_error"
	}
}
