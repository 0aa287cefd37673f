package errors

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrSelfTransfer          = errors.New("cannot transfer to yourself")
	ErrInvalidState          = errors.New("reward item is not in a transferable state")
	ErrInvalidRequest        = errors.New("invalid ledger request")
	ErrIdempotencyConflict   = errors.New("idempotency key reused with different request")
	ErrInternalCommitFailure = errors.New("ledger commit failed")
	ErrRepositoryInvariant   = errors.New("repository invariant violated")
)

// Narrowed not-found errors; each still matches ErrNotFound.
var (
	ErrAccountNotFound  error = notFoundError{subject: "account"}
	ErrItemNotFound     error = notFoundError{subject: "reward item"}
	ErrTransferNotFound error = notFoundError{subject: "transfer"}
)

// notFoundError narrows ErrNotFound to one entity kind while still matching
// errors.Is(err, ErrNotFound).
type notFoundError struct {
	subject string
}

func (e notFoundError) Error() string {
	return e.subject + " not found"
}

func (e notFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ReplayError reports that an identical request already committed under the
// same idempotency key. TransferID is the transfer it produced.
type ReplayError struct {
	TransferID string
}

func (e *ReplayError) Error() string {
	return "request already committed as transfer " + e.TransferID
}

// Code returns the stable machine-readable kind for a ledger error. It is
// stored on rejected transfer records and returned to API callers.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrSelfTransfer):
		return "self_transfer"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrIdempotencyConflict):
		return "idempotency_conflict"
	case errors.Is(err, ErrInternalCommitFailure):
		return "internal_commit_failure"
	default:
		return "internal_error"
	}
}
