package core

import "errors"

// Sentinel errors for every failure the protocol can produce. Callers match
// with errors.Is; Kind classifies them for retry decisions.
var (
	// Validation failures: malformed input, never retried.
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidCollateral = errors.New("collateral must be positive")
	ErrEmptySecret       = errors.New("secret must not be empty")
	ErrInvalidCommitment = errors.New("commitment is malformed")
	ErrInvalidWindow     = errors.New("auction window times are inconsistent")
	ErrUnknownItem       = errors.New("unknown auction item")
	ErrUnauthenticated   = errors.New("caller could not be authenticated")

	// State conflicts: callers should treat the Already* group as
	// success-equivalent terminal states rather than retrying.
	ErrAlreadyCommitted = errors.New("bidder already has an unrevealed commitment on this item")
	ErrAlreadyRevealed  = errors.New("commitment already revealed")
	ErrAlreadyFinalized = errors.New("auction already finalized")
	ErrAlreadyDisbursed = errors.New("escrow already disbursed")
	ErrWindowClosed     = errors.New("operation outside the item's current window")
	ErrTooEarly         = errors.New("reveal deadline not reached and commitments remain unrevealed")

	// Integrity failures: fatal to the attempt, never ignorable.
	ErrNoSuchCommitment       = errors.New("no commitment recorded for bidder on this item")
	ErrInvalidReveal          = errors.New("reveal does not match recorded commitment")
	ErrInsufficientCollateral = errors.New("revealed amount exceeds locked collateral")
)

// ErrorKind buckets protocol errors per the retry discipline: validation and
// integrity errors are terminal, state conflicts are idempotent completions,
// transfer failures are retryable per recipient.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindStateConflict
	KindIntegrity
	KindTransfer
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindIntegrity:
		return "integrity"
	case KindTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// ErrTransferFailed wraps fund-mover failures so escrow retry logic can
// classify them. Escrow wraps each failed transfer with this sentinel.
var ErrTransferFailed = errors.New("fund transfer failed")

// Kind classifies err into the protocol error taxonomy.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidCollateral),
		errors.Is(err, ErrEmptySecret),
		errors.Is(err, ErrInvalidCommitment),
		errors.Is(err, ErrInvalidWindow),
		errors.Is(err, ErrUnknownItem),
		errors.Is(err, ErrUnauthenticated):
		return KindValidation
	case errors.Is(err, ErrAlreadyCommitted),
		errors.Is(err, ErrAlreadyRevealed),
		errors.Is(err, ErrAlreadyFinalized),
		errors.Is(err, ErrAlreadyDisbursed),
		errors.Is(err, ErrWindowClosed),
		errors.Is(err, ErrTooEarly):
		return KindStateConflict
	case errors.Is(err, ErrNoSuchCommitment),
		errors.Is(err, ErrInvalidReveal),
		errors.Is(err, ErrInsufficientCollateral):
		return KindIntegrity
	case errors.Is(err, ErrTransferFailed):
		return KindTransfer
	default:
		return KindUnknown
	}
}

// IsTerminalConflict reports whether err marks an operation that has already
// happened, so a retry of the same request would be a no-op.
func IsTerminalConflict(err error) bool {
	return errors.Is(err, ErrAlreadyCommitted) ||
		errors.Is(err, ErrAlreadyRevealed) ||
		errors.Is(err, ErrAlreadyFinalized) ||
		errors.Is(err, ErrAlreadyDisbursed)
}
