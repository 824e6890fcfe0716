package ledger

import "errors"

// Classified failures returned by the ledger engine. Callers distinguish them
// with errors.Is and map them to transport responses via Code.
var (
	// ErrInvalidArgument marks a malformed account id or non-positive amount.
	// Rejected before any lock is taken; safe to retry with corrected input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPolicyViolation marks an amount or resulting balance outside the
	// configured bounds. No mutation is performed.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrInsufficientBalance marks a debit exceeding the current balance.
	// Detected inside the critical section, before any mutation.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLockTimeout marks a bounded lock wait that expired. The lock was
	// never acquired and no side effects occurred; safe to retry.
	ErrLockTimeout = errors.New("lock wait timeout")
)

// Error codes exposed to API clients alongside the message.
const (
	CodeInternal            = "LEDGER_000"
	CodeInvalidArgument     = "LEDGER_001"
	CodePolicyViolation     = "LEDGER_002"
	CodeInsufficientBalance = "LEDGER_003"
	CodeLockTimeout         = "LEDGER_004"
)

// Code maps an error chain to its ledger error code. Unclassified errors map
// to CodeInternal.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, ErrPolicyViolation):
		return CodePolicyViolation
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, ErrLockTimeout):
		return CodeLockTimeout
	default:
		return CodeInternal
	}
}
