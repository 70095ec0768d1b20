package shared

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every ledger operation. Precondition failures are
// detected before any write and surface as one of these sentinels.
var (
	// ErrUnauthenticated indicates no valid session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates a blocked user, a missing role, or a non-admin
	// calling an admin operation.
	ErrForbidden = errors.New("forbidden")
	// ErrPhaseMismatch indicates an operation attempted outside its phase.
	ErrPhaseMismatch = errors.New("operation not allowed in current phase")
	// ErrDuplicate indicates a uniqueness violation (submission, vote, block).
	ErrDuplicate = errors.New("duplicate entry")
	// ErrBudgetExceeded indicates the per-period vote budget is spent.
	ErrBudgetExceeded = errors.New("vote budget exceeded")
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExternalValidation indicates the collection failed format or
	// marketplace verification checks.
	ErrExternalValidation = errors.New("external validation failed")
	// ErrStore indicates an unexpected persistence failure.
	ErrStore = errors.New("store error")
)

// StoreError tags an unexpected persistence failure with ErrStore so
// transport layers can map it without inspecting driver errors. The cause
// stays in the chain for errors.Is and logging.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
