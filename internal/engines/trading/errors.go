package trading

import "errors"

// Validation failures are recoverable by the caller: retry with an adjusted
// quantity or price. Storage errors are wrapped and propagated as-is.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrNoPriceAvailable     = errors.New("no price available")
)
