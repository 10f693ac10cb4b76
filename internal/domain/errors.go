package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrNoLiquidity       = errors.New("no_liquidity")
	ErrMarketUnavailable = errors.New("market_unavailable")
	ErrInvalidInput      = errors.New("invalid_input")
	ErrOrderNotFound     = errors.New("order_not_found")
	ErrIllegalTransition = errors.New("illegal_status_transition")
	ErrOverfill          = errors.New("overfill")
)

// ValidationError represents a request validation failure. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets callers test for ErrInvalidInput without unwrapping the message.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
