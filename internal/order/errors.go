package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to check out")
	ErrIllegalTransition = errors.New("illegal order status transition")
)

// ValidationError reports every missing checkout field at once so the user
// can fix the whole form in one pass.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.MissingFields, ", "))
}

// RemoteUnavailableError wraps an order-persistence failure. Unlike cart
// write-through failures this always reaches the caller: a checkout must
// visibly fail and stay retryable, never be silently lost.
type RemoteUnavailableError struct {
	Err error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("order submission failed: %v", e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error {
	return e.Err
}
