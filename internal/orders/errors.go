package orders

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidRequest    = errors.New("invalid order request")
	ErrEditWindowExpired = errors.New("edit window expired")
	ErrNotEditable       = errors.New("order is not editable")
	ErrConflict          = errors.New("order was changed concurrently")
	ErrCreationFailed    = errors.New("order creation failed")
)

// CreationError wraps the cause of a failed Create. Err is a catalog error
// (not found or *catalog.InsufficientStockError) and is reachable via errors.As.
type CreationError struct {
	ProductID string
	Err       error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("order creation failed on %s: %v", e.ProductID, e.Err)
}

func (e *CreationError) Unwrap() []error { return []error{ErrCreationFailed, e.Err} }

// EditWindowError says how long ago the order was created.
type EditWindowError struct {
	OrderID string
	Elapsed time.Duration
	Window  time.Duration
}

func (e *EditWindowError) Error() string {
	return fmt.Sprintf("order %s created %s ago, edit window is %s", e.OrderID, e.Elapsed.Round(time.Second), e.Window)
}

func (e *EditWindowError) Is(target error) bool { return target == ErrEditWindowExpired }
