package deliveryorders

import "errors"

// Domain errors for delivery orders.
var (
	// ErrNotFound indicates the requested delivery order was not found.
	ErrNotFound = errors.New("delivery order not found")
	// ErrDuplicateNo indicates the business key collided on insert.
	ErrDuplicateNo = errors.New("delivery order number already exists")

	// ErrReferenceNotFound indicates a cited purchase order or external
	// purchase order could not be loaded. Fatal to the create operation.
	ErrReferenceNotFound = errors.New("referenced document not found")
	// ErrInvariantViolation indicates a fulfillment matched no purchase order
	// item. A validated delivery order should never reference a missing line,
	// so this points at a data-integrity bug upstream.
	ErrInvariantViolation = errors.New("purchase order item for fulfillment not found")
)

// FieldErrors maps field names to messages. Array fields nest a slice of
// FieldErrors mirroring the input shape, so callers can render errors at the
// item and fulfillment position they belong to.
type FieldErrors map[string]any

// ValidationError aggregates every failed check of one validation run.
type ValidationError struct {
	Fields FieldErrors
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "delivery order did not pass validation"
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
