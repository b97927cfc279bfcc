package prescription

import "errors"

// ValidationError is a recoverable rejection of an operator action. The
// operation is aborted and the state is unchanged.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

var (
	ErrEmptyCart       = &ValidationError{Reason: "cart is empty"}
	ErrIndexOutOfRange = &ValidationError{Reason: "no item at that position"}
	ErrUnknownField    = &ValidationError{Reason: "unknown field"}
	ErrNoGeneric       = &ValidationError{Reason: "select a generic first"}
)

// ErrExportInProgress rejects an export while another one is in flight.
var ErrExportInProgress = errors.New("an export is already in progress")

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
