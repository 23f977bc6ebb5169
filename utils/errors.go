package utils

import "errors"

// Error categories shared by every layer. Wrap them with fmt.Errorf("%w: ...")
// and branch with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrDeliveryFailure never reaches a caller, it is only logged.
	ErrDeliveryFailure = errors.New("delivery failure")
)

// ErrorCode returns the wire code for an error category, or "internal".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrDeliveryFailure):
		return "delivery_failure"
	default:
		return "internal"
	}
}
