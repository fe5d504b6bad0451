package services

import "errors"

// ValidationError is a user-correctable problem with checkout input. Reason
// is safe to show to the customer; Err, when set, is the underlying cause
// (for example a *DeliveryError).
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

func invalidErr(err error) error {
	return &ValidationError{Reason: err.Error(), Err: err}
}

// ErrOrderFailed is returned when an order could not be persisted. The draft
// is untouched and the customer may retry.
var ErrOrderFailed = errors.New("order failed, please try again")

// ErrStaleQuote is returned by a quote recalculation that was superseded by a
// newer one before it finished.
var ErrStaleQuote = errors.New("quote superseded by a newer request")

// ErrAddressNotFound is returned when a delivery address could not be
// geocoded.
var ErrAddressNotFound = errors.New("address not found, try a different address or choose pickup")

// ErrInvalidTransition is returned when an order cannot move to the requested status.
var ErrInvalidTransition = errors.New("invalid order status transition")
