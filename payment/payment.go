// Package payment defines the boundary between bookings and the payment provider.
package payment

import (
	"context"
	"errors"

	"github.com/arunvm123/villabooking/model"
)

var (
	ErrInvalidSignature  = errors.New("invalid callback signature")
	ErrMalformedCallback = errors.New("malformed callback payload")
)

// Callback is the signed payload the provider posts after checkout.
type Callback struct {
	Data string
	SS1  string
}

// Result is a verified callback. Status is one of the model payment statuses;
// pending means the provider has not settled the payment yet.
type Result struct {
	OrderID string
	Status  string
	Amount  int64
	Test    bool
}

// Gateway builds the provider checkout URL for a pending booking.
type Gateway interface {
	CheckoutURL(ctx context.Context, booking *model.Booking) (string, error)
}

type Verifier interface {
	Verify(cb Callback) bool
}

type CallbackParser interface {
	Parse(cb Callback) (Result, error)
}

// Provider is everything the HTTP layer needs from a payment integration.
type Provider interface {
	Gateway
	Verifier
	CallbackParser
}

// Authenticate checks the callback signature and decodes it. A forged or
// corrupted payload fails with ErrInvalidSignature before anything is parsed.
func Authenticate(p Provider, cb Callback) (Result, error) {
	if !p.Verify(cb) {
		return Result{}, ErrInvalidSignature
	}
	return p.Parse(cb)
}
