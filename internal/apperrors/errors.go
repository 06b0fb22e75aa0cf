package apperrors

import "errors"

// Sentinel errors for the storefront flow. Services wrap these with
// fmt.Errorf("...: %w", ...) so callers can match them with errors.Is
// while still getting a descriptive message.
var (
	// ErrNotFound covers unknown products and unknown orders.
	ErrNotFound = errors.New("not found")

	// ErrNoSelection is returned by checkout when the buyer has not
	// selected a product first.
	ErrNoSelection = errors.New("no product selected")

	// ErrInsufficientStock is returned when a reservation cannot be
	// satisfied by the current stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidArgument is returned when caller input is malformed, such
	// as a decision outcome that is neither accept nor reject.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrForbidden is returned when a buyer acts on an order that
	// belongs to someone else.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned when an operation is not valid for the
	// order's current status. Losers of a race on the same order (timer
	// vs proof vs admin decision) all observe this error.
	ErrInvalidState = errors.New("invalid order state")

	// ErrUnauthorized is returned when a non-admin attempts an admin action.
	ErrUnauthorized = errors.New("unauthorized")
)
