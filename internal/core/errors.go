package core

import "errors"

// Recoverable domain conditions. Every service wraps these with context via
// fmt.Errorf("...: %w", Err...) so callers can branch with errors.Is while
// adapters map them to HTTP statuses. None of them is fatal to the process.
var (
	// ErrNotFound marks a reference to a nonexistent farm, product, batch,
	// image, crop, or order.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity marks a negative or otherwise unusable quantity input.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInsufficientStock marks a consumption request exceeding availability.
	// Consumption is all-or-nothing: when this is returned, nothing moved.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrIncompleteListing marks a publish attempt on a product missing
	// required listing fields for the target channel.
	ErrIncompleteListing = errors.New("incomplete listing")

	// ErrInvalidState marks an operation illegal in the entity's current
	// state, such as re-harvesting a crop or advancing a missing wizard.
	ErrInvalidState = errors.New("invalid state")
)
