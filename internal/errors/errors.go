package errors

import "errors"

var (
	// ErrProfileNotFound is returned when a profile is not found.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrListingNotFound is returned when a listing is not found.
	ErrListingNotFound = errors.New("listing not found")
	// ErrCategoryNotFound is returned when a listing references a missing category.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrInsufficientFunds is returned when a wallet cannot cover a withdrawal.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount is returned when a money amount is not positive or has sub-cent digits.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidListing is returned when listing fields fail validation.
	ErrInvalidListing = errors.New("invalid listing")
	// ErrInvalidComment is returned when a comment is empty.
	ErrInvalidComment = errors.New("invalid comment")
	// ErrConflict is returned when a concurrent writer won and retries ran out.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrLedgerMismatch is returned when a listing's highest bid disagrees with its bid ledger.
	ErrLedgerMismatch = errors.New("listing highest bid does not match bid ledger")
)

// Code returns a stable machine-readable code for a domain error.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProfileNotFound):
		return "PROFILE_NOT_FOUND"
	case errors.Is(err, ErrListingNotFound):
		return "LISTING_NOT_FOUND"
	case errors.Is(err, ErrCategoryNotFound):
		return "CATEGORY_NOT_FOUND"
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, ErrInvalidListing):
		return "INVALID_LISTING"
	case errors.Is(err, ErrInvalidComment):
		return "INVALID_COMMENT"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrLedgerMismatch):
		return "LEDGER_MISMATCH"
	default:
		return "INTERNAL_ERROR"
	}
}
