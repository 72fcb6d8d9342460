package domain

import (
	"errors"
	"fmt"
)

// Rejections returned by registry operations. Each is an expected, recoverable
// refusal of a single operation; none leaves a partial mutation behind.
var (
	ErrIDSpaceExhausted       = errors.New("kitty id space exhausted")
	ErrInvalidParent          = errors.New("invalid parent kitty")
	ErrIdenticalParents       = errors.New("parents must be different kitties")
	ErrNotFound               = errors.New("kitty not found")
	ErrNotOwner               = errors.New("caller does not own kitty")
	ErrSelfPurchase           = errors.New("cannot purchase own kitty")
	ErrNotListed              = errors.New("kitty is not listed for sale")
	ErrOfferTooLow            = errors.New("offer below listed price")
	ErrCurrencyTransferFailed = errors.New("currency transfer failed")
	ErrUnauthenticated        = errors.New("call origin not authenticated")
)

// OperationError decorates a rejection with the operation and kitty involved.
type OperationError struct {
	Op      string
	KittyID KittyID
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s kitty %d: %v", e.Op, e.KittyID, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Reject builds an OperationError for op on id.
func Reject(op string, id KittyID, err error) error {
	return &OperationError{Op: op, KittyID: id, Err: err}
}

// CurrencyError wraps a ledger failure so both ErrCurrencyTransferFailed and the
// ledger's own cause match with errors.Is.
type CurrencyError struct {
	Cause error
}

func (e *CurrencyError) Error() string {
	return fmt.Sprintf("%v: %v", ErrCurrencyTransferFailed, e.Cause)
}

// Unwrap exposes both the taxonomy sentinel and the ledger cause.
func (e *CurrencyError) Unwrap() []error {
	return []error{ErrCurrencyTransferFailed, e.Cause}
}
