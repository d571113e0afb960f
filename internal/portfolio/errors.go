package portfolio

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrAssetNotFound is returned when an asset id does not exist for the user
var ErrAssetNotFound = errors.New("asset not found")

// ErrAccountNotFound is returned when a cash account id does not exist
var ErrAccountNotFound = errors.New("account not found")

// ValidationError reports user-correctable bad input. The operation is
// aborted before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientQuantityError reports a mutation that would leave a period's
// sold quantity above its purchased quantity: an oversized sale or sale
// edit, or a lot shrink or delete that pulls purchases out from under
// existing sales.
type InsufficientQuantityError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity: requested %s, available %s",
		e.Requested.String(), e.Available.String())
}

func requirePositive(field string, v decimal.Decimal) error {
	if v.Sign() <= 0 {
		return &ValidationError{Field: field, Reason: "must be greater than zero"}
	}
	return nil
}
