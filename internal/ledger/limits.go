package ledger

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"salesdesk/backend/internal/store"
)

// MaxUnits is the largest stock or quantity figure the store can hold.
const MaxUnits = math.MaxInt32

// CurrencyPlaces is the number of decimal places kept for every amount.
const CurrencyPlaces = 2

// maxAmount is the exclusive upper bound of a NUMERIC(14, 2) amount.
var maxAmount = decimal.New(1, 12)

// CheckAmount rejects negative amounts, amounts with sub-cent digits, and
// amounts the store cannot hold.
func CheckAmount(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", store.ErrValidation, field)
	}
	if !amount.Equal(amount.Round(CurrencyPlaces)) {
		return fmt.Errorf("%w: %s %s has more than %d decimal places", store.ErrValidation, field, amount, CurrencyPlaces)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: %s %s exceeds the maximum amount", store.ErrValidation, field, amount)
	}
	return nil
}

// CheckUnits rejects counts outside 0..MaxUnits.
func CheckUnits(field string, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %s must not be negative", store.ErrValidation, field)
	}
	if n > MaxUnits {
		return fmt.Errorf("%w: %s must not exceed %d", store.ErrValidation, field, MaxUnits)
	}
	return nil
}
