// Package presale holds the pricing rules for the staged MXI token sale.
package presale

import (
	"errors"
)

// Default purchase amount bounds in USDT, enforced before anything is
// recorded.
const (
	MinPurchaseUSDT = 20.0
	MaxPurchaseUSDT = 50000.0
)

var (
	ErrAmountOutOfBounds = errors.New("purchase amount is outside the allowed range")
	ErrInvalidUnitPrice  = errors.New("stage unit price must be positive")
	ErrStageSoldOut      = errors.New("stage allocation exhausted")
)

// Rules holds the operator-configurable purchase limits. The zero value is
// not usable; construct with DefaultRules and override fields as needed.
type Rules struct {
	MinPurchaseUSDT float64
	MaxPurchaseUSDT float64
}

// DefaultRules returns the launch policy limits.
func DefaultRules() Rules {
	return Rules{
		MinPurchaseUSDT: MinPurchaseUSDT,
		MaxPurchaseUSDT: MaxPurchaseUSDT,
	}
}

// Stage is a pricing tier. Stages are sold sequentially and unit price
// strictly increases with stage number.
type Stage struct {
	Number     int
	UnitPrice  float64
	Allocation float64
	Sold       float64
}

// Remaining returns the unsold portion of the stage allocation.
func (s Stage) Remaining() float64 {
	remaining := s.Allocation - s.Sold
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ValidateAmount checks the USDT purchase bounds. Amounts outside the range
// fail validation with no side effect.
func (r Rules) ValidateAmount(amountUSDT float64) error {
	if amountUSDT < r.MinPurchaseUSDT || amountUSDT > r.MaxPurchaseUSDT {
		return ErrAmountOutOfBounds
	}
	return nil
}

// ValidateAmount checks amountUSDT against the default limits.
func ValidateAmount(amountUSDT float64) error {
	return DefaultRules().ValidateAmount(amountUSDT)
}

// TokensForUSD converts a USDT amount into MXI at the stage's unit price.
func TokensForUSD(amountUSDT, unitPrice float64) (float64, error) {
	if unitPrice <= 0 {
		return 0, ErrInvalidUnitPrice
	}
	return amountUSDT / unitPrice, nil
}

// Quote prices a purchase against a stage, checking bounds and remaining
// allocation.
func (r Rules) Quote(amountUSDT float64, stage Stage) (float64, error) {
	if err := r.ValidateAmount(amountUSDT); err != nil {
		return 0, err
	}

	tokens, err := TokensForUSD(amountUSDT, stage.UnitPrice)
	if err != nil {
		return 0, err
	}

	if tokens > stage.Remaining() {
		return 0, ErrStageSoldOut
	}

	return tokens, nil
}

// Quote prices a purchase under the default limits.
func Quote(amountUSDT float64, stage Stage) (float64, error) {
	return DefaultRules().Quote(amountUSDT, stage)
}

// ValidateStageOrder checks that unit prices strictly increase with stage
// number. Stages must be supplied sorted by number.
func ValidateStageOrder(stages []Stage) error {
	for i := 1; i < len(stages); i++ {
		if stages[i].Number <= stages[i-1].Number {
			return errors.New("stage numbers must strictly increase")
		}
		if stages[i].UnitPrice <= stages[i-1].UnitPrice {
			return errors.New("stage unit prices must strictly increase")
		}
	}
	return nil
}
