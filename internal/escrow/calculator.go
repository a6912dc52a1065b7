package escrow

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Policy is the deposit policy supplied by the settings collaborator.
// MaxAmount of nil means no upper clamp.
type Policy struct {
	Percentage int64
	MinAmount  int64
	MaxAmount  *int64
	Currency   string
}

// Validate rejects policies an operator must not be able to save.
func (p Policy) Validate() error {
	switch {
	case p.Percentage <= 0 || p.Percentage > 100:
		return InvalidInput(fmt.Sprintf("escrow percentage %d must be within 1..100", p.Percentage))
	case p.MinAmount <= 0:
		return InvalidInput("escrow minimum amount must be positive")
	case p.MaxAmount != nil && *p.MaxAmount < p.MinAmount:
		return InvalidInput("escrow maximum amount must not be below the minimum")
	case p.Currency == "":
		return InvalidInput("escrow currency is required")
	}
	return nil
}

// CalculateDeposit returns the escrow amount for a bid price:
// floor(bidPrice*percentage/100), raised to MinAmount, then capped at MaxAmount.
// The division truncates; the minimum floor is platform policy.
func CalculateDeposit(bidPrice int64, p Policy) (int64, error) {
	if bidPrice <= 0 {
		return 0, InvalidInput("bid price must be positive")
	}
	raw := decimal.NewFromInt(bidPrice).
		Mul(decimal.NewFromInt(p.Percentage)).
		Div(hundred).
		Floor()

	amount := decimal.Max(raw, decimal.NewFromInt(p.MinAmount))
	if p.MaxAmount != nil {
		amount = decimal.Min(amount, decimal.NewFromInt(*p.MaxAmount))
	}
	if !amount.IsInteger() || amount.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, InvalidInput("deposit amount out of range")
	}
	return amount.IntPart(), nil
}
