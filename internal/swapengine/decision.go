package swapengine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/amount"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

// SwapDecision is the pure swap gate.
type SwapDecision struct {
	Proceed bool
	Reason  string
}

// ShouldSwap allows a swap only when price is strictly above threshold and the
// wallet holds at least amountIn. Either failing is a normal no-op.
func ShouldSwap(price, threshold, balance, amountIn decimal.Decimal) SwapDecision {
	if !price.GreaterThan(threshold) {
		return SwapDecision{Reason: fmt.Sprintf("price %s not above threshold %s", price, threshold)}
	}
	if balance.LessThan(amountIn) {
		return SwapDecision{Reason: fmt.Sprintf("balance %s below amount %s", balance, amountIn)}
	}
	return SwapDecision{Proceed: true}
}

// MinAmountOut is expectedOut*(1-tolerance) truncated to precision.
func MinAmountOut(expectedOut, tolerance decimal.Decimal, precision int32) decimal.Decimal {
	return amount.Quantize(expectedOut.Mul(decimal.NewFromInt(1).Sub(tolerance)), precision)
}

// ValidateParams rejects parameters no run should start with.
func ValidateParams(p RunParams) error {
	if strings.TrimSpace(p.Pair.Base) == "" || strings.TrimSpace(p.Pair.Quote) == "" {
		return fmt.Errorf("%w: base and target symbols required", models.ErrConfiguration)
	}
	if p.Pair.Base == p.Pair.Quote {
		return fmt.Errorf("%w: base and target symbols must differ", models.ErrConfiguration)
	}
	if !p.AmountIn.IsPositive() {
		return fmt.Errorf("%w: amount must be > 0", models.ErrConfiguration)
	}
	if !p.Threshold.IsPositive() {
		return fmt.Errorf("%w: price threshold must be > 0", models.ErrConfiguration)
	}
	if p.SlippageTolerance.IsNegative() || p.SlippageTolerance.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: slippage tolerance must be in [0, 1)", models.ErrConfiguration)
	}
	return nil
}
