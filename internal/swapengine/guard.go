package swapengine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

// BalanceGuard reads wallet balances for one account.
type BalanceGuard struct {
	market  Market
	account string
	logger  *logrus.Logger
}

func NewBalanceGuard(market Market, account string, logger *logrus.Logger) *BalanceGuard {
	if logger == nil {
		logger = logrus.New()
	}
	return &BalanceGuard{market: market, account: account, logger: logger}
}

// Balance returns the wallet balance of symbol. A token the account never held is 0.
func (g *BalanceGuard) Balance(ctx context.Context, symbol string) (decimal.Decimal, error) {
	rec, err := g.market.Balance(ctx, g.account, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %s: %v", models.ErrBalanceUnavailable, g.account, symbol, err)
	}
	if rec == nil || !rec.Balance.Valid {
		g.logger.WithFields(logrus.Fields{
			"account": g.account,
			"symbol":  symbol,
		}).Warn("no balance record, treating as 0")
		return decimal.Zero, nil
	}
	return rec.Balance.Decimal, nil
}

// Check returns the balance and whether it covers required.
func (g *BalanceGuard) Check(ctx context.Context, symbol string, required decimal.Decimal) (decimal.Decimal, bool, error) {
	have, err := g.Balance(ctx, symbol)
	if err != nil {
		return decimal.Zero, false, err
	}
	ok := have.GreaterThanOrEqual(required)

	g.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"have":   have.String(),
		"need":   required.String(),
		"ok":     ok,
	}).Info("balance check")
	return have, ok, nil
}

// Sufficient reports whether the wallet holds at least required of symbol.
func (g *BalanceGuard) Sufficient(ctx context.Context, symbol string, required decimal.Decimal) (bool, error) {
	_, ok, err := g.Check(ctx, symbol, required)
	return ok, err
}
