package swapengine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

// Oracle reads pool prices and reserves. Nothing is cached.
type Oracle struct {
	market Market
	logger *logrus.Logger
}

func NewOracle(market Market, logger *logrus.Logger) *Oracle {
	if logger == nil {
		logger = logrus.New()
	}
	return &Oracle{market: market, logger: logger}
}

// FetchPrice returns the pool's quote price. A missing pool, a missing price
// and a non-positive price are all ErrOracleUnavailable.
func (o *Oracle) FetchPrice(ctx context.Context, pair TokenPair) (decimal.Decimal, error) {
	pool, err := o.market.Pool(ctx, pair.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", models.ErrOracleUnavailable, pair, err)
	}
	if pool == nil {
		return decimal.Zero, fmt.Errorf("%w: pool %s not found", models.ErrOracleUnavailable, pair)
	}
	if !pool.QuotePrice.Valid {
		return decimal.Zero, fmt.Errorf("%w: pool %s has no quote price", models.ErrOracleUnavailable, pair)
	}
	if !pool.QuotePrice.Decimal.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: pool %s quote price %s", models.ErrOracleUnavailable, pair, pool.QuotePrice.Decimal)
	}

	o.logger.WithFields(logrus.Fields{
		"pair":  pair.String(),
		"price": pool.QuotePrice.Decimal.String(),
	}).Info("pool price")
	return pool.QuotePrice.Decimal, nil
}

// FetchSnapshot returns live reserves. Reserves must satisfy base > 0 and
// quote >= 0, otherwise ErrInvalidPool.
func (o *Oracle) FetchSnapshot(ctx context.Context, pair TokenPair) (*PoolSnapshot, error) {
	pool, err := o.market.Pool(ctx, pair.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrOracleUnavailable, pair, err)
	}
	if pool == nil {
		return nil, fmt.Errorf("%w: pool %s not found", models.ErrOracleUnavailable, pair)
	}
	if !pool.BaseQuantity.Valid || !pool.QuoteQuantity.Valid || !pool.QuotePrice.Valid {
		return nil, fmt.Errorf("%w: pool %s is missing reserve fields", models.ErrInvalidPool, pair)
	}

	snap := &PoolSnapshot{
		BaseReserve:  pool.BaseQuantity.Decimal,
		QuoteReserve: pool.QuoteQuantity.Decimal,
		QuotePrice:   pool.QuotePrice.Decimal,
		FetchedAt:    time.Now().UTC(),
	}
	if !snap.BaseReserve.IsPositive() {
		return nil, fmt.Errorf("%w: pool %s base reserve %s", models.ErrInvalidPool, pair, snap.BaseReserve)
	}
	if snap.QuoteReserve.IsNegative() {
		return nil, fmt.Errorf("%w: pool %s quote reserve %s", models.ErrInvalidPool, pair, snap.QuoteReserve)
	}

	o.logger.WithFields(logrus.Fields{
		"pair":          pair.String(),
		"base_reserve":  snap.BaseReserve.String(),
		"quote_reserve": snap.QuoteReserve.String(),
		"quote_price":   snap.QuotePrice.String(),
	}).Info("pool reserves")
	return snap, nil
}
