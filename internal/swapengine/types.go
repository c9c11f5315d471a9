package swapengine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/confirm"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/engine"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/hive"
)

// Credentials identify the trading account. They are fixed when the engine
// is built and never change during a run.
type Credentials struct {
	Account   string
	ActiveKey string
}

// String never prints the key.
func (c Credentials) String() string {
	return "account=" + c.Account
}

// TokenPair is a pool identifier. Prices are base per quote.
type TokenPair struct {
	Base  string // base currency, e.g. SWAP.HIVE
	Quote string // target asset, e.g. PIZZA
}

func (p TokenPair) String() string {
	return p.Base + ":" + p.Quote
}

// RunParams are the trading parameters of one invocation.
type RunParams struct {
	Pair              TokenPair
	AmountIn          decimal.Decimal // quote asset to sell
	Threshold         decimal.Decimal // minimum price, exclusive
	SlippageTolerance decimal.Decimal // fraction in [0, 1)
	DryRun            bool
}

// PoolSnapshot is a live read of a pool's reserves.
type PoolSnapshot struct {
	BaseReserve  decimal.Decimal
	QuoteReserve decimal.Decimal
	QuotePrice   decimal.Decimal
	FetchedAt    time.Time
}

// SwapPlan is the outcome of the swap gate at a given price.
type SwapPlan struct {
	Pair         TokenPair
	Price        decimal.Decimal
	Threshold    decimal.Decimal
	AmountIn     decimal.Decimal
	Balance      decimal.Decimal
	ExpectedOut  decimal.Decimal
	MinAmountOut decimal.Decimal
	Proceed      bool
	Reason       string
}

// SwapResult is a confirmed (or simulated) swap.
type SwapResult struct {
	TxID        string
	BlockNumber int64
	Received    decimal.Decimal
	Fee         *confirm.Fee
	Simulated   bool
	Receipt     map[string]any
}

// DepositResult is a confirmed (or simulated) liquidity deposit.
type DepositResult struct {
	TxID          string
	BlockNumber   int64
	BaseQuantity  decimal.Decimal
	QuoteQuantity decimal.Decimal
	Snapshot      PoolSnapshot
	Event         map[string]any
	Simulated     bool
}

// Market is the read side of the sidechain.
type Market interface {
	Pool(ctx context.Context, tokenPair string) (*engine.Pool, error)
	Balance(ctx context.Context, account, symbol string) (*engine.Balance, error)
	Precision(ctx context.Context, symbol string) (int32, error)
}

// Broadcaster submits signed marketpools actions.
type Broadcaster interface {
	SwapTokens(ctx context.Context, p hive.SwapTokensPayload) (map[string]any, error)
	AddLiquidity(ctx context.Context, p hive.AddLiquidityPayload) (map[string]any, error)
}

// TxConfirmer waits for a transaction to settle cleanly.
type TxConfirmer interface {
	Confirm(ctx context.Context, txID string) (*confirm.Confirmation, error)
}

// HaltSwitch is consulted before anything is broadcast.
type HaltSwitch interface {
	Halted(ctx context.Context) (bool, error)
}
