package swapengine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/amount"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/confirm"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/hive"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

// Depositor adds liquidity at the pool's live reserve ratio.
type Depositor struct {
	oracle      *Oracle
	guard       *BalanceGuard
	broadcaster Broadcaster
	confirmer   TxConfirmer
	book        *amount.Book
	logger      *logrus.Logger
}

func NewDepositor(
	oracle *Oracle,
	guard *BalanceGuard,
	broadcaster Broadcaster,
	confirmer TxConfirmer,
	book *amount.Book,
	logger *logrus.Logger,
) *Depositor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Depositor{
		oracle:      oracle,
		guard:       guard,
		broadcaster: broadcaster,
		confirmer:   confirmer,
		book:        book,
		logger:      logger,
	}
}

// PairedQuoteAmount is base*quoteReserve/baseReserve truncated to precision.
func PairedQuoteAmount(base decimal.Decimal, snap PoolSnapshot, precision int32) (decimal.Decimal, error) {
	if !snap.BaseReserve.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: base reserve %s", models.ErrInvalidPool, snap.BaseReserve)
	}
	if snap.QuoteReserve.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: quote reserve %s", models.ErrInvalidPool, snap.QuoteReserve)
	}
	if precision < 0 {
		precision = 0
	}
	q, _ := base.Mul(snap.QuoteReserve).QuoRem(snap.BaseReserve, precision)
	return q, nil
}

// Deposit pairs baseAmount with the matching quote amount and adds both to
// the pool. Reserves are re-read here because the preceding swap moved them.
func (d *Depositor) Deposit(ctx context.Context, pair TokenPair, baseAmount decimal.Decimal, dryRun bool) (*DepositResult, error) {
	basePrec, err := d.book.Precision(ctx, pair.Base)
	if err != nil {
		return nil, err
	}
	quotePrec, err := d.book.Precision(ctx, pair.Quote)
	if err != nil {
		return nil, err
	}

	baseQty, err := d.book.Quantize(ctx, pair.Base, baseAmount)
	if err != nil {
		return nil, err
	}
	if !baseQty.IsPositive() {
		return nil, fmt.Errorf("nothing to deposit: %s %s", baseAmount, pair.Base)
	}

	snap, err := d.oracle.FetchSnapshot(ctx, pair)
	if err != nil {
		return nil, err
	}
	quoteQty, err := PairedQuoteAmount(baseQty, *snap, quotePrec)
	if err != nil {
		return nil, err
	}

	log := d.logger.WithFields(logrus.Fields{
		"pair":           pair.String(),
		"base_quantity":  baseQty.String(),
		"quote_quantity": quoteQty.String(),
		"dry_run":        dryRun,
	})
	log.Info("deposit amounts")

	if err := d.require(ctx, pair.Base, baseQty); err != nil {
		return nil, err
	}
	if err := d.require(ctx, pair.Quote, quoteQty); err != nil {
		return nil, err
	}

	res := &DepositResult{BaseQuantity: baseQty, QuoteQuantity: quoteQty, Snapshot: *snap}
	payload := hive.AddLiquidityPayload{
		TokenPair:     pair.String(),
		BaseQuantity:  amount.Format(baseQty, basePrec),
		QuoteQuantity: amount.Format(quoteQty, quotePrec),
	}

	if dryRun {
		body, _ := hive.ContractJSON(constants.ActionAddLiquidity, payload)
		log.WithField("json", string(body)).Info("[DRY RUN] would broadcast addLiquidity")
		res.Simulated = true
		return res, nil
	}

	if d.broadcaster == nil {
		return nil, fmt.Errorf("%w: no broadcaster configured", models.ErrBroadcast)
	}

	receipt, err := d.broadcaster.AddLiquidity(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: addLiquidity: %v", models.ErrBroadcast, err)
	}
	txID := idString(receipt["trx_id"])
	if txID == "" {
		return nil, fmt.Errorf("%w: no trx_id in deposit receipt", models.ErrUnconfirmable)
	}
	res.TxID = txID

	conf, err := d.confirmer.Confirm(ctx, txID)
	if err != nil {
		return res, err
	}
	res.BlockNumber = conf.BlockNumber

	ev, ok := confirm.FindEvent(conf.Events(), constants.ContractMarketPools, constants.EventAddLiquidity)
	if !ok {
		log.WithField("tx_id", txID).Error("deposit confirmed but no addLiquidity event found")
		return res, fmt.Errorf("%w: no addLiquidity event in %s", models.ErrSettlementUnverifiable, txID)
	}
	res.Event = ev.Data

	log.WithFields(logrus.Fields{
		"tx_id": txID,
		"block": conf.BlockNumber,
	}).Info("liquidity added")
	return res, nil
}

func (d *Depositor) require(ctx context.Context, symbol string, need decimal.Decimal) error {
	have, ok, err := d.guard.Check(ctx, symbol, need)
	if err != nil {
		return err
	}
	if !ok {
		d.logger.WithFields(logrus.Fields{
			"symbol": symbol,
			"have":   have.String(),
			"need":   need.String(),
		}).Warn("insufficient balance for deposit")
		return fmt.Errorf("%w: %s have %s need %s", models.ErrInsufficientBalance, symbol, have, need)
	}
	return nil
}
