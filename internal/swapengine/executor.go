package swapengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/amount"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/confirm"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/hive"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

// SwapExecutor sells the target asset for the base currency.
type SwapExecutor struct {
	guard       *BalanceGuard
	broadcaster Broadcaster
	confirmer   TxConfirmer
	book        *amount.Book
	account     string
	logger      *logrus.Logger
}

func NewSwapExecutor(
	guard *BalanceGuard,
	broadcaster Broadcaster,
	confirmer TxConfirmer,
	book *amount.Book,
	account string,
	logger *logrus.Logger,
) *SwapExecutor {
	if logger == nil {
		logger = logrus.New()
	}
	return &SwapExecutor{
		guard:       guard,
		broadcaster: broadcaster,
		confirmer:   confirmer,
		book:        book,
		account:     account,
		logger:      logger,
	}
}

// Evaluate applies the swap gate at price and computes the slippage floor.
// A closed gate is returned as a plan with Proceed=false, not as an error.
func (e *SwapExecutor) Evaluate(ctx context.Context, p RunParams, price decimal.Decimal) (*SwapPlan, error) {
	balance, err := e.guard.Balance(ctx, p.Pair.Quote)
	if err != nil {
		return nil, err
	}

	basePrec, err := e.book.Precision(ctx, p.Pair.Base)
	if err != nil {
		return nil, err
	}

	expected := p.AmountIn.Mul(price)
	d := ShouldSwap(price, p.Threshold, balance, p.AmountIn)
	plan := &SwapPlan{
		Pair:         p.Pair,
		Price:        price,
		Threshold:    p.Threshold,
		AmountIn:     p.AmountIn,
		Balance:      balance,
		ExpectedOut:  expected,
		MinAmountOut: MinAmountOut(expected, p.SlippageTolerance, basePrec),
		Proceed:      d.Proceed,
		Reason:       d.Reason,
	}

	e.logger.WithFields(logrus.Fields{
		"price":          price.String(),
		"threshold":      p.Threshold.String(),
		"balance":        balance.String(),
		"amount_in":      p.AmountIn.String(),
		"expected_out":   expected.String(),
		"min_amount_out": plan.MinAmountOut.String(),
		"proceed":        plan.Proceed,
	}).Info("swap decision")
	return plan, nil
}

// Execute broadcasts the planned swap, waits for it to settle and reads the
// amount actually received from the settlement events. In dry-run mode
// nothing is broadcast and the expected output stands in for the receipt.
func (e *SwapExecutor) Execute(ctx context.Context, plan *SwapPlan, dryRun bool) (*SwapResult, error) {
	if plan == nil || !plan.Proceed {
		return nil, fmt.Errorf("swap plan does not allow execution")
	}

	quotePrec, err := e.book.Precision(ctx, plan.Pair.Quote)
	if err != nil {
		return nil, err
	}
	basePrec, err := e.book.Precision(ctx, plan.Pair.Base)
	if err != nil {
		return nil, err
	}

	payload := hive.SwapTokensPayload{
		TokenPair:    plan.Pair.String(),
		TokenSymbol:  plan.Pair.Quote,
		TokenAmount:  amount.Format(plan.AmountIn, quotePrec),
		TradeType:    constants.TradeTypeExactInput,
		MinAmountOut: amount.Format(plan.MinAmountOut, basePrec),
	}
	log := e.logger.WithFields(logrus.Fields{
		"pair":           payload.TokenPair,
		"token_amount":   payload.TokenAmount,
		"min_amount_out": payload.MinAmountOut,
		"dry_run":        dryRun,
	})

	if dryRun {
		received := amount.Quantize(plan.ExpectedOut, basePrec)
		body, _ := hive.ContractJSON(constants.ActionSwapTokens, payload)
		log.WithFields(logrus.Fields{
			"json":     string(body),
			"received": received.String(),
		}).Info("[DRY RUN] would broadcast swap, using expected output as simulated proceeds")
		return &SwapResult{Received: received, Simulated: true}, nil
	}

	if e.broadcaster == nil {
		return nil, fmt.Errorf("%w: no broadcaster configured", models.ErrBroadcast)
	}

	log.Info("broadcasting swap")
	receipt, err := e.broadcaster.SwapTokens(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: swapTokens: %v", models.ErrBroadcast, err)
	}

	txID := ExtractTxID(receipt)
	if txID == "" {
		log.WithField("receipt", receipt).Error("no transaction id in broadcast response")
		return &SwapResult{Receipt: receipt}, fmt.Errorf("%w: no transaction id in swap receipt", models.ErrUnconfirmable)
	}

	res := &SwapResult{TxID: txID, Receipt: receipt}
	conf, err := e.confirmer.Confirm(ctx, txID)
	if err != nil {
		return res, err
	}
	res.BlockNumber = conf.BlockNumber

	events := conf.Events()
	received, ok := confirm.FindTransfer(events, confirm.PoolPayout(e.account, plan.Pair.Base))
	if !ok || !received.IsPositive() {
		log.WithField("tx_id", txID).Error("swap confirmed but no payout event found")
		return res, fmt.Errorf("%w: no %s payout to %s in %s", models.ErrSettlementUnverifiable, plan.Pair.Base, e.account, txID)
	}
	res.Received = received

	if fee, ok := confirm.SwapFee(events); ok {
		res.Fee = &fee
	}

	fields := logrus.Fields{
		"tx_id":    txID,
		"block":    conf.BlockNumber,
		"received": received.String(),
		"expected": plan.ExpectedOut.String(),
	}
	if res.Fee != nil {
		fields["fee"] = res.Fee.String()
	}
	e.logger.WithFields(fields).Info("swap settled")
	return res, nil
}

// ExtractTxID returns the first transaction id found under trx_id, id or result.id.
func ExtractTxID(receipt map[string]any) string {
	if receipt == nil {
		return ""
	}
	if s := idString(receipt["trx_id"]); s != "" {
		return s
	}
	if s := idString(receipt["id"]); s != "" {
		return s
	}
	if nested, ok := receipt["result"].(map[string]any); ok {
		return idString(nested["id"])
	}
	return ""
}

// idString renders a receipt id. Strings and numbers are accepted; empty
// strings, zero and anything else yield "".
func idString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		if f, err := t.Float64(); err != nil || f == 0 {
			return ""
		}
		return t.String()
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		if t == 0 {
			return ""
		}
		return strconv.Itoa(t)
	case int64:
		if t == 0 {
			return ""
		}
		return strconv.FormatInt(t, 10)
	}
	return ""
}
