package swapengine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/engine"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/storage"
)

type harness struct {
	market      *fakeMarket
	broadcaster *fakeBroadcaster
	indexer     *fakeIndexer
	sink        *memorySink
	halt        HaltSwitch
}

// newHarness prices the pool at 0.05 for the swap and serves shifted reserves afterwards.
func newHarness(pools ...*engine.Pool) *harness {
	if len(pools) == 0 {
		pools = []*engine.Pool{
			pool("1000", "20000", "0.05"),
			pool("1100", "20000", "0.055"),
		}
	}
	return &harness{
		market:      newMarket(pools...),
		broadcaster: newBroadcaster(),
		indexer: newIndexer(map[string]string{
			"swaptx": payoutLog(testAccount, base, "4.7"),
			"deptx":  addLiquidityLog,
		}),
		sink: &memorySink{},
	}
}

func (h *harness) run(t *testing.T, p RunParams) (*models.RunReport, error) {
	t.Helper()
	e, err := New(Credentials{Account: testAccount}, Deps{
		Market:      h.market,
		Broadcaster: h.broadcaster,
		Confirmer:   newConfirmer(h.indexer),
		Halt:        h.halt,
		Sinks:       []storage.ReportSink{h.sink},
		Logger:      quiet(),
	})
	require.NoError(t, err)

	report, runErr := e.Run(context.Background(), p)
	require.NotNil(t, report)
	return report, runErr
}

func TestRun_ScenarioA_SwapThenDeposit(t *testing.T) {
	h := newHarness()

	report, err := h.run(t, defaultParams())
	require.NoError(t, err)

	require.Len(t, h.broadcaster.swaps, 1)
	swap := h.broadcaster.swaps[0]
	assert.Equal(t, "SWAP.HIVE:PIZZA", swap.TokenPair)
	assert.Equal(t, "PIZZA", swap.TokenSymbol)
	assert.Equal(t, "50", swap.TokenAmount)
	assert.Equal(t, "exactInput", swap.TradeType)
	assert.Equal(t, "2.475", swap.MinAmountOut)

	assert.Equal(t, "4.7", report.Received.String())
	assert.Equal(t, "0.0118 SWAP.HIVE", report.SwapFee)

	// 4.7 * 20000 / 1100 from the post-swap reserves, truncated to 3 places
	require.Len(t, h.broadcaster.deposits, 1)
	assert.Equal(t, "4.7", h.broadcaster.deposits[0].BaseQuantity)
	assert.Equal(t, "85.454", h.broadcaster.deposits[0].QuoteQuantity)
	assert.Equal(t, 2, h.market.poolCalls)

	assert.Equal(t, models.StateDepositSucceeded, report.State)
	assert.Equal(t, []models.RunState{
		models.StateIdle,
		models.StatePriceChecked,
		models.StateSwapping,
		models.StateSwapped,
		models.StateDepositing,
		models.StateDepositSucceeded,
	}, report.Trail)
	assert.Equal(t, 0, report.ExitCode())
	assert.Equal(t, "swaptx", report.SwapTxID)
	assert.Equal(t, "deptx", report.DepositTxID)
	assert.Len(t, h.sink.reports, 1)
}

func TestRun_ScenarioB_PriceBelowThreshold(t *testing.T) {
	h := newHarness(pool("1000", "25000", "0.04"))

	report, err := h.run(t, defaultParams())
	require.NoError(t, err)

	assert.Equal(t, models.StateNoAction, report.State)
	assert.Equal(t, []models.RunState{models.StateIdle, models.StatePriceChecked, models.StateNoAction}, report.Trail)
	assert.Equal(t, 0, report.ExitCode())
	assert.Zero(t, h.broadcaster.calls())
	assert.NotEmpty(t, report.Reason)
}

func TestRun_ScenarioC_SwapRejectedSkipsDeposit(t *testing.T) {
	h := newHarness()
	h.indexer.logs["swaptx"] = `{"errors":["Insufficient output amount"],"events":[]}`

	report, err := h.run(t, defaultParams())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrOnChainRejection))

	assert.Equal(t, models.StateSwapFailed, report.State)
	assert.False(t, report.SwapConfirmed())
	assert.Equal(t, 1, report.ExitCode())
	assert.Len(t, h.broadcaster.swaps, 1)
	assert.Empty(t, h.broadcaster.deposits)
	assert.Equal(t, 1, h.indexer.queries["swaptx"])
	assert.Empty(t, report.Settlements())
}

func TestRun_InsufficientBalanceIsNoAction(t *testing.T) {
	h := newHarness()
	h.market.balances[quote] = "49.999"

	report, err := h.run(t, defaultParams())
	require.NoError(t, err)
	assert.Equal(t, models.StateNoAction, report.State)
	assert.Zero(t, h.broadcaster.calls())
}

func TestRun_MissingTargetBalanceIsNoAction(t *testing.T) {
	h := newHarness()
	delete(h.market.balances, quote)

	report, err := h.run(t, defaultParams())
	require.NoError(t, err)
	assert.Equal(t, models.StateNoAction, report.State)
}

func TestRun_DryRunNeverBroadcasts(t *testing.T) {
	h := newHarness()
	p := defaultParams()
	p.DryRun = true

	report, err := h.run(t, p)
	require.NoError(t, err)

	assert.Zero(t, h.broadcaster.calls())
	assert.Empty(t, h.indexer.queries)
	assert.Equal(t, models.StateDepositSucceeded, report.State)
	assert.True(t, report.SwapSimulated)
	assert.Equal(t, "2.5", report.Received.String())
	assert.Equal(t, "2.475", report.MinAmountOut.String())
	// 2.5 * 20000 / 1100
	assert.Equal(t, "45.454", report.DepositQuote.String())
	assert.Empty(t, report.Settlements())
}

func TestRun_DryRunWithoutBroadcaster(t *testing.T) {
	h := newHarness()
	e, err := New(Credentials{Account: testAccount}, Deps{
		Market:    h.market,
		Confirmer: newConfirmer(h.indexer),
		Logger:    quiet(),
	})
	require.NoError(t, err)

	p := defaultParams()
	p.DryRun = true
	report, err := e.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, models.StateDepositSucceeded, report.State)
}

func TestRun_KillSwitch(t *testing.T) {
	h := newHarness()
	h.halt = fakeHalt{halted: true}

	report, err := h.run(t, defaultParams())
	require.NoError(t, err)
	assert.Equal(t, models.StateNoAction, report.State)
	assert.Equal(t, "trading halted by flag", report.Reason)
	assert.Zero(t, h.broadcaster.calls())
}

func TestRun_KillSwitchUnavailable(t *testing.T) {
	h := newHarness()
	h.halt = fakeHalt{err: errBoom}

	report, err := h.run(t, defaultParams())
	require.Error(t, err)
	assert.Equal(t, models.StateAborted, report.State)
	assert.Zero(t, h.broadcaster.calls())
}

func TestRun_NoTransactionIDIsUnconfirmable(t *testing.T) {
	h := newHarness()
	h.broadcaster.swapReceipt = map[string]any{"result": map[string]any{}}

	report, err := h.run(t, defaultParams())
	assert.True(t, errors.Is(err, models.ErrUnconfirmable))
	assert.Equal(t, models.StateSwapFailed, report.State)
	assert.Empty(t, h.indexer.queries)
	assert.Empty(t, h.broadcaster.deposits)
}

func TestRun_AlternativeIDField(t *testing.T) {
	h := newHarness()
	h.broadcaster.swapReceipt = map[string]any{"result": map[string]any{"id": "swaptx"}}

	report, err := h.run(t, defaultParams())
	require.NoError(t, err)
	assert.Equal(t, "swaptx", report.SwapTxID)
}

func TestRun_CleanSwapWithoutPayoutIsUnverifiable(t *testing.T) {
	h := newHarness()
	h.indexer.logs["swaptx"] = payoutLog("mallory", base, "4.7")

	report, err := h.run(t, defaultParams())
	assert.True(t, errors.Is(err, models.ErrSettlementUnverifiable))
	assert.Equal(t, models.StateSwapFailed, report.State)
	assert.Empty(t, h.broadcaster.deposits)
}

func TestRun_SwapNeverConfirmed(t *testing.T) {
	h := newHarness()
	delete(h.indexer.logs, "swaptx")

	report, err := h.run(t, defaultParams())
	assert.True(t, errors.Is(err, models.ErrConfirmationTimeout))
	assert.Equal(t, models.StateSwapFailed, report.State)
	assert.Equal(t, 3, h.indexer.queries["swaptx"])
	assert.Empty(t, h.broadcaster.deposits)
}

func TestRun_BroadcastError(t *testing.T) {
	h := newHarness()
	h.broadcaster.err = errBoom

	report, err := h.run(t, defaultParams())
	assert.True(t, errors.Is(err, models.ErrBroadcast))
	assert.Equal(t, models.StateSwapFailed, report.State)
	assert.Len(t, h.broadcaster.swaps, 1)
	assert.Empty(t, h.broadcaster.deposits)
}

func TestRun_DepositInsufficientBalanceIsSkipped(t *testing.T) {
	h := newHarness(pool("1000", "20000", "0.05"))
	// enough to sell 50, not enough to pair 4.7 base at 20 PIZZA each
	h.market.balances[quote] = "60"

	report, err := h.run(t, defaultParams())
	require.NoError(t, err)
	assert.Equal(t, models.StateDepositSkipped, report.State)
	assert.Contains(t, report.Reason, "PIZZA have 60 need 94")
	assert.True(t, report.SwapConfirmed())
	assert.Equal(t, 0, report.ExitCode())
	assert.Len(t, h.broadcaster.swaps, 1)
	assert.Empty(t, h.broadcaster.deposits)
	assert.Empty(t, report.Error)

	// the confirmed swap is still a settlement
	s := report.Settlements()
	require.Len(t, s, 1)
	assert.Equal(t, models.SettlementSwap, s[0].Kind)
}

func TestRun_DryRunWithoutBaseBalanceIsSkipped(t *testing.T) {
	h := newHarness()
	delete(h.market.balances, base)
	p := defaultParams()
	p.DryRun = true

	report, err := h.run(t, p)
	require.NoError(t, err)
	assert.Equal(t, models.StateDepositSkipped, report.State)
	assert.Equal(t, 0, report.ExitCode())
	assert.Contains(t, report.Reason, "SWAP.HIVE have 0 need 2.5")
	assert.Zero(t, h.broadcaster.calls())
}

func TestRun_DepositBroadcastFailureStillFails(t *testing.T) {
	h := newHarness()
	delete(h.indexer.logs, "deptx")

	report, err := h.run(t, defaultParams())
	assert.True(t, errors.Is(err, models.ErrConfirmationTimeout))
	assert.Equal(t, models.StateDepositFailed, report.State)
	assert.Equal(t, 1, report.ExitCode())
	assert.Len(t, h.broadcaster.deposits, 1)
}

func TestRun_OracleUnavailable(t *testing.T) {
	h := newHarness()
	h.market.pools = nil

	report, err := h.run(t, defaultParams())
	assert.True(t, errors.Is(err, models.ErrOracleUnavailable))
	assert.Equal(t, []models.RunState{models.StateIdle, models.StateAborted}, report.Trail)
	assert.Equal(t, 1, report.ExitCode())
}

func TestRun_ZeroOrMissingPrice(t *testing.T) {
	for _, p := range []*engine.Pool{pool("1000", "20000", "0"), pool("1000", "20000", "")} {
		h := newHarness(p)
		report, err := h.run(t, defaultParams())
		assert.True(t, errors.Is(err, models.ErrOracleUnavailable))
		assert.Equal(t, models.StateAborted, report.State)
	}
}

func TestRun_MissingTokenMetadata(t *testing.T) {
	h := newHarness()
	delete(h.market.precisions, quote)

	report, err := h.run(t, defaultParams())
	assert.True(t, errors.Is(err, models.ErrTokenMetadata))
	assert.Equal(t, models.StateAborted, report.State)
	assert.Zero(t, h.market.poolCalls)
}

func TestRun_BalanceQueryFailure(t *testing.T) {
	h := newHarness()
	h.market.balanceErr = errBoom

	report, err := h.run(t, defaultParams())
	assert.True(t, errors.Is(err, models.ErrBalanceUnavailable))
	assert.Equal(t, models.StateAborted, report.State)
	assert.Zero(t, h.broadcaster.calls())
}

func TestRun_InvalidParams(t *testing.T) {
	h := newHarness()
	p := defaultParams()
	p.AmountIn = dec("0")

	report, err := h.run(t, p)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
	assert.Equal(t, models.StateAborted, report.State)
	assert.Zero(t, h.market.poolCalls)
}

func TestRun_SinkFailureDoesNotChangeOutcome(t *testing.T) {
	h := newHarness()
	h.sink.err = errBoom

	report, err := h.run(t, defaultParams())
	require.NoError(t, err)
	assert.Equal(t, models.StateDepositSucceeded, report.State)
	assert.Len(t, h.sink.reports, 1)
}

func TestNew_RequiresAccount(t *testing.T) {
	_, err := New(Credentials{}, Deps{Market: newMarket(), Confirmer: newConfirmer(newIndexer(nil))})
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}
