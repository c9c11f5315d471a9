package swapengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/confirm"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/engine"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/hive"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

const (
	testAccount = "alice"
	base        = "SWAP.HIVE"
	quote       = "PIZZA"
)

var testPair = TokenPair{Base: base, Quote: quote}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pool(baseQty, quoteQty, price string) *engine.Pool {
	p := &engine.Pool{TokenPair: testPair.String()}
	if baseQty != "" {
		p.BaseQuantity = decimal.NewNullDecimal(dec(baseQty))
	}
	if quoteQty != "" {
		p.QuoteQuantity = decimal.NewNullDecimal(dec(quoteQty))
	}
	if price != "" {
		p.QuotePrice = decimal.NewNullDecimal(dec(price))
	}
	return p
}

// fakeMarket serves pools in order, repeating the last one.
type fakeMarket struct {
	pools      []*engine.Pool
	poolErr    error
	poolCalls  int
	balances   map[string]string
	balanceErr error
	precisions map[string]int32
}

func newMarket(pools ...*engine.Pool) *fakeMarket {
	return &fakeMarket{
		pools:      pools,
		balances:   map[string]string{quote: "200", base: "10"},
		precisions: map[string]int32{quote: 3, base: 8},
	}
}

func (m *fakeMarket) Pool(_ context.Context, pair string) (*engine.Pool, error) {
	if m.poolErr != nil {
		return nil, m.poolErr
	}
	if len(m.pools) == 0 {
		return nil, nil
	}
	i := m.poolCalls
	if i >= len(m.pools) {
		i = len(m.pools) - 1
	}
	m.poolCalls++
	return m.pools[i], nil
}

func (m *fakeMarket) Balance(_ context.Context, account, symbol string) (*engine.Balance, error) {
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	v, ok := m.balances[symbol]
	if !ok {
		return nil, nil
	}
	return &engine.Balance{Account: account, Symbol: symbol, Balance: decimal.NewNullDecimal(dec(v))}, nil
}

func (m *fakeMarket) Precision(_ context.Context, symbol string) (int32, error) {
	p, ok := m.precisions[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrTokenMetadata, symbol)
	}
	return p, nil
}

type fakeBroadcaster struct {
	swaps    []hive.SwapTokensPayload
	deposits []hive.AddLiquidityPayload

	swapReceipt    map[string]any
	depositReceipt map[string]any
	err            error
}

func newBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		swapReceipt:    map[string]any{"trx_id": "swaptx"},
		depositReceipt: map[string]any{"trx_id": "deptx"},
	}
}

func (b *fakeBroadcaster) SwapTokens(_ context.Context, p hive.SwapTokensPayload) (map[string]any, error) {
	b.swaps = append(b.swaps, p)
	if b.err != nil {
		return nil, b.err
	}
	return b.swapReceipt, nil
}

func (b *fakeBroadcaster) AddLiquidity(_ context.Context, p hive.AddLiquidityPayload) (map[string]any, error) {
	b.deposits = append(b.deposits, p)
	if b.err != nil {
		return nil, b.err
	}
	return b.depositReceipt, nil
}

func (b *fakeBroadcaster) calls() int { return len(b.swaps) + len(b.deposits) }

// fakeIndexer answers getTransactionInfo with a fixed log per tx id.
type fakeIndexer struct {
	logs    map[string]string
	queries map[string]int
}

func newIndexer(logs map[string]string) *fakeIndexer {
	return &fakeIndexer{logs: logs, queries: map[string]int{}}
}

func (f *fakeIndexer) GetTransactionInfo(_ context.Context, txID string) (*engine.TransactionInfo, error) {
	f.queries[txID]++
	text, ok := f.logs[txID]
	if !ok {
		return nil, nil
	}
	raw, _ := json.Marshal(text)
	return &engine.TransactionInfo{BlockNumber: 1000, TransactionID: txID, Logs: raw}, nil
}

func newConfirmer(idx confirm.Indexer) *confirm.Confirmer {
	return confirm.New(idx, confirm.Config{
		InitialDelay: time.Second,
		RetryDelay:   time.Second,
		MaxAttempts:  3,
		Logger:       quiet(),
		Sleep:        func(context.Context, time.Duration) error { return nil },
	})
}

type fakeHalt struct {
	halted bool
	err    error
}

func (h fakeHalt) Halted(context.Context) (bool, error) { return h.halted, h.err }

type memorySink struct {
	reports []*models.RunReport
	err     error
}

func (s *memorySink) Record(_ context.Context, r *models.RunReport) error {
	s.reports = append(s.reports, r)
	return s.err
}

func payoutLog(to, symbol, qty string) string {
	return fmt.Sprintf(`{"events":[`+
		`{"contract":"tokens","event":"transferToContract","data":{"from":"%s","to":"marketpools","symbol":"PIZZA","quantity":"50"}},`+
		`{"contract":"tokens","event":"transferFromContract","data":{"from":"marketpools","to":"%s","symbol":"%s","quantity":"%s"}},`+
		`{"contract":"marketpools","event":"swapTokens","data":{"fee":{"amount":"0.0118","symbol":"SWAP.HIVE"}}}`+
		`]}`, to, to, symbol, qty)
}

const addLiquidityLog = `{"events":[{"contract":"marketpools","event":"addLiquidity","data":{"tokenPair":"SWAP.HIVE:PIZZA"}}]}`

var errBoom = errors.New("boom")

func defaultParams() RunParams {
	return RunParams{
		Pair:              testPair,
		AmountIn:          dec("50"),
		Threshold:         dec("0.047"),
		SlippageTolerance: dec("0.01"),
	}
}
