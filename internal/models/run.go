package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunState is a node of the orchestrator state flow.
type RunState string

const (
	StateIdle             RunState = "idle"
	StatePriceChecked     RunState = "price_checked"
	StateNoAction         RunState = "no_action"
	StateSwapping         RunState = "swapping"
	StateSwapFailed       RunState = "swap_failed"
	StateSwapped          RunState = "swapped"
	StateDepositing       RunState = "depositing"
	StateDepositFailed    RunState = "deposit_failed"
	StateDepositSkipped   RunState = "deposit_skipped"
	StateDepositSucceeded RunState = "deposit_succeeded"
	StateAborted          RunState = "aborted"
)

// Terminal reports whether no further transition can follow s.
func (s RunState) Terminal() bool {
	switch s {
	case StateNoAction, StateSwapFailed, StateDepositFailed, StateDepositSkipped, StateDepositSucceeded, StateAborted:
		return true
	}
	return false
}

// RunReport is the full record of one invocation.
type RunReport struct {
	RunID      string     `json:"run_id"`
	Account    string     `json:"account"`
	TokenPair  string     `json:"token_pair"`
	DryRun     bool       `json:"dry_run"`
	State      RunState   `json:"state"`
	Trail      []RunState `json:"trail"`
	Reason     string     `json:"reason,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`

	Price     decimal.Decimal `json:"price"`
	Threshold decimal.Decimal `json:"threshold"`
	AmountIn  decimal.Decimal `json:"amount_in"`

	ExpectedOut  decimal.Decimal `json:"expected_out"`
	MinAmountOut decimal.Decimal `json:"min_amount_out"`
	Received     decimal.Decimal `json:"received"`
	SwapFee      string          `json:"swap_fee,omitempty"`
	SwapTxID     string          `json:"swap_tx_id,omitempty"`
	SwapBlock    int64           `json:"swap_block,omitempty"`

	DepositBase   decimal.Decimal `json:"deposit_base"`
	DepositQuote  decimal.Decimal `json:"deposit_quote"`
	DepositTxID   string          `json:"deposit_tx_id,omitempty"`
	DepositBlock  int64           `json:"deposit_block,omitempty"`
	DepositEvent  map[string]any  `json:"deposit_event,omitempty"`
	SwapSimulated bool            `json:"swap_simulated,omitempty"`
}

func NewRunReport(runID, account, pair string, dryRun bool) *RunReport {
	return &RunReport{
		RunID:     runID,
		Account:   account,
		TokenPair: pair,
		DryRun:    dryRun,
		State:     StateIdle,
		Trail:     []RunState{StateIdle},
		StartedAt: time.Now().UTC(),
	}
}

// Transition moves the report to s and records it in the trail.
func (r *RunReport) Transition(s RunState) {
	r.State = s
	r.Trail = append(r.Trail, s)
	if s.Terminal() {
		r.FinishedAt = time.Now().UTC()
	}
}

// Fail records err and ends the run in s.
func (r *RunReport) Fail(s RunState, err error) {
	if err != nil {
		r.Error = err.Error()
	}
	r.Transition(s)
}

// Succeeded is true for a clean no-op decision, a deposit skipped for lack
// of funds, or a completed deposit.
func (r *RunReport) Succeeded() bool {
	switch r.State {
	case StateNoAction, StateDepositSkipped, StateDepositSucceeded:
		return true
	}
	return false
}

// ExitCode is the process status for the run.
func (r *RunReport) ExitCode() int {
	if r.Succeeded() {
		return 0
	}
	return 1
}

// SwapConfirmed mirrors the run's "target asset swapped successfully" outcome.
func (r *RunReport) SwapConfirmed() bool {
	for _, s := range r.Trail {
		if s == StateSwapped {
			return true
		}
	}
	return false
}

// Settlements returns the confirmed on-chain actions of a live run.
func (r *RunReport) Settlements() []Settlement {
	if r.DryRun {
		return nil
	}

	var out []Settlement
	if r.SwapTxID != "" && r.SwapConfirmed() {
		out = append(out, Settlement{
			TxID:        r.SwapTxID,
			RunID:       r.RunID,
			Kind:        SettlementSwap,
			Timestamp:   r.FinishedAt,
			Account:     r.Account,
			TokenPair:   r.TokenPair,
			BlockNumber: r.SwapBlock,
			BaseAmount:  r.Received,
			QuoteAmount: r.AmountIn,
			Price:       r.Price,
			Fee:         r.SwapFee,
		})
	}
	if r.DepositTxID != "" && r.State == StateDepositSucceeded {
		out = append(out, Settlement{
			TxID:        r.DepositTxID,
			RunID:       r.RunID,
			Kind:        SettlementDeposit,
			Timestamp:   r.FinishedAt,
			Account:     r.Account,
			TokenPair:   r.TokenPair,
			BlockNumber: r.DepositBlock,
			BaseAmount:  r.DepositBase,
			QuoteAmount: r.DepositQuote,
			Price:       r.Price,
		})
	}
	return out
}
