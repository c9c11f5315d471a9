package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SettlementSwap    = "swap"
	SettlementDeposit = "deposit"
)

// Settlement is one confirmed marketpools action.
type Settlement struct {
	TxID        string          `json:"tx_id"`
	RunID       string          `json:"run_id"`
	Kind        string          `json:"kind"` // swap | deposit
	Timestamp   time.Time       `json:"timestamp"`
	Account     string          `json:"account"`
	TokenPair   string          `json:"token_pair"`
	BlockNumber int64           `json:"block_number"`
	BaseAmount  decimal.Decimal `json:"base_amount"`
	QuoteAmount decimal.Decimal `json:"quote_amount"`
	Price       decimal.Decimal `json:"price"`
	Fee         string          `json:"fee,omitempty"`
}
