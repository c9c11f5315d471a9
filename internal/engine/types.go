package engine

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Pool is a marketpools/pools record.
type Pool struct {
	TokenPair     string              `json:"tokenPair"`
	BaseQuantity  decimal.NullDecimal `json:"baseQuantity"`
	QuoteQuantity decimal.NullDecimal `json:"quoteQuantity"`
	BasePrice     decimal.NullDecimal `json:"basePrice"`
	QuotePrice    decimal.NullDecimal `json:"quotePrice"`
	TotalShares   decimal.NullDecimal `json:"totalShares"`
	Precision     int                 `json:"precision"`
	Creator       string              `json:"creator"`
}

// Balance is a tokens/balances record. Stake and pending unstakes are ignored.
type Balance struct {
	Account string              `json:"account"`
	Symbol  string              `json:"symbol"`
	Balance decimal.NullDecimal `json:"balance"`
}

// Token is a tokens/tokens record.
type Token struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Issuer    string `json:"issuer"`
	Precision *int   `json:"precision"`
}

// TransactionInfo is the indexer view of a sidechain transaction.
// A nil *TransactionInfo means the indexer has not seen the id yet.
type TransactionInfo struct {
	BlockNumber   int64           `json:"blockNumber"`
	TransactionID string          `json:"transactionId"`
	Sender        string          `json:"sender"`
	Contract      string          `json:"contract"`
	Action        string          `json:"action"`
	Payload       string          `json:"payload"`
	Logs          json.RawMessage `json:"logs"`
}

// Included reports whether the transaction landed in a block.
func (t *TransactionInfo) Included() bool {
	return t != nil && t.BlockNumber > 0
}

// LogsText returns the JSON-encoded outcome log. ok is false when the field is
// absent, null, or not a string.
func (t *TransactionInfo) LogsText() (string, bool) {
	if t == nil {
		return "", false
	}
	raw := bytes.TrimSpace(t.Logs)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
