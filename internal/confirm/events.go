package confirm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
)

// Event is a single settlement event from an outcome log.
type Event struct {
	Contract string         `json:"contract"`
	Event    string         `json:"event"`
	Data     map[string]any `json:"data"`
}

// TransferMatch selects a transfer event by contract, name, counterparties and symbol.
type TransferMatch struct {
	Contract string
	Event    string
	From     string
	To       string
	Symbol   string
}

// PoolPayout matches the transfer the pool contract makes to account after a swap.
func PoolPayout(account, symbol string) TransferMatch {
	return TransferMatch{
		Contract: constants.ContractTokens,
		Event:    constants.EventTransferFromContract,
		From:     constants.ContractMarketPools,
		To:       account,
		Symbol:   symbol,
	}
}

// FindTransfer returns the quantity of the first event matching m. Event order
// inside a batch carries no meaning; the first readable match wins.
func FindTransfer(events []Event, m TransferMatch) (decimal.Decimal, bool) {
	for _, ev := range events {
		if ev.Contract != m.Contract || ev.Event != m.Event {
			continue
		}
		if str(ev.Data["from"]) != m.From || str(ev.Data["to"]) != m.To || str(ev.Data["symbol"]) != m.Symbol {
			continue
		}
		if q, ok := Decimal(ev.Data["quantity"]); ok {
			return q, true
		}
	}
	return decimal.Zero, false
}

// FindEvent returns the first event with the given contract and name.
func FindEvent(events []Event, contract, name string) (*Event, bool) {
	for i := range events {
		if events[i].Contract == contract && events[i].Event == name {
			return &events[i], true
		}
	}
	return nil, false
}

// Fee is the swap fee reported by the pool.
type Fee struct {
	Amount decimal.Decimal
	Symbol string
}

func (f Fee) String() string {
	return fmt.Sprintf("%s %s", f.Amount.String(), f.Symbol)
}

// SwapFee reads fee.amount and fee.symbol from the marketpools swapTokens event.
func SwapFee(events []Event) (Fee, bool) {
	ev, ok := FindEvent(events, constants.ContractMarketPools, constants.EventSwapTokens)
	if !ok {
		return Fee{}, false
	}
	feeData, ok := ev.Data["fee"].(map[string]any)
	if !ok {
		return Fee{}, false
	}
	amt, ok := Decimal(feeData["amount"])
	if !ok {
		return Fee{}, false
	}
	return Fee{Amount: amt, Symbol: str(feeData["symbol"])}, true
}

// Decimal converts a decoded JSON value to a decimal.
func Decimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	}
	return decimal.Zero, false
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
