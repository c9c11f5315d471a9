package confirm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/engine"
)

// Kind tags an Outcome.
type Kind int

const (
	Pending Kind = iota
	Confirmed
	OnChainError
	Unparseable
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case OnChainError:
		return "on_chain_error"
	case Unparseable:
		return "unparseable"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// OutcomeLog is the decoded logs field of an included transaction.
type OutcomeLog struct {
	Errors []any   `json:"errors"`
	Events []Event `json:"events"`
}

// Outcome is the result of one indexer lookup. Log is set for Confirmed,
// Errors for OnChainError and Reason for Pending and Unparseable.
type Outcome struct {
	Kind        Kind
	BlockNumber int64
	Log         *OutcomeLog
	Errors      []any
	Reason      string
}

// Classify maps a single indexer reply to an Outcome. It does no I/O.
func Classify(info *engine.TransactionInfo) Outcome {
	if info == nil {
		return Outcome{Kind: Pending, Reason: "transaction not found"}
	}
	if !info.Included() {
		return Outcome{Kind: Pending, Reason: "no block number"}
	}

	text, ok := info.LogsText()
	if !ok || strings.TrimSpace(text) == "" {
		return Outcome{Kind: Unparseable, BlockNumber: info.BlockNumber, Reason: "no outcome log"}
	}

	log, err := DecodeLog(text)
	if err != nil {
		return Outcome{Kind: Unparseable, BlockNumber: info.BlockNumber, Reason: err.Error()}
	}
	if len(log.Errors) > 0 {
		return Outcome{Kind: OnChainError, BlockNumber: info.BlockNumber, Errors: log.Errors, Log: log}
	}
	return Outcome{Kind: Confirmed, BlockNumber: info.BlockNumber, Log: log}
}

// DecodeLog parses the JSON-encoded outcome log. Numbers are kept as
// json.Number so quantities survive without float rounding.
func DecodeLog(text string) (*OutcomeLog, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode logs: not an object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode logs: trailing data after object")
	}

	out := &OutcomeLog{}
	if raw, ok := fields["errors"]; ok && !isNull(raw) {
		var v any
		if err := decodeNumbers(raw, &v); err != nil {
			return nil, fmt.Errorf("decode logs errors: %w", err)
		}
		out.Errors = errorList(v)
	}
	if raw, ok := fields["events"]; ok && !isNull(raw) {
		if err := decodeNumbers(raw, &out.Events); err != nil {
			return nil, fmt.Errorf("decode logs events: %w", err)
		}
	}
	return out, nil
}

// errorList normalizes the errors field. Any non-empty value counts as a
// failure: a list is kept as is, a scalar or object becomes a one-element list.
func errorList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case bool:
		if !t {
			return nil
		}
	case string:
		if t == "" {
			return nil
		}
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return nil
		}
	case map[string]any:
		if len(t) == 0 {
			return nil
		}
	}
	return []any{v}
}

func decodeNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
