package confirm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/engine"
)

func included(block int64, logs string) *engine.TransactionInfo {
	raw, _ := json.Marshal(logs)
	return &engine.TransactionInfo{BlockNumber: block, Logs: raw}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		info *engine.TransactionInfo
		want Kind
	}{
		{"not found", nil, Pending},
		{"no block", &engine.TransactionInfo{TransactionID: "x"}, Pending},
		{"missing logs", &engine.TransactionInfo{BlockNumber: 7}, Unparseable},
		{"logs not a string", &engine.TransactionInfo{BlockNumber: 7, Logs: json.RawMessage(`{"events":[]}`)}, Unparseable},
		{"garbage", included(7, "{not json"), Unparseable},
		{"array", included(7, "[]"), Unparseable},
		{"events not a list", included(7, `{"events":"x"}`), Unparseable},
		{"errors", included(7, rejectedLog), OnChainError},
		{"empty errors", included(7, `{"errors":[],"events":[]}`), Confirmed},
		{"clean", included(7, swapLog), Confirmed},
		{"trailing garbage", included(7, `{"errors":[]} garbage`), Unparseable},
		{"second object", included(7, `{"errors":[]}{"errors":["x"]}`), Unparseable},
		{"trailing whitespace", included(7, "{\"errors\":[]}\n "), Confirmed},
		{"errors as string", included(7, `{"errors":"boom"}`), OnChainError},
		{"errors as object", included(7, `{"errors":{"code":1}}`), OnChainError},
		{"errors true", included(7, `{"errors":true}`), OnChainError},
		{"errors empty string", included(7, `{"errors":"","events":[]}`), Confirmed},
		{"errors false", included(7, `{"errors":false,"events":[]}`), Confirmed},
		{"errors zero", included(7, `{"errors":0,"events":[]}`), Confirmed},
		{"errors null", included(7, `{"errors":null,"events":[]}`), Confirmed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Classify(tc.info)
			assert.Equal(t, tc.want, out.Kind, out.Reason)
		})
	}
}

func TestClassify_CarriesPayload(t *testing.T) {
	out := Classify(included(99, swapLog))
	require.Equal(t, Confirmed, out.Kind)
	assert.Equal(t, int64(99), out.BlockNumber)
	assert.Len(t, out.Log.Events, 4)

	out = Classify(included(99, rejectedLog))
	require.Equal(t, OnChainError, out.Kind)
	assert.Equal(t, []any{"minAmountOut not met"}, out.Errors)
}

func TestDecodeLog_ScalarErrorBecomesList(t *testing.T) {
	log, err := DecodeLog(`{"errors":"boom","events":[]}`)
	require.NoError(t, err)
	assert.Equal(t, []any{"boom"}, log.Errors)
}
