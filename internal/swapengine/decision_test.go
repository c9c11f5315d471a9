package swapengine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

func TestShouldSwap_AllCombinations(t *testing.T) {
	cases := []struct {
		name    string
		price   string
		balance string
		want    bool
	}{
		{"above and funded", "0.05", "50", true},
		{"above, underfunded", "0.05", "49.999", false},
		{"at threshold, funded", "0.047", "100", false},
		{"below, underfunded", "0.04", "10", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := ShouldSwap(dec(tc.price), dec("0.047"), dec(tc.balance), dec("50"))
			assert.Equal(t, tc.want, d.Proceed)
			if !tc.want {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestMinAmountOut(t *testing.T) {
	// 50 * 0.05 = 2.5; 2.5 * 0.99 = 2.475
	assert.Equal(t, "2.475", MinAmountOut(dec("2.5"), dec("0.01"), 8).String())
	assert.Equal(t, "2.47", MinAmountOut(dec("2.5"), dec("0.01"), 2).String())
	assert.Equal(t, "2.5", MinAmountOut(dec("2.5"), dec("0"), 3).String())
}

func TestValidateParams(t *testing.T) {
	assert.NoError(t, ValidateParams(defaultParams()))

	mutations := map[string]func(p *RunParams){
		"no base":        func(p *RunParams) { p.Pair.Base = "" },
		"same symbols":   func(p *RunParams) { p.Pair.Quote = p.Pair.Base },
		"zero amount":    func(p *RunParams) { p.AmountIn = dec("0") },
		"zero threshold": func(p *RunParams) { p.Threshold = dec("0") },
		"slippage one":   func(p *RunParams) { p.SlippageTolerance = dec("1") },
		"slippage neg":   func(p *RunParams) { p.SlippageTolerance = dec("-0.1") },
	}
	for name, mutate := range mutations {
		p := defaultParams()
		mutate(&p)
		err := ValidateParams(p)
		assert.True(t, errors.Is(err, models.ErrConfiguration), name)
	}
}

func TestExtractTxID(t *testing.T) {
	assert.Equal(t, "a", ExtractTxID(map[string]any{"trx_id": "a", "id": "b"}))
	assert.Equal(t, "b", ExtractTxID(map[string]any{"trx_id": "", "id": "b"}))
	assert.Equal(t, "c", ExtractTxID(map[string]any{"result": map[string]any{"id": "c"}}))
	assert.Equal(t, "12", ExtractTxID(map[string]any{"id": 12}))
	assert.Equal(t, "12", ExtractTxID(map[string]any{"id": float64(12)}))
	assert.Equal(t, "77", ExtractTxID(map[string]any{"result": map[string]any{"id": json.Number("77")}}))
	assert.Equal(t, "9", ExtractTxID(map[string]any{"trx_id": 0, "id": int64(9)}))
	assert.Equal(t, "", ExtractTxID(map[string]any{"id": 0.0}))
	assert.Equal(t, "", ExtractTxID(map[string]any{"id": true}))
	assert.Equal(t, "", ExtractTxID(nil))
}
