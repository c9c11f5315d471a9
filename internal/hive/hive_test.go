package hive

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/rpc"
)

var testSecret = bytes.Repeat([]byte{0x11}, 32)

func testKey(t *testing.T) *PrivateKey {
	t.Helper()
	k, err := ParseWIF(EncodeWIF(testSecret))
	require.NoError(t, err)
	return k
}

func TestParseWIF(t *testing.T) {
	k := testKey(t)
	assert.Equal(t, testSecret, crypto.FromECDSA(k.ecdsa))
}

func TestParseWIF_Rejects(t *testing.T) {
	good := EncodeWIF(testSecret)

	corrupt := []byte(good)
	if corrupt[10] == '2' {
		corrupt[10] = '3'
	} else {
		corrupt[10] = '2'
	}

	for name, wif := range map[string]string{
		"empty":    "",
		"not b58":  "0OIl",
		"short":    good[:20],
		"checksum": string(corrupt),
	} {
		_, err := ParseWIF(wif)
		assert.Error(t, err, name)
	}
}

func sampleTx() *Transaction {
	return &Transaction{
		RefBlockNum:    0x1234,
		RefBlockPrefix: 0x01020304,
		Expiration:     time.Unix(1700000000, 0).UTC(),
		Operations:     []CustomJSON{NewActiveCustomJSON("alice", []byte(`{"a":1}`))},
	}
}

func TestTransaction_Serialize(t *testing.T) {
	var want bytes.Buffer
	want.Write([]byte{0x34, 0x12})
	want.Write([]byte{0x04, 0x03, 0x02, 0x01})
	exp := make([]byte, 4)
	binary.LittleEndian.PutUint32(exp, 1700000000)
	want.Write(exp)
	want.WriteByte(0x01) // one operation
	want.WriteByte(18)   // custom_json
	want.Write([]byte{0x01, 0x05})
	want.WriteString("alice")
	want.WriteByte(0x00) // no posting auths
	want.WriteByte(0x10)
	want.WriteString("ssc-mainnet-hive")
	want.WriteByte(0x07)
	want.WriteString(`{"a":1}`)
	want.WriteByte(0x00) // extensions

	assert.Equal(t, hex.EncodeToString(want.Bytes()), hex.EncodeToString(sampleTx().Serialize()))
}

func TestTransaction_IDIgnoresSignatures(t *testing.T) {
	tx := sampleTx()
	id := tx.ID()
	assert.Len(t, id, 40)

	tx.Signatures = []string{"00"}
	assert.Equal(t, id, tx.ID())
}

func TestTransaction_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(sampleTx())
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "2023-11-14T22:13:20", out["expiration"])
	assert.Equal(t, float64(0x1234), out["ref_block_num"])

	ops := out["operations"].([]any)
	require.Len(t, ops, 1)
	op := ops[0].([]any)
	assert.Equal(t, "custom_json", op[0])
	body := op[1].(map[string]any)
	assert.Equal(t, []any{"alice"}, body["required_auths"])
	assert.Equal(t, []any{}, body["required_posting_auths"])
	assert.Equal(t, "ssc-mainnet-hive", body["id"])
	assert.Equal(t, []any{}, out["signatures"])
}

func TestRefBlock(t *testing.T) {
	num, prefix, err := RefBlock(0x12345678, "0123456789abcdef0011223344556677")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x5678), num)
	assert.Equal(t, uint32(0xefcdab89), prefix)

	_, _, err = RefBlock(1, "zz")
	assert.Error(t, err)
}

func TestSigner_SignIsCanonicalAndRecoverable(t *testing.T) {
	key := testKey(t)
	s, err := NewSigner(key, "")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		tx := sampleTx()
		tx.Expiration = tx.Expiration.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Sign(tx))
		require.Len(t, tx.Signatures, 1)

		compact, err := hex.DecodeString(tx.Signatures[0])
		require.NoError(t, err)
		require.Len(t, compact, 65)
		assert.True(t, IsCanonical(compact))
		assert.True(t, compact[0] == 31 || compact[0] == 32)

		pub, err := crypto.SigToPub(s.Digest(tx), fromCompact(compact))
		require.NoError(t, err)
		assert.Equal(t, crypto.PubkeyToAddress(*key.Public()), crypto.PubkeyToAddress(*pub))
	}
}

func TestIsCanonical(t *testing.T) {
	c := make([]byte, 65)
	c[1], c[33] = 0x01, 0x01
	assert.True(t, IsCanonical(c))

	c[1] = 0x80
	assert.False(t, IsCanonical(c))

	c[1], c[2] = 0x00, 0x01
	assert.False(t, IsCanonical(c))

	assert.False(t, IsCanonical(c[:64]))
}

func TestBroadcaster_SwapTokens(t *testing.T) {
	var broadcast map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.Method {
		case "condenser_api.get_dynamic_global_properties":
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"head_block_number":80000001,"head_block_id":"04c4b401aabbccdd00000000000000000000000000","time":"2024-05-01T10:00:00"}}`))
		case "condenser_api.broadcast_transaction":
			require.Len(t, req.Params, 1)
			require.NoError(t, json.Unmarshal(req.Params[0], &broadcast))
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}
	}))
	defer srv.Close()

	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	client, err := NewClient(rpc.ClientConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, Logger: l})
	require.NoError(t, err)

	b, err := NewBroadcaster(client, BroadcasterConfig{Account: "alice", ActiveKey: EncodeWIF(testSecret), Logger: l})
	require.NoError(t, err)

	out, err := b.SwapTokens(context.Background(), SwapTokensPayload{
		TokenPair:    "SWAP.HIVE:PIZZA",
		TokenSymbol:  "PIZZA",
		TokenAmount:  "50",
		TradeType:    "exactInput",
		MinAmountOut: "2.475",
	})
	require.NoError(t, err)
	assert.Len(t, out["trx_id"], 40)

	require.NotNil(t, broadcast)
	assert.Equal(t, float64(0xb401), broadcast["ref_block_num"])
	assert.Equal(t, float64(0xddccbbaa), broadcast["ref_block_prefix"])
	assert.Len(t, broadcast["signatures"], 1)

	op := broadcast["operations"].([]any)[0].([]any)[1].(map[string]any)
	var call map[string]any
	require.NoError(t, json.Unmarshal([]byte(op["json"].(string)), &call))
	assert.Equal(t, "marketpools", call["contractName"])
	assert.Equal(t, "swapTokens", call["contractAction"])
	payload := call["contractPayload"].(map[string]any)
	assert.Equal(t, "2.475", payload["minAmountOut"])
	assert.Equal(t, "exactInput", payload["tradeType"])
}

func TestNewBroadcaster_BadKey(t *testing.T) {
	client, err := NewClient(rpc.ClientConfig{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = NewBroadcaster(client, BroadcasterConfig{Account: "alice", ActiveKey: "nope"})
	assert.Error(t, err)

	_, err = NewBroadcaster(client, BroadcasterConfig{ActiveKey: EncodeWIF(testSecret)})
	assert.Error(t, err)
}
