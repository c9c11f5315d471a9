package hive

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
)

const timeLayout = "2006-01-02T15:04:05"

// CustomJSON is the custom_json operation the sidechain listens to.
type CustomJSON struct {
	RequiredAuths        []string `json:"required_auths"`
	RequiredPostingAuths []string `json:"required_posting_auths"`
	ID                   string   `json:"id"`
	JSON                 string   `json:"json"`
}

// Transaction is a single-operation Hive transaction.
type Transaction struct {
	RefBlockNum    uint16
	RefBlockPrefix uint32
	Expiration     time.Time
	Operations     []CustomJSON
	Signatures     []string
}

// RefBlock derives the TaPoS reference from a head block number and id.
func RefBlock(headNum uint32, headID string) (uint16, uint32, error) {
	id, err := hex.DecodeString(headID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid head block id: %w", err)
	}
	if len(id) < 8 {
		return 0, 0, fmt.Errorf("head block id too short")
	}
	return uint16(headNum & 0xFFFF), binary.LittleEndian.Uint32(id[4:8]), nil
}

// NewActiveCustomJSON builds a sidechain call authorized by account's active key.
func NewActiveCustomJSON(account string, body []byte) CustomJSON {
	return CustomJSON{
		RequiredAuths:        []string{account},
		RequiredPostingAuths: []string{},
		ID:                   constants.SidechainID,
		JSON:                 string(body),
	}
}

// Serialize encodes the transaction without signatures in the chain's binary format.
func (tx *Transaction) Serialize() []byte {
	var buf bytes.Buffer

	_ = binary.Write(&buf, binary.LittleEndian, tx.RefBlockNum)
	_ = binary.Write(&buf, binary.LittleEndian, tx.RefBlockPrefix)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(tx.Expiration.UTC().Unix()))

	writeVarint(&buf, uint64(len(tx.Operations)))
	for _, op := range tx.Operations {
		writeVarint(&buf, constants.CustomJSONOpID)
		writeStrings(&buf, op.RequiredAuths)
		writeStrings(&buf, op.RequiredPostingAuths)
		writeString(&buf, op.ID)
		writeString(&buf, op.JSON)
	}

	// extensions
	writeVarint(&buf, 0)
	return buf.Bytes()
}

// ID is the transaction id: the first 20 bytes of sha256 over the unsigned body.
func (tx *Transaction) ID() string {
	sum := sha256.Sum256(tx.Serialize())
	return hex.EncodeToString(sum[:20])
}

// MarshalJSON renders the condenser_api form.
func (tx *Transaction) MarshalJSON() ([]byte, error) {
	ops := make([]any, 0, len(tx.Operations))
	for _, op := range tx.Operations {
		ops = append(ops, []any{constants.CustomJSONOpName, op})
	}
	sigs := tx.Signatures
	if sigs == nil {
		sigs = []string{}
	}
	return json.Marshal(struct {
		RefBlockNum    uint16   `json:"ref_block_num"`
		RefBlockPrefix uint32   `json:"ref_block_prefix"`
		Expiration     string   `json:"expiration"`
		Operations     []any    `json:"operations"`
		Extensions     []any    `json:"extensions"`
		Signatures     []string `json:"signatures"`
	}{
		RefBlockNum:    tx.RefBlockNum,
		RefBlockPrefix: tx.RefBlockPrefix,
		Expiration:     tx.Expiration.UTC().Format(timeLayout),
		Operations:     ops,
		Extensions:     []any{},
		Signatures:     sigs,
	})
}

func writeVarint(buf *bytes.Buffer, v uint64) {
	buf.Write(binary.AppendUvarint(nil, v))
}

func writeString(buf *bytes.Buffer, s string) {
	writeVarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func writeStrings(buf *bytes.Buffer, ss []string) {
	writeVarint(buf, uint64(len(ss)))
	for _, s := range ss {
		writeString(buf, s)
	}
}
