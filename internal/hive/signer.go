package hive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
)

// Signer produces compact canonical signatures for one chain.
type Signer struct {
	key     *PrivateKey
	chainID []byte
}

func NewSigner(key *PrivateKey, chainIDHex string) (*Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("signer: key is required")
	}
	if chainIDHex == "" {
		chainIDHex = constants.HiveChainID
	}
	chainID, err := hex.DecodeString(chainIDHex)
	if err != nil {
		return nil, fmt.Errorf("signer: invalid chain id: %w", err)
	}
	return &Signer{key: key, chainID: chainID}, nil
}

// Digest is sha256(chain_id || serialized transaction).
func (s *Signer) Digest(tx *Transaction) []byte {
	h := sha256.New()
	h.Write(s.chainID)
	h.Write(tx.Serialize())
	return h.Sum(nil)
}

// Sign appends a signature to tx. Signing is deterministic, so a
// non-canonical result is retried with the expiration pushed one second.
func (s *Signer) Sign(tx *Transaction) error {
	for i := 0; i < constants.MaxSignAttempts; i++ {
		sig, err := crypto.Sign(s.Digest(tx), s.key.ecdsa)
		if err != nil {
			return fmt.Errorf("failed to sign transaction: %w", err)
		}

		compact := toCompact(sig)
		if IsCanonical(compact) {
			tx.Signatures = append(tx.Signatures, hex.EncodeToString(compact))
			return nil
		}
		tx.Expiration = tx.Expiration.Add(time.Second)
	}
	return fmt.Errorf("failed to produce canonical signature after %d attempts", constants.MaxSignAttempts)
}

// toCompact converts [R || S || V] into the chain's [V+31 || R || S] form.
func toCompact(sig []byte) []byte {
	out := make([]byte, 65)
	out[0] = sig[64] + 27 + 4
	copy(out[1:], sig[:64])
	return out
}

// fromCompact is the inverse of toCompact.
func fromCompact(c []byte) []byte {
	out := make([]byte, 65)
	copy(out, c[1:])
	out[64] = c[0] - 27 - 4
	return out
}

// IsCanonical reports whether a compact signature passes the chain's
// canonical-form check on r and s.
func IsCanonical(c []byte) bool {
	if len(c) != 65 {
		return false
	}
	return c[1]&0x80 == 0 &&
		!(c[1] == 0 && c[2]&0x80 == 0) &&
		c[33]&0x80 == 0 &&
		!(c[33] == 0 && c[34]&0x80 == 0)
}
