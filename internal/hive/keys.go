package hive

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

const wifVersion = 0x80

// PrivateKey is a Hive secp256k1 key.
type PrivateKey struct {
	ecdsa *ecdsa.PrivateKey
}

// ParseWIF decodes a wallet-import-format key (the "5..." strings Hive wallets export).
func ParseWIF(wif string) (*PrivateKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(wif))
	if err != nil {
		return nil, fmt.Errorf("invalid key encoding: %w", err)
	}
	if len(raw) != 37 {
		return nil, fmt.Errorf("invalid key length %d", len(raw))
	}
	if raw[0] != wifVersion {
		return nil, fmt.Errorf("invalid key version 0x%02x", raw[0])
	}
	if !bytes.Equal(checksum(raw[:33]), raw[33:]) {
		return nil, fmt.Errorf("invalid key checksum")
	}

	k, err := crypto.ToECDSA(raw[1:33])
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &PrivateKey{ecdsa: k}, nil
}

// EncodeWIF is the inverse of ParseWIF.
func EncodeWIF(secret []byte) string {
	payload := append([]byte{wifVersion}, secret...)
	return base58.Encode(append(payload, checksum(payload)...))
}

// Public returns the uncompressed public key.
func (k *PrivateKey) Public() *ecdsa.PublicKey {
	return &k.ecdsa.PublicKey
}

func checksum(b []byte) []byte {
	h1 := sha256.Sum256(b)
	h2 := sha256.Sum256(h1[:])
	return h2[:4]
}
