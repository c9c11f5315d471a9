package models

import "errors"

// Error kinds surfaced by a run. Wrap them with fmt.Errorf("...: %w", ...) and
// test with errors.Is.
var (
	ErrConfiguration          = errors.New("configuration error")
	ErrTokenMetadata          = errors.New("token metadata unavailable")
	ErrOracleUnavailable      = errors.New("oracle unavailable")
	ErrBalanceUnavailable     = errors.New("balance unavailable")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInvalidPool            = errors.New("invalid pool data")
	ErrBroadcast              = errors.New("broadcast failed")
	ErrUnconfirmable          = errors.New("transaction unconfirmable")
	ErrConfirmationTimeout    = errors.New("confirmation timeout")
	ErrOnChainRejection       = errors.New("rejected on chain")
	ErrUnparseableLogs        = errors.New("unparseable transaction logs")
	ErrSettlementUnverifiable = errors.New("settlement unverifiable")
)
