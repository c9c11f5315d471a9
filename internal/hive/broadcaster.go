package hive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
)

// SwapTokensPayload is the marketpools swapTokens contract payload.
type SwapTokensPayload struct {
	TokenPair    string `json:"tokenPair"`
	TokenSymbol  string `json:"tokenSymbol"`
	TokenAmount  string `json:"tokenAmount"`
	TradeType    string `json:"tradeType"`
	MinAmountOut string `json:"minAmountOut,omitempty"`
}

// AddLiquidityPayload is the marketpools addLiquidity contract payload.
type AddLiquidityPayload struct {
	TokenPair     string `json:"tokenPair"`
	BaseQuantity  string `json:"baseQuantity"`
	QuoteQuantity string `json:"quoteQuantity"`
}

type contractCall struct {
	ContractName    string `json:"contractName"`
	ContractAction  string `json:"contractAction"`
	ContractPayload any    `json:"contractPayload"`
}

// BroadcasterConfig holds the signing identity.
type BroadcasterConfig struct {
	Account   string
	ActiveKey string // WIF
	ChainID   string // hex, defaults to mainnet
	Logger    *logrus.Logger
}

// Broadcaster signs and submits marketpools actions for one account.
type Broadcaster struct {
	client  *Client
	signer  *Signer
	account string
	logger  *logrus.Logger
}

func NewBroadcaster(client *Client, cfg BroadcasterConfig) (*Broadcaster, error) {
	if client == nil {
		return nil, fmt.Errorf("broadcaster: client is required")
	}
	if strings.TrimSpace(cfg.Account) == "" {
		return nil, fmt.Errorf("broadcaster: account is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	key, err := ParseWIF(cfg.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("broadcaster: active key: %w", err)
	}
	signer, err := NewSigner(key, cfg.ChainID)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{client: client, signer: signer, account: cfg.Account, logger: cfg.Logger}, nil
}

// Account is the signing account.
func (b *Broadcaster) Account() string {
	return b.account
}

func (b *Broadcaster) SwapTokens(ctx context.Context, p SwapTokensPayload) (map[string]any, error) {
	return b.broadcast(ctx, constants.ActionSwapTokens, p)
}

func (b *Broadcaster) AddLiquidity(ctx context.Context, p AddLiquidityPayload) (map[string]any, error) {
	return b.broadcast(ctx, constants.ActionAddLiquidity, p)
}

// ContractJSON is the custom_json body for a marketpools action.
func ContractJSON(action string, payload any) ([]byte, error) {
	return json.Marshal(contractCall{
		ContractName:    constants.ContractMarketPools,
		ContractAction:  action,
		ContractPayload: payload,
	})
}

func (b *Broadcaster) broadcast(ctx context.Context, action string, payload any) (map[string]any, error) {
	body, err := ContractJSON(action, payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", action, err)
	}

	props, err := b.client.GetDynamicGlobalProperties(ctx)
	if err != nil {
		return nil, err
	}
	refNum, refPrefix, err := RefBlock(props.HeadBlockNumber, props.HeadBlockID)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		RefBlockNum:    refNum,
		RefBlockPrefix: refPrefix,
		Expiration:     props.HeadTime().Add(constants.TxExpiration),
		Operations:     []CustomJSON{NewActiveCustomJSON(b.account, body)},
	}
	if err := b.signer.Sign(tx); err != nil {
		return nil, err
	}

	txID := tx.ID()
	log := b.logger.WithFields(logrus.Fields{
		"action":  action,
		"account": b.account,
		"tx_id":   txID,
	})
	log.WithField("json", string(body)).Debug("broadcasting custom_json")

	if err := b.client.BroadcastTransaction(ctx, tx); err != nil {
		return nil, err
	}
	log.Info("transaction broadcast")

	return map[string]any{
		"trx_id":     txID,
		"ref_block":  props.HeadBlockNumber,
		"expiration": tx.Expiration.UTC().Format(timeLayout),
	}, nil
}
