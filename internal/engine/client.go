package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/rpc"
)

// Client reads contract tables and transaction info from a Hive Engine API node.
type Client struct {
	contracts  *rpc.Client
	blockchain *rpc.Client
	logger     *logrus.Logger
}

// Config holds the API nodes and transport settings.
type Config struct {
	BaseURLs     []string // e.g. https://enginerpc.com/
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	RateLimit    float64
	Logger       *logrus.Logger
}

// NewClient creates a client for the contracts and blockchain endpoints.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	contracts, err := rpc.NewClient(rpcConfig(cfg, "contracts"))
	if err != nil {
		return nil, fmt.Errorf("contracts endpoint: %w", err)
	}
	blockchain, err := rpc.NewClient(rpcConfig(cfg, "blockchain"))
	if err != nil {
		return nil, fmt.Errorf("blockchain endpoint: %w", err)
	}

	return &Client{contracts: contracts, blockchain: blockchain, logger: cfg.Logger}, nil
}

func rpcConfig(cfg Config, path string) rpc.ClientConfig {
	endpoints := make([]string, 0, len(cfg.BaseURLs))
	for _, u := range cfg.BaseURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		endpoints = append(endpoints, strings.TrimRight(u, "/")+"/"+path)
	}
	return rpc.ClientConfig{
		Endpoints:    endpoints,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		RateLimit:    cfg.RateLimit,
		Logger:       cfg.Logger,
	}
}

// FindOne queries a single contract table record into out. out is left
// untouched when no record matches.
func (c *Client) FindOne(ctx context.Context, contract, table string, query map[string]any, out any) error {
	params := map[string]any{
		"contract": contract,
		"table":    table,
		"query":    query,
	}
	if err := c.contracts.Call(ctx, "findOne", params, out); err != nil {
		return fmt.Errorf("findOne %s/%s: %w", contract, table, err)
	}
	return nil
}

// Pool returns the pool for a "BASE:QUOTE" pair, or nil if it does not exist.
func (c *Client) Pool(ctx context.Context, tokenPair string) (*Pool, error) {
	var pool *Pool
	err := c.FindOne(ctx, constants.ContractMarketPools, constants.TablePools,
		map[string]any{"tokenPair": tokenPair}, &pool)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// Balance returns the wallet record for symbol, or nil if the account never held it.
func (c *Client) Balance(ctx context.Context, account, symbol string) (*Balance, error) {
	var bal *Balance
	err := c.FindOne(ctx, constants.ContractTokens, constants.TableBalances,
		map[string]any{"account": account, "symbol": symbol}, &bal)
	if err != nil {
		return nil, err
	}
	return bal, nil
}

// Token returns token metadata, or nil if the symbol is unknown.
func (c *Client) Token(ctx context.Context, symbol string) (*Token, error) {
	var tok *Token
	err := c.FindOne(ctx, constants.ContractTokens, constants.TableTokens,
		map[string]any{"symbol": symbol}, &tok)
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// Precision returns the fractional digits of symbol.
func (c *Client) Precision(ctx context.Context, symbol string) (int32, error) {
	tok, err := c.Token(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", models.ErrTokenMetadata, symbol, err)
	}
	if tok == nil || tok.Precision == nil {
		return 0, fmt.Errorf("%w: no precision for %s", models.ErrTokenMetadata, symbol)
	}
	if *tok.Precision < 0 {
		return 0, fmt.Errorf("%w: negative precision %d for %s", models.ErrTokenMetadata, *tok.Precision, symbol)
	}

	c.logger.WithFields(logrus.Fields{
		"symbol":    symbol,
		"precision": *tok.Precision,
	}).Debug("token precision")
	return int32(*tok.Precision), nil
}

// GetTransactionInfo looks a transaction up by id. It returns nil, nil while
// the indexer has not seen it.
func (c *Client) GetTransactionInfo(ctx context.Context, txID string) (*TransactionInfo, error) {
	var info *TransactionInfo
	if err := c.blockchain.Call(ctx, "getTransactionInfo", map[string]any{"txid": txID}, &info); err != nil {
		return nil, fmt.Errorf("getTransactionInfo %s: %w", txID, err)
	}
	return info, nil
}
