package hive

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/rpc"
)

// Client talks condenser_api to a set of Hive nodes.
type Client struct {
	rpc *rpc.Client
}

func NewClient(cfg rpc.ClientConfig) (*Client, error) {
	rpcClient, err := rpc.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("hive client: %w", err)
	}
	return &Client{rpc: rpcClient}, nil
}

// DynamicGlobalProperties is the subset needed for TaPoS.
type DynamicGlobalProperties struct {
	HeadBlockNumber uint32 `json:"head_block_number"`
	HeadBlockID     string `json:"head_block_id"`
	Time            string `json:"time"`
}

// HeadTime returns the head block time, or the local clock when it cannot be parsed.
func (p *DynamicGlobalProperties) HeadTime() time.Time {
	t, err := time.ParseInLocation(timeLayout, p.Time, time.UTC)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}

func (c *Client) GetDynamicGlobalProperties(ctx context.Context) (*DynamicGlobalProperties, error) {
	var props DynamicGlobalProperties
	if err := c.rpc.Call(ctx, "condenser_api.get_dynamic_global_properties", []any{}, &props); err != nil {
		return nil, fmt.Errorf("get_dynamic_global_properties failed: %w", err)
	}
	if props.HeadBlockID == "" {
		return nil, fmt.Errorf("get_dynamic_global_properties: empty head block id")
	}
	return &props, nil
}

// BroadcastTransaction submits a signed transaction. Inclusion is not awaited.
func (c *Client) BroadcastTransaction(ctx context.Context, tx *Transaction) error {
	if err := c.rpc.Call(ctx, "condenser_api.broadcast_transaction", []any{tx}, nil); err != nil {
		return fmt.Errorf("broadcast_transaction failed: %w", err)
	}
	return nil
}
