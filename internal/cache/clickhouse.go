package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/storage"
)

var _ storage.SettlementStore = (*ClickHouseStore)(nil)

// ClickHouseConfig configures the settlement store.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore keeps an append-only history of confirmed swaps and deposits.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

const settlementsDDL = `
	CREATE TABLE IF NOT EXISTS lp_settlements (
		tx_id        String,
		run_id       String,
		kind         LowCardinality(String),
		timestamp    DateTime64(3, 'UTC'),
		account      String,
		token_pair   LowCardinality(String),
		block_number Int64,
		base_amount  Decimal(38, 8),
		quote_amount Decimal(38, 8),
		price        Decimal(38, 8),
		fee          String
	) ENGINE = MergeTree
	ORDER BY (token_pair, timestamp, tx_id)
`

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	username := cfg.Username
	if username == "" {
		username = "default"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	store := &ClickHouseStore{conn: conn, logger: cfg.Logger}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")
	return store, nil
}

// EnsureSchema creates the settlements table when missing.
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, settlementsDDL); err != nil {
		return fmt.Errorf("failed to create lp_settlements: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) InsertSettlement(ctx context.Context, s *models.Settlement) error {
	batch, err := c.conn.PrepareBatch(ctx, `INSERT INTO lp_settlements`)
	if err != nil {
		return fmt.Errorf("failed to prepare settlement batch: %w", err)
	}
	defer batch.Abort()

	err = batch.Append(
		s.TxID,
		s.RunID,
		s.Kind,
		s.Timestamp,
		s.Account,
		s.TokenPair,
		s.BlockNumber,
		s.BaseAmount,
		s.QuoteAmount,
		s.Price,
		s.Fee,
	)
	if err != nil {
		return fmt.Errorf("failed to append settlement: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

// Record stores every confirmed action of the report. Dry runs and runs that
// never settled anything are skipped.
func (c *ClickHouseStore) Record(ctx context.Context, report *models.RunReport) error {
	for _, s := range report.Settlements() {
		if err := c.InsertSettlement(ctx, &s); err != nil {
			return err
		}
		c.logger.WithFields(logrus.Fields{
			"tx_id": s.TxID,
			"kind":  s.Kind,
		}).Debug("settlement stored")
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
