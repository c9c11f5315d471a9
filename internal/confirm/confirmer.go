package confirm

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/engine"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

// Indexer looks sidechain transactions up by id.
type Indexer interface {
	GetTransactionInfo(ctx context.Context, txID string) (*engine.TransactionInfo, error)
}

// Config controls the polling schedule.
type Config struct {
	InitialDelay time.Duration
	RetryDelay   time.Duration
	MaxAttempts  int
	Logger       *logrus.Logger

	// Sleep blocks for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Confirmation is a clean, error-free inclusion.
type Confirmation struct {
	TxID        string
	BlockNumber int64
	Log         *OutcomeLog
	Attempts    int
}

// Events is shorthand for c.Log.Events.
func (c *Confirmation) Events() []Event {
	if c == nil || c.Log == nil {
		return nil
	}
	return c.Log.Events
}

// RejectionError carries the error list the venue reported.
type RejectionError struct {
	TxID        string
	BlockNumber int64
	Errors      []any
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("transaction %s rejected in block %d: %v", e.TxID, e.BlockNumber, e.Errors)
}

func (e *RejectionError) Unwrap() error {
	return models.ErrOnChainRejection
}

// Confirmer polls the indexer until a transaction settles.
type Confirmer struct {
	indexer Indexer
	cfg     Config
	logger  *logrus.Logger
}

func New(indexer Indexer, cfg Config) *Confirmer {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Confirmer{indexer: indexer, cfg: cfg, logger: cfg.Logger}
}

// Confirm waits InitialDelay, then queries the indexer at most MaxAttempts
// times, RetryDelay apart. It returns only on a clean inclusion; every other
// ending is an error:
//   - *RejectionError on a non-empty error list, without further queries
//   - ErrUnparseableLogs when the log is still missing or malformed on the last attempt
//   - ErrConfirmationTimeout when the transaction never shows up
func (c *Confirmer) Confirm(ctx context.Context, txID string) (*Confirmation, error) {
	log := c.logger.WithField("tx_id", txID)
	log.WithField("delay", c.cfg.InitialDelay).Info("waiting before first confirmation lookup")

	if err := c.cfg.Sleep(ctx, c.cfg.InitialDelay); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrConfirmationTimeout, txID, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		last := attempt == c.cfg.MaxAttempts
		alog := log.WithFields(logrus.Fields{
			"attempt": attempt,
			"of":      c.cfg.MaxAttempts,
		})

		info, err := c.indexer.GetTransactionInfo(ctx, txID)
		if err != nil {
			lastErr = err
			alog.WithError(err).Warn("transaction lookup failed")
		} else {
			lastErr = nil
			out := Classify(info)
			switch out.Kind {
			case Confirmed:
				alog.WithField("block", out.BlockNumber).Info("transaction confirmed")
				return &Confirmation{
					TxID:        txID,
					BlockNumber: out.BlockNumber,
					Log:         out.Log,
					Attempts:    attempt,
				}, nil

			case OnChainError:
				alog.WithFields(logrus.Fields{
					"block":  out.BlockNumber,
					"errors": out.Errors,
				}).Error("transaction failed on chain")
				return nil, &RejectionError{TxID: txID, BlockNumber: out.BlockNumber, Errors: out.Errors}

			case Unparseable:
				if last {
					alog.WithField("reason", out.Reason).Error("transaction logs unusable")
					return nil, fmt.Errorf("%w: %w: %s in block %d: %s",
						models.ErrUnparseableLogs, models.ErrOnChainRejection, txID, out.BlockNumber, out.Reason)
				}
				alog.WithField("reason", out.Reason).Warn("transaction logs unusable, retrying")

			case Pending:
				alog.WithField("reason", out.Reason).Info("transaction not yet confirmed")
			}
		}

		if last {
			break
		}
		if err := c.cfg.Sleep(ctx, c.cfg.RetryDelay); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", models.ErrConfirmationTimeout, txID, err)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %s after %d attempts: %v", models.ErrConfirmationTimeout, txID, c.cfg.MaxAttempts, lastErr)
	}
	return nil, fmt.Errorf("%w: %s after %d attempts", models.ErrConfirmationTimeout, txID, c.cfg.MaxAttempts)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
