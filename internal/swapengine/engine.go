package swapengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/amount"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/cache"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/config"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/confirm"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/engine"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/flags"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/hive"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/rpc"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/storage"
)

// Engine is the main orchestrator: price check, swap, then deposit.
type Engine struct {
	creds     Credentials
	book      *amount.Book
	oracle    *Oracle
	executor  *SwapExecutor
	depositor *Depositor
	halt      HaltSwitch
	sinks     []storage.ReportSink
	closers   []namedCloser
	logger    *logrus.Logger
}

type namedCloser struct {
	name string
	c    io.Closer
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Market      Market
	Broadcaster Broadcaster // may be nil for dry runs
	Confirmer   TxConfirmer
	Halt        HaltSwitch // optional
	Sinks       []storage.ReportSink
	Logger      *logrus.Logger
}

// New assembles an engine for one account.
func New(creds Credentials, deps Deps) (*Engine, error) {
	if creds.Account == "" {
		return nil, fmt.Errorf("%w: account is required", models.ErrConfiguration)
	}
	if deps.Market == nil {
		return nil, fmt.Errorf("market is required")
	}
	if deps.Confirmer == nil {
		return nil, fmt.Errorf("confirmer is required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}

	book := amount.NewBook(deps.Market)
	oracle := NewOracle(deps.Market, deps.Logger)
	guard := NewBalanceGuard(deps.Market, creds.Account, deps.Logger)

	return &Engine{
		creds:     creds,
		book:      book,
		oracle:    oracle,
		executor:  NewSwapExecutor(guard, deps.Broadcaster, deps.Confirmer, book, creds.Account, deps.Logger),
		depositor: NewDepositor(oracle, guard, deps.Broadcaster, deps.Confirmer, book, deps.Logger),
		halt:      deps.Halt,
		sinks:     deps.Sinks,
		logger:    deps.Logger,
	}, nil
}

// NewEngineFromConfig wires the live sidechain, Hive nodes and optional
// Redis and ClickHouse sinks.
func NewEngineFromConfig(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Engine, error) {
	if logger == nil {
		logger = logrus.New()
	}

	// 1. Hive Engine API client
	market, err := engine.NewClient(engine.Config{
		BaseURLs:     cfg.EngineAPIs,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.RPCMaxRetries,
		RetryBackoff: cfg.RPCRetryBackoff,
		RateLimit:    cfg.RPCRateLimit,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Hive Engine client: %w", err)
	}

	// 2. Confirmer over the same API
	confirmer := confirm.New(market, confirm.Config{
		InitialDelay: cfg.ConfirmDelay,
		RetryDelay:   cfg.RetryDelay,
		MaxAttempts:  cfg.MaxTxInfoRetries,
		Logger:       logger,
	})

	// 3. Broadcaster, only when a key is present
	var broadcaster Broadcaster
	if cfg.ActiveKey != "" {
		hc, err := hive.NewClient(rpc.ClientConfig{
			Endpoints:    cfg.HiveNodes,
			Timeout:      cfg.HTTPTimeout,
			MaxRetries:   cfg.RPCMaxRetries,
			RetryBackoff: cfg.RPCRetryBackoff,
			RateLimit:    cfg.RPCRateLimit,
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Hive client: %w", err)
		}
		b, err := hive.NewBroadcaster(hc, hive.BroadcasterConfig{
			Account:   cfg.Account,
			ActiveKey: cfg.ActiveKey,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
		}
		logger.WithField("account", b.Account()).Info("broadcaster ready")
		broadcaster = b
	}

	var (
		sinks   []storage.ReportSink
		halt    HaltSwitch
		closers []namedCloser
	)

	// 4. Redis: run reports and the kill switch
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		closers = append(closers, namedCloser{"redis", rc})
		sinks = append(sinks, rc)

		store, err := flags.NewStore(rc.Client())
		if err != nil {
			return nil, err
		}
		halt = store
	}

	// 5. ClickHouse: settlement history
	if cfg.ClickHouseAddr != "" && cfg.ClickHouseDatabase != "" {
		ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			for _, c := range closers {
				_ = c.c.Close()
			}
			return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		closers = append(closers, namedCloser{"clickhouse", ch})
		sinks = append(sinks, ch)
	}

	// 6. Assemble
	e, err := New(Credentials{Account: cfg.Account, ActiveKey: cfg.ActiveKey}, Deps{
		Market:      market,
		Broadcaster: broadcaster,
		Confirmer:   confirmer,
		Halt:        halt,
		Sinks:       sinks,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	e.closers = closers
	return e, nil
}

// ParamsFromConfig extracts the trading parameters.
func ParamsFromConfig(cfg *config.Config) RunParams {
	return RunParams{
		Pair:              TokenPair{Base: cfg.BaseCurrency, Quote: cfg.TargetAsset},
		AmountIn:          cfg.Amount,
		Threshold:         cfg.Threshold,
		SlippageTolerance: cfg.SlippageTolerance,
		DryRun:            cfg.DryRun,
	}
}

// Run executes one pass of the pipeline. The returned report is never nil;
// err is the failure that ended the run, nil for a completed or skipped
// deposit or a clean no-action decision.
func (e *Engine) Run(ctx context.Context, p RunParams) (*models.RunReport, error) {
	report := models.NewRunReport(fmt.Sprintf("run_%d", time.Now().UnixNano()), e.creds.Account, p.Pair.String(), p.DryRun)
	report.Threshold = p.Threshold
	report.AmountIn = p.AmountIn

	log := e.logger.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"account": e.creds.Account,
		"pair":    p.Pair.String(),
		"dry_run": p.DryRun,
	})
	log.Info("run started")

	err := e.run(ctx, p, report)
	e.record(ctx, report)

	fields := logrus.Fields{
		"state":     report.State,
		"exit_code": report.ExitCode(),
	}
	if report.Reason != "" {
		fields["reason"] = report.Reason
	}
	if err != nil {
		log.WithFields(fields).WithError(err).Error("run failed")
	} else {
		log.WithFields(fields).Info("run finished")
	}
	return report, err
}

func (e *Engine) run(ctx context.Context, p RunParams, report *models.RunReport) error {
	// 1. Validate parameters
	if err := ValidateParams(p); err != nil {
		report.Fail(models.StateAborted, err)
		return err
	}

	// 2. Token precisions, once per run
	if err := e.book.Load(ctx, p.Pair.Base, p.Pair.Quote); err != nil {
		if !errors.Is(err, models.ErrTokenMetadata) {
			err = fmt.Errorf("%w: %v", models.ErrTokenMetadata, err)
		}
		report.Fail(models.StateAborted, err)
		return err
	}

	// 3. Price
	price, err := e.oracle.FetchPrice(ctx, p.Pair)
	if err != nil {
		report.Fail(models.StateAborted, err)
		return err
	}
	report.Price = price
	report.Transition(models.StatePriceChecked)

	// 4. Swap gate
	plan, err := e.executor.Evaluate(ctx, p, price)
	if err != nil {
		report.Fail(models.StateAborted, err)
		return err
	}
	report.ExpectedOut = plan.ExpectedOut
	report.MinAmountOut = plan.MinAmountOut
	if !plan.Proceed {
		report.Reason = plan.Reason
		report.Transition(models.StateNoAction)
		return nil
	}

	// 5. Kill switch
	if e.halt != nil {
		halted, err := e.halt.Halted(ctx)
		if err != nil {
			err = fmt.Errorf("kill switch unavailable: %w", err)
			report.Fail(models.StateAborted, err)
			return err
		}
		if halted {
			report.Reason = "trading halted by flag"
			report.Transition(models.StateNoAction)
			return nil
		}
	}

	// 6. Swap
	report.Transition(models.StateSwapping)
	swap, err := e.executor.Execute(ctx, plan, p.DryRun)
	if swap != nil {
		report.SwapTxID = swap.TxID
		report.SwapBlock = swap.BlockNumber
	}
	if err != nil {
		report.Fail(models.StateSwapFailed, err)
		return err
	}
	report.Received = swap.Received
	report.SwapSimulated = swap.Simulated
	if swap.Fee != nil {
		report.SwapFee = swap.Fee.String()
	}
	report.Transition(models.StateSwapped)

	// 7. Deposit the actual proceeds
	report.Transition(models.StateDepositing)
	dep, err := e.depositor.Deposit(ctx, p.Pair, swap.Received, p.DryRun)
	if dep != nil {
		report.DepositTxID = dep.TxID
		report.DepositBlock = dep.BlockNumber
		report.DepositBase = dep.BaseQuantity
		report.DepositQuote = dep.QuoteQuantity
	}
	if errors.Is(err, models.ErrInsufficientBalance) {
		// the swap stands; the deposit waits for funds
		report.Reason = err.Error()
		report.Transition(models.StateDepositSkipped)
		return nil
	}
	if err != nil {
		report.Fail(models.StateDepositFailed, err)
		return err
	}
	report.DepositEvent = dep.Event
	report.Transition(models.StateDepositSucceeded)
	return nil
}

func (e *Engine) record(ctx context.Context, report *models.RunReport) {
	if len(e.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	for _, s := range e.sinks {
		if err := s.Record(ctx, report); err != nil {
			e.logger.WithError(err).WithField("run_id", report.RunID).Warn("failed to record run report")
		}
	}
}

// Close cleans up all resources
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c.c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}
