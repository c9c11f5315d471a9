package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/cache"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/config"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/swapengine"
)

func newLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}

func main() {
	exitCode := 1

	root := &cobra.Command{
		Use:          "lpbot",
		Short:        "Swap into the base currency above a price threshold and add the proceeds to the pool",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, err := runOnce(cmd)
			exitCode = code
			return err
		},
	}
	config.Flags(root.Flags())

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream run reports published to Redis",
		RunE:  runWatch,
	}
	watchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(watchCmd)

	if err := root.Execute(); err != nil {
		if exitCode == 0 {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func runOnce(cmd *cobra.Command) (int, error) {
	if err := config.LoadEnv(".env"); err != nil {
		return 1, err
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return 1, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return 1, err
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Error("invalid configuration")
		return 1, err
	}

	// A run is not interrupted once started: a broadcast swap must still be
	// confirmed and deposited. Signals are only logged.
	ctx := context.Background()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for s := range sigCh {
			logger.WithField("signal", s.String()).Warn("signal received, finishing current run")
		}
	}()

	engine, err := swapengine.NewEngineFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to init engine")
		return 1, err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.WithError(err).Warn("engine close")
		}
	}()

	report, runErr := engine.Run(ctx, swapengine.ParamsFromConfig(cfg))
	logger.WithFields(logrus.Fields{
		"run_id":    report.RunID,
		"state":     report.State,
		"swap_tx":   report.SwapTxID,
		"deposit":   report.DepositTxID,
		"exit_code": report.ExitCode(),
	}).Info("done")

	if runErr != nil {
		// already logged by the engine; keep cobra from printing it twice
		cmd.SilenceErrors = true
	}
	return report.ExitCode(), runErr
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Logger: logger})
	if err != nil {
		return err
	}
	defer rc.Close()

	reports, err := rc.SubscribeRuns(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for r := range reports {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
