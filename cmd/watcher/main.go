package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"launchscope/internal/catalog"
	"launchscope/internal/chain"
	"launchscope/internal/config"
	"launchscope/internal/launch"
	"launchscope/internal/notify"
	"launchscope/internal/probe"
	"launchscope/internal/rate"
	"launchscope/internal/token"
	"launchscope/internal/watcher"
)

func main() {
	root := &cobra.Command{
		Use:          "launchscope",
		Short:        "Launchpad event watcher",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Backfill and follow the monitored launchpad",
		RunE:  runWatcher,
	}

	runCmd.Flags().String("rpc", "", "chain RPC URL (websocket for live mode)")
	runCmd.Flags().String("monitored", "", "launchpad contract address")
	runCmd.Flags().String("wrapped-native", "", "wrapped native token address hint")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means follow live")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per backfill batch")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Int("dedup-size", 4096, "size of the seen-transaction set")
	runCmd.Flags().Duration("probe-timeout", 3*time.Second, "timeout per speculative contract call")
	runCmd.Flags().StringSlice("social-keys", nil, "extra social map keys (comma-separated)")
	runCmd.Flags().StringSlice("string-map-getters", nil, "extra string-keyed social getters")
	runCmd.Flags().StringSlice("bytes32-map-getters", nil, "extra bytes32-keyed social getters")
	runCmd.Flags().StringSlice("numeric-getters", nil, "extra numeric mechanism getters (key=getter, comma-separated)")
	runCmd.Flags().StringSlice("flag-getters", nil, "extra boolean mechanism getters (key=getter, comma-separated)")
	runCmd.Flags().StringSlice("mechanism-map-getters", nil, "extra string-keyed mechanism getters")
	runCmd.Flags().StringSlice("mechanism-bytes32-getters", nil, "extra bytes32-keyed mechanism getters")
	runCmd.Flags().StringSlice("denominator-getters", nil, "extra fee denominator getters")
	runCmd.Flags().StringSlice("preferred-denominators", nil, "per-key fee denominators (key=value, comma-separated)")
	runCmd.Flags().String("catalog-dir", "", "directory of known <address>.json ABIs")
	runCmd.Flags().StringSlice("create-event-names", nil, "creation event name synonyms")
	runCmd.Flags().StringSlice("lock-event-names", nil, "lock event name synonyms")
	runCmd.Flags().String("rate-endpoint", "", "native/USD price endpoint URL")
	runCmd.Flags().String("telegram-token", "", "Telegram bot token (empty logs instead of sending)")
	runCmd.Flags().Int64("telegram-chat-id", 0, "Telegram chat ID")
	runCmd.Flags().String("explorer", "https://bscscan.com", "block explorer base URL")
	runCmd.Flags().String("metrics-addr", "", "metrics listen address (empty disables)")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWatcher(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(cfg.Monitored) {
		return fmt.Errorf("invalid monitored address: %s", cfg.Monitored)
	}
	monitored := common.HexToAddress(cfg.Monitored)
	var wrappedNative common.Address
	if cfg.WrappedNative != "" {
		if !common.IsHexAddress(cfg.WrappedNative) {
			return fmt.Errorf("invalid wrapped-native address: %s", cfg.WrappedNative)
		}
		wrappedNative = common.HexToAddress(cfg.WrappedNative)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogDir, cfg.CreateEventNames, cfg.LockEventNames)
	if err != nil {
		return err
	}

	tokens, err := token.NewReader(chainClient, 512, cfg.ProbeTimeout, logger)
	if err != nil {
		return err
	}

	probeCfg := probe.DefaultConfig()
	probeCfg.SocialKeys = append(probeCfg.SocialKeys, cfg.SocialKeys...)
	probeCfg.SocialMapGetters = append(probeCfg.SocialMapGetters, cfg.StringMapGetters...)
	probeCfg.SocialMapGettersBytes32 = append(probeCfg.SocialMapGettersBytes32, cfg.Bytes32MapGetters...)
	probeCfg.MechanismMapGetters = append(probeCfg.MechanismMapGetters, cfg.MechanismMapGetters...)
	probeCfg.MechanismMapGettersBytes32 = append(probeCfg.MechanismMapGettersBytes32, cfg.MechanismBytes32Getters...)
	probeCfg.DenominatorGetters = append(probeCfg.DenominatorGetters, cfg.DenominatorGetters...)
	numericExtras, err := config.ParseKeyedGetters(cfg.NumericGetters)
	if err != nil {
		return err
	}
	probeCfg.MechanismNumericGetters = probe.MergeKeyGetters(probeCfg.MechanismNumericGetters, numericExtras)
	flagExtras, err := config.ParseKeyedGetters(cfg.FlagGetters)
	if err != nil {
		return err
	}
	probeCfg.MechanismFlagGetters = probe.MergeKeyGetters(probeCfg.MechanismFlagGetters, flagExtras)
	if denominators, err := config.ParseDenominators(cfg.PreferredDenominators); err != nil {
		return err
	} else if denominators != nil {
		for key, value := range denominators {
			probeCfg.PreferredDenominators[key] = value
		}
	}
	prober := probe.New(chainClient, probeCfg, cfg.ProbeTimeout, logger)

	rates := rate.NewClient(cfg.RateEndpoint, cfg.ProbeTimeout, logger)

	var notifier notify.Notifier
	if cfg.TelegramToken != "" {
		telegram, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return err
		}
		notifier = telegram
	} else {
		logger.Warn("no telegram token configured, notifications will only be logged")
		notifier = &notify.Logging{Logger: logger}
	}

	correlator := launch.NewCorrelator(monitored, wrappedNative, tokens, cat, logger)

	metrics := watcher.NewMetrics()
	if cfg.MetricsAddr != "" {
		metrics.Register(prometheus.DefaultRegisterer)
		go func() {
			if err := watcher.ServeMetrics(cfg.MetricsAddr); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	w, err := watcher.New(watcher.RunConfig{
		Monitored:         monitored,
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		ExplorerBase:      cfg.ExplorerBase,
		DedupSize:         cfg.DedupSize,
	}, chainClient, correlator, prober, rates, notifier, metrics, logger)
	if err != nil {
		return err
	}

	logger.Info("watcher start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.String("monitored", monitored.Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return w.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
