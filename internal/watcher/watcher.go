// Package watcher orchestrates the detection pipeline: historical
// backfill, the live log subscription, receipt correlation, contract
// introspection and notification delivery.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"launchscope/internal/derive"
	"launchscope/internal/launch"
	"launchscope/internal/model"
	"launchscope/internal/notify"
)

// ChainSource is the chain access the watcher needs.
type ChainSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	SubscribeLogs(ctx context.Context, addresses []common.Address, ch chan<- types.Log) (ethereum.Subscription, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, bool, error)
}

// Prober introspects an unknown token contract.
type Prober interface {
	DiscoverSocials(ctx context.Context, token common.Address, txInput []byte) model.SocialSet
	DiscoverMechanics(ctx context.Context, token common.Address) *model.Mechanism
	PreferredDenominators() map[string]int64
}

// RateSource provides the native/USD exchange rate.
type RateSource interface {
	NativeUSD(ctx context.Context) decimal.Decimal
}

// RunConfig holds runtime settings for the watcher.
type RunConfig struct {
	Monitored         common.Address
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	ExplorerBase      string
	DedupSize         int
}

// Watcher drives the pipeline from raw logs to delivered notifications.
type Watcher struct {
	cfg        RunConfig
	chain      ChainSource
	correlator *launch.Correlator
	prober     Prober
	rates      RateSource
	notifier   notify.Notifier
	metrics    *Metrics
	seen       *SeenSet
	checkpoint *CheckpointStore
	logger     *zap.Logger
}

// New builds a Watcher with its dependencies.
func New(cfg RunConfig, chainSource ChainSource, correlator *launch.Correlator,
	prober Prober, rates RateSource, notifier notify.Notifier,
	metrics *Metrics, logger *zap.Logger) (*Watcher, error) {

	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if cfg.DedupSize <= 0 {
		cfg.DedupSize = 4096
	}
	seen, err := NewSeenSet(cfg.DedupSize)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		cfg:        cfg,
		chain:      chainSource,
		correlator: correlator,
		prober:     prober,
		rates:      rates,
		notifier:   notifier,
		metrics:    metrics,
		seen:       seen,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		logger:     logger,
	}, nil
}

// Run backfills the configured range and then follows the live
// subscription until the context is cancelled. Per-transaction failures
// are logged and skipped; only infrastructure failures stop the run.
func (w *Watcher) Run(ctx context.Context) error {
	if w.chain == nil {
		return fmt.Errorf("chain source is nil")
	}
	if w.correlator == nil {
		return fmt.Errorf("correlator is nil")
	}
	if w.notifier == nil {
		return fmt.Errorf("notifier is nil")
	}
	if w.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if w.cfg.Monitored == (common.Address{}) {
		return fmt.Errorf("monitored address is required")
	}

	tip, err := w.backfill(ctx)
	if err != nil {
		return err
	}

	if w.cfg.ToBlock != 0 {
		// Fixed range means a one-shot historical run.
		w.logger.Info("backfill complete", zap.Uint64("to", tip))
		return nil
	}

	return w.follow(ctx)
}

// backfill walks the historical range in batches and returns the last
// block it covered.
func (w *Watcher) backfill(ctx context.Context) (uint64, error) {
	from := w.cfg.FromBlock
	to := w.cfg.ToBlock
	if to == 0 {
		latest, err := w.chain.LatestBlockNumber(ctx)
		if err != nil {
			return 0, fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if w.checkpoint != nil {
		cp, ok, err := w.checkpoint.Load()
		if err != nil {
			return 0, err
		}
		if ok && cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			w.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		w.logger.Info("nothing to backfill", zap.Uint64("from", from), zap.Uint64("to", to))
		return to, nil
	}

	ranges, err := SplitRange(from, to, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	addresses := []common.Address{w.cfg.Monitored}
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		w.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		var logs []types.Log
		err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			logs, err = w.chain.FilterLogs(ctx, blockRange.From, blockRange.To, addresses, nil)
			if err != nil {
				w.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
			}
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("filter logs: %w", err)
		}

		for _, txHash := range uniqueTxHashes(logs) {
			w.processTx(ctx, txHash)
		}

		if w.checkpoint != nil {
			if err := w.checkpoint.Save(blockRange.To); err != nil {
				return 0, err
			}
		}
	}

	return to, nil
}

// follow consumes the live subscription, resubscribing after errors.
func (w *Watcher) follow(ctx context.Context) error {
	addresses := []common.Address{w.cfg.Monitored}
	ch := make(chan types.Log, 256)

	for {
		var sub ethereum.Subscription
		err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			sub, err = w.chain.SubscribeLogs(ctx, addresses, ch)
			if err != nil {
				w.logger.Warn("subscribe failed", zap.Error(err))
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("subscribe logs: %w", err)
		}
		w.logger.Info("live subscription established")

		if err := w.consume(ctx, sub, ch); err != nil {
			return err
		}
		// consume returned because the subscription broke; loop and
		// resubscribe.
		w.metrics.SubscriptionDrops.Inc()
	}
}

func (w *Watcher) consume(ctx context.Context, sub ethereum.Subscription, ch <-chan types.Log) error {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			w.logger.Warn("subscription dropped", zap.Error(err))
			return nil
		case log := <-ch:
			w.processTx(ctx, log.TxHash)
		}
	}
}

// processTx runs the full pipeline for one transaction. It never
// returns an error: a failed transaction is logged, released for a
// later retry and the watcher moves on.
func (w *Watcher) processTx(ctx context.Context, txHash common.Hash) {
	if !w.seen.TryBegin(txHash) {
		w.metrics.DuplicatesSkipped.Inc()
		return
	}

	receipt, tx, err := w.fetchTx(ctx, txHash)
	if err != nil {
		w.metrics.ReceiptFailures.Inc()
		w.logger.Warn("transaction fetch failed", zap.Error(err), zap.String("tx", txHash.Hex()))
		w.seen.Abort(txHash)
		return
	}

	logs := make([]types.Log, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		logs = append(logs, *l)
	}

	var txTo *common.Address
	var txInput []byte
	if tx != nil {
		txTo = tx.To()
		txInput = tx.Data()
	}

	fact, lock := w.correlator.Correlate(ctx, txTo, txHash, logs)
	w.metrics.ReceiptsProcessed.Inc()
	if fact == nil && lock == nil {
		w.seen.Commit(txHash)
		return
	}

	if fact != nil {
		w.handleLaunch(ctx, fact, txInput)
	}
	if lock != nil {
		w.handleLock(ctx, lock)
	}

	w.seen.Commit(txHash)
}

func (w *Watcher) fetchTx(ctx context.Context, txHash common.Hash) (*types.Receipt, *types.Transaction, error) {
	var receipt *types.Receipt
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		receipt, err = w.chain.TransactionReceipt(ctx, txHash)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	// The transaction body supplies the recipient the correlator keys
	// on; without it the receipt decodes to nothing, so a fetch failure
	// must release the hash for a later attempt, not swallow the event.
	var tx *types.Transaction
	err = withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		tx, _, err = w.chain.TransactionByHash(ctx, txHash)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return receipt, tx, nil
}

func (w *Watcher) handleLaunch(ctx context.Context, fact *model.Launch, txInput []byte) {
	var (
		socials model.SocialSet
		mech    *model.Mechanism
		usd     decimal.Decimal
	)

	// The three enrichment sources are independent remote calls; run
	// them concurrently so a slow one does not serialize the pipeline.
	var wg sync.WaitGroup
	if w.prober != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			socials = w.prober.DiscoverSocials(ctx, fact.Token, txInput)
		}()
		go func() {
			defer wg.Done()
			mech = w.prober.DiscoverMechanics(ctx, fact.Token)
		}()
	}
	if w.rates != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			usd = w.rates.NativeUSD(ctx)
		}()
	}
	wg.Wait()

	var preferred map[string]int64
	if w.prober != nil {
		preferred = w.prober.PreferredDenominators()
	}
	metrics := derive.Compute(fact, usd)
	specs := derive.BuildSpecs(mech, preferred)

	text, buttons := notify.FormatLaunch(fact, metrics, specs, socials, mech, preferred, w.cfg.ExplorerBase)
	if err := w.notifier.Send(ctx, text, buttons); err != nil {
		w.metrics.NotifyFailures.Inc()
		w.logger.Warn("launch notification failed", zap.Error(err), zap.String("token", fact.Token.Hex()))
	}

	w.metrics.LaunchesDetected.Inc()
	w.logger.Info("launch detected",
		zap.String("token", fact.Token.Hex()),
		zap.String("symbol", fact.Symbol),
		zap.String("tx", fact.TxHash.Hex()),
		zap.Uint64("block", fact.BlockNumber))
}

func (w *Watcher) handleLock(ctx context.Context, lock *model.Lock) {
	text, buttons := notify.FormatLock(lock, w.cfg.ExplorerBase)
	if err := w.notifier.Send(ctx, text, buttons); err != nil {
		w.metrics.NotifyFailures.Inc()
		w.logger.Warn("lock notification failed", zap.Error(err), zap.String("tx", lock.TxHash.Hex()))
	}

	w.metrics.LocksDetected.Inc()
	subject := "unknown"
	if lock.Subject != nil {
		subject = lock.Subject.Hex()
	}
	w.logger.Info("settings lock detected", zap.String("subject", subject), zap.String("tx", lock.TxHash.Hex()))
}

// uniqueTxHashes preserves first-appearance order.
func uniqueTxHashes(logs []types.Log) []common.Hash {
	seen := make(map[common.Hash]struct{}, len(logs))
	out := make([]common.Hash, 0, len(logs))
	for _, log := range logs {
		if _, ok := seen[log.TxHash]; ok {
			continue
		}
		seen[log.TxHash] = struct{}{}
		out = append(out, log.TxHash)
	}
	return out
}
