package watcher

import (
	"context"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"launchscope/internal/events"
	"launchscope/internal/launch"
	"launchscope/internal/notify"
)

var (
	monitored = common.HexToAddress("0xAAAA00000000000000000000000000000000AAAA")
	tokenAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

type fakeChain struct {
	mu       sync.Mutex
	receipts map[common.Hash]*types.Receipt
	txs      map[common.Hash]*types.Transaction
	logs     []types.Log
	latest   uint64

	// txFailures makes the next N TransactionByHash calls fail, the way
	// a flaky RPC node would.
	txFailures  int
	filterCalls []BlockRange
}

func (f *fakeChain) LatestBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeChain) FilterLogs(_ context.Context, from, to uint64, _ []common.Address, _ []common.Hash) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filterCalls = append(f.filterCalls, BlockRange{From: from, To: to})

	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber >= from && l.BlockNumber <= to {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeChain) SubscribeLogs(context.Context, []common.Address, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeChain) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	if r, ok := f.receipts[txHash]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("receipt not found")
}

func (f *fakeChain) TransactionByHash(_ context.Context, txHash common.Hash) (*types.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txFailures > 0 {
		f.txFailures--
		return nil, false, fmt.Errorf("connection reset")
	}
	if tx, ok := f.txs[txHash]; ok {
		return tx, false, nil
	}
	return nil, false, fmt.Errorf("tx not found")
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeNotifier) Send(_ context.Context, text string, _ []notify.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

func lockLog(txHash common.Hash, block uint64) types.Log {
	return types.Log{
		Address:     monitored,
		Topics:      []common.Hash{events.LockTopics()[0], common.BytesToHash(tokenAddr.Bytes())},
		TxHash:      txHash,
		BlockNumber: block,
	}
}

func lockReceipt(txHash common.Hash, block uint64) *types.Receipt {
	l := lockLog(txHash, block)
	return &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs:   []*types.Log{&l},
	}
}

func launchpadTx() *types.Transaction {
	to := monitored
	return types.NewTx(&types.LegacyTx{
		Nonce:    1,
		To:       &to,
		Gas:      21_000,
		GasPrice: big.NewInt(1),
		Value:    big.NewInt(0),
	})
}

func newTestWatcher(t *testing.T, cfg RunConfig, chain ChainSource, sink *fakeNotifier) *Watcher {
	t.Helper()
	correlator := launch.NewCorrelator(monitored, common.Address{}, nil, nil, nil)
	w, err := New(cfg, chain, correlator, nil, nil, sink, NewMetrics(), nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	return w
}

func TestProcessTxNotifiesOncePerHash(t *testing.T) {
	txHash := common.HexToHash("0xfeed01")
	chain := &fakeChain{
		receipts: map[common.Hash]*types.Receipt{txHash: lockReceipt(txHash, 10)},
		txs:      map[common.Hash]*types.Transaction{txHash: launchpadTx()},
	}
	sink := &fakeNotifier{}
	w := newTestWatcher(t, RunConfig{Monitored: monitored, BatchSize: 10}, chain, sink)

	w.processTx(context.Background(), txHash)
	w.processTx(context.Background(), txHash)

	if sink.count() != 1 {
		t.Fatalf("notifications = %d, want 1", sink.count())
	}
	if !strings.Contains(sink.texts[0], "Settings locked") {
		t.Errorf("unexpected message: %q", sink.texts[0])
	}
}

func TestProcessTxBodyFetchFailureAllowsRetry(t *testing.T) {
	txHash := common.HexToHash("0xfeed05")
	chain := &fakeChain{
		receipts:   map[common.Hash]*types.Receipt{txHash: lockReceipt(txHash, 12)},
		txs:        map[common.Hash]*types.Transaction{txHash: launchpadTx()},
		txFailures: 1,
	}
	sink := &fakeNotifier{}
	w := newTestWatcher(t, RunConfig{Monitored: monitored, BatchSize: 10}, chain, sink)

	// First delivery hits a transient error on the body fetch; the hash
	// must not be recorded as processed.
	w.processTx(context.Background(), txHash)
	if sink.count() != 0 {
		t.Fatalf("notified despite failed transaction fetch")
	}

	w.processTx(context.Background(), txHash)
	if sink.count() != 1 {
		t.Fatalf("notifications = %d, want 1 (event lost after transient fetch failure)", sink.count())
	}
}

func TestProcessTxReceiptFailureAllowsRetry(t *testing.T) {
	txHash := common.HexToHash("0xfeed02")
	chain := &fakeChain{
		receipts: map[common.Hash]*types.Receipt{},
		txs:      map[common.Hash]*types.Transaction{txHash: launchpadTx()},
	}
	sink := &fakeNotifier{}
	w := newTestWatcher(t, RunConfig{Monitored: monitored, BatchSize: 10}, chain, sink)

	w.processTx(context.Background(), txHash)
	if sink.count() != 0 {
		t.Fatalf("notified despite missing receipt")
	}

	// The receipt appears; the same hash must get another attempt.
	chain.receipts[txHash] = lockReceipt(txHash, 10)
	w.processTx(context.Background(), txHash)
	if sink.count() != 1 {
		t.Fatalf("notifications = %d, want 1 after retry", sink.count())
	}
}

func TestBackfillProcessesRangeAndSavesCheckpoint(t *testing.T) {
	tx1 := common.HexToHash("0xfeed03")
	tx2 := common.HexToHash("0xfeed04")
	chain := &fakeChain{
		latest: 120,
		logs:   []types.Log{lockLog(tx1, 101), lockLog(tx2, 115)},
		receipts: map[common.Hash]*types.Receipt{
			tx1: lockReceipt(tx1, 101),
			tx2: lockReceipt(tx2, 115),
		},
		txs: map[common.Hash]*types.Transaction{
			tx1: launchpadTx(),
			tx2: launchpadTx(),
		},
	}
	sink := &fakeNotifier{}
	cfg := RunConfig{
		Monitored:         monitored,
		FromBlock:         100,
		BatchSize:         10,
		CheckpointPath:    t.TempDir() + "/checkpoint.json",
		CheckpointEnabled: true,
		RetryBackoff:      time.Millisecond,
	}
	w := newTestWatcher(t, cfg, chain, sink)

	tip, err := w.backfill(context.Background())
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if tip != 120 {
		t.Errorf("tip = %d, want 120", tip)
	}
	if sink.count() != 2 {
		t.Fatalf("notifications = %d, want 2", sink.count())
	}

	cp, ok, err := NewCheckpointStore(cfg.CheckpointPath, true).Load()
	if err != nil || !ok {
		t.Fatalf("checkpoint load: ok=%v err=%v", ok, err)
	}
	if cp.LastProcessedBlock != 120 {
		t.Errorf("checkpoint = %d, want 120", cp.LastProcessedBlock)
	}

	// A rerun resumes past the checkpoint and replays nothing.
	w2 := newTestWatcher(t, cfg, chain, sink)
	if _, err := w2.backfill(context.Background()); err != nil {
		t.Fatalf("backfill rerun: %v", err)
	}
	if sink.count() != 2 {
		t.Fatalf("rerun replayed notifications: %d", sink.count())
	}
}

func TestSeenSetClaims(t *testing.T) {
	set, err := NewSeenSet(8)
	if err != nil {
		t.Fatalf("new seen set: %v", err)
	}
	h := common.HexToHash("0x01")

	if !set.TryBegin(h) {
		t.Fatalf("first claim refused")
	}
	if set.TryBegin(h) {
		t.Fatalf("second claim granted while inflight")
	}

	set.Abort(h)
	if !set.TryBegin(h) {
		t.Fatalf("claim refused after abort")
	}

	set.Commit(h)
	if set.TryBegin(h) {
		t.Fatalf("claim granted after commit")
	}
}

func TestSeenSetConcurrentClaimsGrantOne(t *testing.T) {
	set, err := NewSeenSet(8)
	if err != nil {
		t.Fatalf("new seen set: %v", err)
	}
	h := common.HexToHash("0x02")

	var wg sync.WaitGroup
	granted := make(chan struct{}, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if set.TryBegin(h) {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	if n := len(granted); n != 1 {
		t.Fatalf("claims granted = %d, want 1", n)
	}
}

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestUniqueTxHashesPreservesOrder(t *testing.T) {
	a := common.HexToHash("0x0a")
	b := common.HexToHash("0x0b")
	logs := []types.Log{{TxHash: a}, {TxHash: b}, {TxHash: a}, {TxHash: b}}

	got := uniqueTxHashes(logs)
	want := []common.Hash{a, b}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("hashes = %v, want %v", got, want)
	}
}
