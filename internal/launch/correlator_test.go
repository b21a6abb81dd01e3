package launch

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"launchscope/internal/events"
	"launchscope/internal/token"
)

var (
	monitored = common.HexToAddress("0xAAAA00000000000000000000000000000000AAAA")
	tokenAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	wnative   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	pairAddr  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	devAddr   = common.HexToAddress("0x4444444444444444444444444444444444444444")
	txHash    = common.HexToHash("0xfeed000000000000000000000000000000000000000000000000000000000001")
)

type fakeTokenReader struct {
	basics token.Basics
}

func (f *fakeTokenReader) ReadBasics(context.Context, common.Address) token.Basics {
	return f.basics
}

func mustABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := events.LaunchABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	return parsed
}

func addrTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func tokenCreatedLog(t *testing.T, parsed abi.ABI) types.Log {
	t.Helper()
	data, err := parsed.Events["TokenCreated"].Inputs.NonIndexed().Pack("Moon Token", "MOON")
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return types.Log{
		Address: monitored,
		Topics:  []common.Hash{parsed.Events["TokenCreated"].ID, addrTopic(tokenAddr)},
		Data:    data,
	}
}

func pairCreatedLog(t *testing.T, parsed abi.ABI, token0, token1 common.Address) types.Log {
	t.Helper()
	data, err := parsed.Events["PairCreated"].Inputs.NonIndexed().Pack(pairAddr, big.NewInt(1))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return types.Log{
		Topics: []common.Hash{parsed.Events["PairCreated"].ID, addrTopic(token0), addrTopic(token1)},
		Data:   data,
	}
}

func transferLog(t *testing.T, parsed abi.ABI, emitter, from, to common.Address, value int64) types.Log {
	t.Helper()
	data, err := parsed.Events["Transfer"].Inputs.NonIndexed().Pack(big.NewInt(value))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return types.Log{
		Address: emitter,
		Topics:  []common.Hash{parsed.Events["Transfer"].ID, addrTopic(from), addrTopic(to)},
		Data:    data,
	}
}

func mintLog(t *testing.T, parsed abi.ABI, amount0, amount1 int64) types.Log {
	t.Helper()
	data, err := parsed.Events["Mint"].Inputs.NonIndexed().Pack(big.NewInt(amount0), big.NewInt(amount1))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return types.Log{
		Address: pairAddr,
		Topics:  []common.Hash{parsed.Events["Mint"].ID, addrTopic(monitored)},
		Data:    data,
	}
}

func syncLog(t *testing.T, parsed abi.ABI, reserve0, reserve1 int64) types.Log {
	t.Helper()
	data, err := parsed.Events["Sync"].Inputs.NonIndexed().Pack(big.NewInt(reserve0), big.NewInt(reserve1))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return types.Log{
		Address: pairAddr,
		Topics:  []common.Hash{parsed.Events["Sync"].ID},
		Data:    data,
	}
}

func depositLog(t *testing.T, parsed abi.ABI, amount int64) types.Log {
	t.Helper()
	data, err := parsed.Events["Deposit"].Inputs.NonIndexed().Pack(big.NewInt(amount))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return types.Log{
		Address: wnative,
		Topics:  []common.Hash{parsed.Events["Deposit"].ID, addrTopic(pairAddr)},
		Data:    data,
	}
}

func newTestCorrelator(tokens TokenReader) *Correlator {
	return NewCorrelator(monitored, common.Address{}, tokens, nil, nil)
}

func TestCorrelateFullLaunch(t *testing.T) {
	parsed := mustABI(t)
	reader := &fakeTokenReader{basics: token.Basics{
		Decimals:    18,
		TotalSupply: big.NewInt(1_000_000),
	}}

	logs := []types.Log{
		tokenCreatedLog(t, parsed),
		pairCreatedLog(t, parsed, tokenAddr, wnative),
		mintLog(t, parsed, 800_000, 5_000),
		transferLog(t, parsed, tokenAddr, monitored, pairAddr, 500_000),
		transferLog(t, parsed, tokenAddr, monitored, pairAddr, 300_000),
		transferLog(t, parsed, tokenAddr, monitored, devAddr, 150_000),
	}

	fact, lock := newTestCorrelator(reader).Correlate(context.Background(), &monitored, txHash, logs)
	if lock != nil {
		t.Fatalf("unexpected lock: %+v", lock)
	}
	if fact == nil {
		t.Fatalf("expected launch fact")
	}
	if fact.Token != tokenAddr || fact.Pair != pairAddr || !fact.TokenIsToken0 {
		t.Fatalf("identity mismatch: %+v", fact)
	}
	if fact.Name != "Moon Token" || fact.Symbol != "MOON" {
		t.Fatalf("name/symbol mismatch: %+v", fact)
	}
	if fact.LiquidityTokenAmount.Int64() != 800_000 {
		t.Fatalf("liquidity token amount mismatch: %s", fact.LiquidityTokenAmount)
	}
	if fact.DevAmount.Int64() != 150_000 {
		t.Fatalf("dev amount mismatch: %s", fact.DevAmount)
	}
	if fact.LiquidityNative.Int64() != 5_000 {
		t.Fatalf("native side mismatch: %s", fact.LiquidityNative)
	}
	if fact.Decimals != 18 || fact.TotalSupply.Int64() != 1_000_000 {
		t.Fatalf("basics mismatch: %+v", fact)
	}
}

func TestCorrelateSyncOverridesMint(t *testing.T) {
	parsed := mustABI(t)
	logs := []types.Log{
		tokenCreatedLog(t, parsed),
		pairCreatedLog(t, parsed, tokenAddr, wnative),
		mintLog(t, parsed, 800_000, 5_000),
		syncLog(t, parsed, 800_000, 7_000),
	}

	fact, _ := newTestCorrelator(nil).Correlate(context.Background(), &monitored, txHash, logs)
	if fact == nil {
		t.Fatalf("expected launch fact")
	}
	if fact.LiquidityNative.Int64() != 7_000 {
		t.Fatalf("sync should override mint: %s", fact.LiquidityNative)
	}
}

func TestCorrelateOrientationToken1(t *testing.T) {
	parsed := mustABI(t)
	logs := []types.Log{
		tokenCreatedLog(t, parsed),
		pairCreatedLog(t, parsed, wnative, tokenAddr),
		mintLog(t, parsed, 5_000, 800_000),
	}

	fact, _ := newTestCorrelator(nil).Correlate(context.Background(), &monitored, txHash, logs)
	if fact == nil {
		t.Fatalf("expected launch fact")
	}
	if fact.TokenIsToken0 {
		t.Fatalf("expected token1 orientation")
	}
	if fact.LiquidityNative.Int64() != 5_000 {
		t.Fatalf("native side mismatch: %s", fact.LiquidityNative)
	}
}

func TestCorrelateDepositFallback(t *testing.T) {
	parsed := mustABI(t)
	logs := []types.Log{
		tokenCreatedLog(t, parsed),
		pairCreatedLog(t, parsed, tokenAddr, wnative),
		depositLog(t, parsed, 5_000),
		transferLog(t, parsed, wnative, monitored, pairAddr, 5_000),
	}

	fact, _ := newTestCorrelator(nil).Correlate(context.Background(), &monitored, txHash, logs)
	if fact == nil {
		t.Fatalf("expected launch fact")
	}
	if fact.LiquidityNative.Int64() != 5_000 {
		t.Fatalf("deposit fallback mismatch: %s", fact.LiquidityNative)
	}
}

func TestCorrelateMintFromZeroFallback(t *testing.T) {
	parsed := mustABI(t)
	logs := []types.Log{
		transferLog(t, parsed, tokenAddr, common.Address{}, monitored, 1_000_000),
		transferLog(t, parsed, tokenAddr, monitored, devAddr, 100_000),
	}

	fact, _ := newTestCorrelator(nil).Correlate(context.Background(), &monitored, txHash, logs)
	if fact == nil {
		t.Fatalf("expected launch fact from mint-from-zero")
	}
	if fact.Token != tokenAddr {
		t.Fatalf("token mismatch: %s", fact.Token.Hex())
	}
	if fact.DevAmount.Int64() != 100_000 {
		t.Fatalf("dev amount mismatch: %s", fact.DevAmount)
	}
	if fact.HasPair() {
		t.Fatalf("unexpected pair: %+v", fact)
	}
}

func TestCorrelateAdminCallYieldsNothing(t *testing.T) {
	parsed := mustABI(t)
	// An admin call emits unrelated logs only: no creation signal, no
	// zero-address mint, no lock topic.
	logs := []types.Log{
		transferLog(t, parsed, tokenAddr, devAddr, monitored, 42),
	}

	fact, lock := newTestCorrelator(nil).Correlate(context.Background(), &monitored, txHash, logs)
	if fact != nil || lock != nil {
		t.Fatalf("expected no facts: %+v %+v", fact, lock)
	}
}

func TestCorrelateIgnoresForeignRecipient(t *testing.T) {
	parsed := mustABI(t)
	other := common.HexToAddress("0x9999999999999999999999999999999999999999")
	logs := []types.Log{tokenCreatedLog(t, parsed)}

	fact, lock := newTestCorrelator(nil).Correlate(context.Background(), &other, txHash, logs)
	if fact != nil || lock != nil {
		t.Fatalf("receipts to other contracts must be ignored")
	}
}

func TestCorrelateLockIndependent(t *testing.T) {
	lockTopic := crypto.Keccak256Hash([]byte("SettingsLocked(address)"))
	logs := []types.Log{
		{
			Address: monitored,
			Topics:  []common.Hash{lockTopic, addrTopic(tokenAddr)},
		},
	}

	fact, lock := newTestCorrelator(nil).Correlate(context.Background(), &monitored, txHash, logs)
	if fact != nil {
		t.Fatalf("unexpected launch fact: %+v", fact)
	}
	if lock == nil || lock.Subject == nil || *lock.Subject != tokenAddr {
		t.Fatalf("lock mismatch: %+v", lock)
	}
	if lock.TxHash != txHash {
		t.Fatalf("lock tx hash mismatch")
	}
}
