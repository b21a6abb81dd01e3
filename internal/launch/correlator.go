// Package launch reconstructs launch and lock facts from transaction
// receipts of the monitored launchpad contract.
package launch

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"launchscope/internal/catalog"
	"launchscope/internal/events"
	"launchscope/internal/model"
	"launchscope/internal/token"
)

// TokenReader fills token basics the receipt itself did not carry.
type TokenReader interface {
	ReadBasics(ctx context.Context, token common.Address) token.Basics
}

// Correlator turns the unordered bag of logs in one receipt into at most
// one Launch fact and at most one Lock fact.
type Correlator struct {
	monitored         common.Address
	wrappedNativeHint common.Address
	tokens            TokenReader
	catalog           *catalog.Catalog
	logger            *zap.Logger
}

// NewCorrelator builds a Correlator. tokens and cat may be nil; the hint
// is used to identify the wrapped-native contract when no Deposit event
// reveals it.
func NewCorrelator(monitored, wrappedNativeHint common.Address, tokens TokenReader, cat *catalog.Catalog, logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{
		monitored:         monitored,
		wrappedNativeHint: wrappedNativeHint,
		tokens:            tokens,
		catalog:           cat,
		logger:            logger,
	}
}

// Correlate processes one receipt's logs. Receipts not addressed to the
// monitored contract are ignored entirely. A receipt without a creation
// signal yields no Launch; that is the steady state for admin calls, not
// an error. Lock detection is independent of launch detection.
func (c *Correlator) Correlate(ctx context.Context, txTo *common.Address, txHash common.Hash, logs []types.Log) (*model.Launch, *model.Lock) {
	if txTo == nil || *txTo != c.monitored {
		return nil, nil
	}

	lock := c.findLock(txHash, logs)

	tokenAddr, name, symbol, found := c.findToken(logs)
	if !found {
		return nil, lock
	}

	fact := &model.Launch{
		Token:                tokenAddr,
		Name:                 name,
		Symbol:               symbol,
		DevAmount:            new(big.Int),
		LiquidityTokenAmount: new(big.Int),
		LiquidityNative:      new(big.Int),
		TotalSupply:          new(big.Int),
		TxHash:               txHash,
	}
	if len(logs) > 0 {
		fact.BlockNumber = logs[0].BlockNumber
	}

	for _, lg := range logs {
		if pc, ok := events.DecodePairCreated(lg); ok && (pc.Token0 == tokenAddr || pc.Token1 == tokenAddr) {
			fact.Pair = pc.Pair
			fact.TokenIsToken0 = pc.Token0 == tokenAddr
			break
		}
	}

	// Transfers out of the launchpad split into the pair side and the
	// developer side; multiple qualifying transfers sum up.
	for _, lg := range logs {
		tr, ok := events.DecodeTransfer(lg)
		if !ok || tr.Token != tokenAddr || tr.From != c.monitored {
			continue
		}
		if fact.HasPair() && tr.To == fact.Pair {
			fact.LiquidityTokenAmount.Add(fact.LiquidityTokenAmount, tr.Value)
		} else {
			fact.DevAmount.Add(fact.DevAmount, tr.Value)
		}
	}

	if fact.HasPair() {
		fact.LiquidityNative = c.nativeSide(fact, logs)
	}

	if c.tokens != nil {
		basics := c.tokens.ReadBasics(ctx, tokenAddr)
		if fact.Name == "" {
			fact.Name = basics.Name
		}
		if fact.Symbol == "" {
			fact.Symbol = basics.Symbol
		}
		fact.Decimals = basics.Decimals
		if basics.TotalSupply != nil {
			fact.TotalSupply = basics.TotalSupply
		}
	}

	return fact, lock
}

// findToken resolves the launched token: the creation event first, then
// a known-interface creation event, then the mint-from-zero fallback.
func (c *Correlator) findToken(logs []types.Log) (common.Address, string, string, bool) {
	for _, lg := range logs {
		if tc, ok := events.DecodeTokenCreated(lg); ok {
			return tc.Token, tc.Name, tc.Symbol, true
		}
		if c.catalog != nil && len(lg.Topics) >= 2 {
			if _, ok := c.catalog.CreateEvent(lg.Address, lg.Topics[0]); ok {
				return common.BytesToAddress(lg.Topics[1].Bytes()), "", "", true
			}
		}
	}
	for _, lg := range logs {
		if tr, ok := events.DecodeTransfer(lg); ok && tr.From == (common.Address{}) {
			return tr.Token, "", "", true
		}
	}
	return common.Address{}, "", "", false
}

func (c *Correlator) findLock(txHash common.Hash, logs []types.Log) *model.Lock {
	for _, lg := range logs {
		if decoded, ok := events.DecodeSettingsLocked(lg); ok {
			return &model.Lock{Subject: decoded.Subject, TxHash: txHash}
		}
		if c.catalog != nil && len(lg.Topics) > 0 {
			if _, ok := c.catalog.LockEvent(lg.Address, lg.Topics[0]); ok {
				var subject *common.Address
				if len(lg.Topics) >= 2 {
					addr := common.BytesToAddress(lg.Topics[1].Bytes())
					subject = &addr
				}
				return &model.Lock{Subject: subject, TxHash: txHash}
			}
		}
	}
	return nil
}

// nativeSide determines the native-currency amount seeded into the pair.
// A Sync on the pair reflects settled state and overrides a Mint; when
// neither exists, a Deposit event identifies the wrapped-native contract
// (the config hint as fallback) and its transfers into the pair are
// summed.
func (c *Correlator) nativeSide(fact *model.Launch, logs []types.Log) *big.Int {
	var mintAmount, syncAmount *big.Int
	for _, lg := range logs {
		if lg.Address != fact.Pair {
			continue
		}
		if m, ok := events.DecodeMint(lg); ok {
			if fact.TokenIsToken0 {
				mintAmount = m.Amount1
			} else {
				mintAmount = m.Amount0
			}
		}
		if s, ok := events.DecodeSync(lg); ok {
			if fact.TokenIsToken0 {
				syncAmount = s.Reserve1
			} else {
				syncAmount = s.Reserve0
			}
		}
	}
	if syncAmount != nil {
		return syncAmount
	}
	if mintAmount != nil {
		return mintAmount
	}

	wrappedNative := c.wrappedNativeHint
	for _, lg := range logs {
		if d, ok := events.DecodeDeposit(lg); ok {
			wrappedNative = d.Contract
			break
		}
	}
	total := new(big.Int)
	if wrappedNative == (common.Address{}) {
		return total
	}
	for _, lg := range logs {
		if tr, ok := events.DecodeTransfer(lg); ok && tr.Token == wrappedNative && tr.To == fact.Pair {
			total.Add(total, tr.Value)
		}
	}
	return total
}
