package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Decoded event variants. Each decoder interprets one raw log as one
// variant; non-matching or malformed logs yield (nil, false) and never
// a panic, so a bad log cannot abort processing of its siblings.

// TokenCreated is the launchpad's token-creation event.
type TokenCreated struct {
	Token  common.Address
	Name   string
	Symbol string
}

// PairCreated is the AMM factory pair-creation event.
type PairCreated struct {
	Token0 common.Address
	Token1 common.Address
	Pair   common.Address
}

// Mint is the AMM pair liquidity-mint event.
type Mint struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// Sync is the AMM pair reserve-settlement event.
type Sync struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// Deposit is the wrapped-native-currency deposit event. Contract is the
// emitting address, the candidate wrapped-native contract.
type Deposit struct {
	Contract common.Address
	Amount   *big.Int
}

// Transfer is the standard ERC20 Transfer event. Token is the emitter.
type Transfer struct {
	Token common.Address
	From  common.Address
	To    common.Address
	Value *big.Int
}

// SettingsLocked is the irreversible settings-lock event. Subject is nil
// when the log carried no address at all.
type SettingsLocked struct {
	Subject *common.Address
}

// DecodeTokenCreated interprets a log as the launchpad creation event.
func DecodeTokenCreated(log types.Log) (*TokenCreated, bool) {
	if len(log.Topics) < 2 || log.Topics[0] != TokenCreatedTopic() || log.Topics[0] == (common.Hash{}) {
		return nil, false
	}
	parsed, err := LaunchABI()
	if err != nil {
		return nil, false
	}
	values, err := parsed.Events["TokenCreated"].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil || len(values) != 2 {
		return nil, false
	}
	name, ok := values[0].(string)
	if !ok {
		return nil, false
	}
	symbol, ok := values[1].(string)
	if !ok {
		return nil, false
	}
	return &TokenCreated{
		Token:  common.BytesToAddress(log.Topics[1].Bytes()),
		Name:   name,
		Symbol: symbol,
	}, true
}

// DecodePairCreated interprets a log as the factory PairCreated event.
func DecodePairCreated(log types.Log) (*PairCreated, bool) {
	initTopics()
	if len(log.Topics) != 3 || log.Topics[0] != topicPairCreated || topicPairCreated == (common.Hash{}) {
		return nil, false
	}
	parsed, err := LaunchABI()
	if err != nil {
		return nil, false
	}
	values, err := parsed.Events["PairCreated"].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil || len(values) != 2 {
		return nil, false
	}
	pair, ok := values[0].(common.Address)
	if !ok {
		return nil, false
	}
	return &PairCreated{
		Token0: common.BytesToAddress(log.Topics[1].Bytes()),
		Token1: common.BytesToAddress(log.Topics[2].Bytes()),
		Pair:   pair,
	}, true
}

// DecodeMint interprets a log as the pair Mint event.
func DecodeMint(log types.Log) (*Mint, bool) {
	initTopics()
	if len(log.Topics) != 2 || log.Topics[0] != topicMint || topicMint == (common.Hash{}) {
		return nil, false
	}
	parsed, err := LaunchABI()
	if err != nil {
		return nil, false
	}
	values, err := parsed.Events["Mint"].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil || len(values) != 2 {
		return nil, false
	}
	amount0, ok0 := values[0].(*big.Int)
	amount1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, false
	}
	return &Mint{Amount0: amount0, Amount1: amount1}, true
}

// DecodeSync interprets a log as the pair Sync event.
func DecodeSync(log types.Log) (*Sync, bool) {
	initTopics()
	if len(log.Topics) != 1 || log.Topics[0] != topicSync || topicSync == (common.Hash{}) {
		return nil, false
	}
	parsed, err := LaunchABI()
	if err != nil {
		return nil, false
	}
	values, err := parsed.Events["Sync"].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil || len(values) != 2 {
		return nil, false
	}
	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, false
	}
	return &Sync{Reserve0: reserve0, Reserve1: reserve1}, true
}

// DecodeDeposit interprets a log as the wrapped-native Deposit event.
func DecodeDeposit(log types.Log) (*Deposit, bool) {
	initTopics()
	if len(log.Topics) != 2 || log.Topics[0] != topicDeposit || topicDeposit == (common.Hash{}) {
		return nil, false
	}
	parsed, err := LaunchABI()
	if err != nil {
		return nil, false
	}
	values, err := parsed.Events["Deposit"].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil || len(values) != 1 {
		return nil, false
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, false
	}
	return &Deposit{Contract: log.Address, Amount: amount}, true
}

// DecodeTransfer interprets a log as an ERC20 Transfer event.
func DecodeTransfer(log types.Log) (*Transfer, bool) {
	initTopics()
	if len(log.Topics) != 3 || log.Topics[0] != topicTransfer || topicTransfer == (common.Hash{}) {
		return nil, false
	}
	parsed, err := LaunchABI()
	if err != nil {
		return nil, false
	}
	values, err := parsed.Events["Transfer"].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil || len(values) != 1 {
		return nil, false
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, false
	}
	return &Transfer{
		Token: log.Address,
		From:  common.BytesToAddress(log.Topics[1].Bytes()),
		To:    common.BytesToAddress(log.Topics[2].Bytes()),
		Value: value,
	}, true
}

// DecodeSettingsLocked interprets a log as a settings-lock event. The
// three accepted signatures are synonyms; the subject address comes from
// topic[1] when indexed, else from the first data word.
func DecodeSettingsLocked(log types.Log) (*SettingsLocked, bool) {
	if len(log.Topics) == 0 || !isLockTopic(log.Topics[0]) {
		return nil, false
	}
	if len(log.Topics) >= 2 {
		subject := common.BytesToAddress(log.Topics[1].Bytes())
		return &SettingsLocked{Subject: &subject}, true
	}
	if len(log.Data) >= 32 {
		subject := common.BytesToAddress(log.Data[:32])
		return &SettingsLocked{Subject: &subject}, true
	}
	return &SettingsLocked{}, true
}
