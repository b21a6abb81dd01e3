package probe

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"time"
	"unicode"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"launchscope/internal/model"
)

// Caller performs a read-only contract call.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var (
	typString, _  = abi.NewType("string", "", nil)
	typUint256, _ = abi.NewType("uint256", "", nil)
	typBool, _    = abi.NewType("bool", "", nil)
	typBytes32, _ = abi.NewType("bytes32", "", nil)
)

// KeyGetters binds one mechanism key to its candidate getter names,
// tried in order. The first getter that answers wins for its key.
type KeyGetters struct {
	Key     string
	Getters []string
}

// TupleGetter names a getter returning several numeric values at once,
// mapped positionally onto mechanism keys.
type TupleGetter struct {
	Name string
	Keys [3]string
}

// Config carries the candidate lists the probe tries against unknown
// contracts. Values come from configuration; DefaultConfig covers the
// layouts seen in the wild so far.
type Config struct {
	// SocialKeys are the semantic keys tried against mapping-style
	// social getters, e.g. "website", "twitter".
	SocialKeys []string
	// SocialMapGetters are fn(string) -> string getter names.
	SocialMapGetters []string
	// SocialMapGettersBytes32 are fn(bytes32) -> string getter names,
	// keyed by keccak256 of the semantic key.
	SocialMapGettersBytes32 []string
	// MechanismNumericGetters lists the numeric mechanism keys with
	// their candidate getter names.
	MechanismNumericGetters []KeyGetters
	// MechanismFlagGetters lists the boolean mechanism keys with their
	// candidate getter names.
	MechanismFlagGetters []KeyGetters
	// MechanismTupleGetters name getters populating three numeric keys
	// at once.
	MechanismTupleGetters []TupleGetter
	// MechanismMapGetters are fn(string) -> uint256 getter names tried
	// for any numeric key still missing after the direct getters.
	MechanismMapGetters []string
	// MechanismMapGettersBytes32 are fn(bytes32) -> uint256 variants,
	// keyed by keccak256 of the mechanism key.
	MechanismMapGettersBytes32 []string
	// DenominatorGetters name the contract's own fee denominator; a
	// value found here is trusted over any heuristic guess.
	DenominatorGetters []string
	// PreferredDenominators maps a mechanism key to the denominator its
	// known contracts use, tried before any heuristic.
	PreferredDenominators map[string]int64
}

// DefaultConfig returns the built-in candidate lists.
func DefaultConfig() Config {
	return Config{
		SocialKeys:              []string{"website", "twitter", "telegram", "discord", "site", "x", "tg"},
		SocialMapGetters:        []string{"social", "socials", "getSocial", "links", "getLink"},
		SocialMapGettersBytes32: []string{"socialOf", "linkOf"},
		MechanismNumericGetters: []KeyGetters{
			{model.MechReflect, []string{"reflectFee", "reflectionFee", "taxFee", "_taxFee"}},
			{model.MechAutoLPShare, []string{"autoLpShare", "liquidityFee", "_liquidityFee", "lpFee"}},
			{model.MechGamble, []string{"gambleFee", "lotteryFee", "jackpotFee"}},
			{model.MechDevFee, []string{"devFee", "_devFee", "marketingFee", "teamFee"}},
			{model.MechBurnBuy, []string{"burnBuyFee", "buyBurnFee"}},
			{model.MechBurnSell, []string{"burnSellFee", "sellBurnFee"}},
			{model.MechDailyPumpCap, []string{"dailyPumpCap", "maxDailyPump"}},
			{model.MechDeathTimer, []string{"deathTimer", "deathTime"}},
			{model.MechAPY, []string{"apy", "APY", "rewardAPY"}},
			{model.MechMaxWallet, []string{"maxWallet", "maxWalletAmount", "_maxWalletSize"}},
			{model.MechMaxTx, []string{"maxTx", "maxTxAmount", "_maxTxAmount"}},
		},
		MechanismFlagGetters: []KeyGetters{
			{model.MechAntibot, []string{"antibot", "antiBot", "antibotEnabled"}},
			{model.MechTradingEnabled, []string{"tradingEnabled", "tradingActive", "tradingOpen"}},
			{model.MechReflectEnabled, []string{"reflectEnabled", "reflectionsEnabled", "isReflect"}},
			{model.MechEthReflect, []string{"ethReflect", "ethReflectEnabled"}},
			{model.MechGambleEnabled, []string{"gambleEnabled", "lotteryEnabled"}},
		},
		MechanismTupleGetters: []TupleGetter{
			{"fees", [3]string{model.MechReflect, model.MechAutoLPShare, model.MechDevFee}},
			{"shares", [3]string{model.MechAutoLPShare, model.MechGamble, model.MechDevFee}},
			{"limits", [3]string{model.MechMaxWallet, model.MechMaxTx, model.MechDailyPumpCap}},
		},
		MechanismMapGetters:        []string{"getParameter", "parameter"},
		MechanismMapGettersBytes32: []string{"parameterOf"},
		DenominatorGetters:         []string{"feeDenominator", "FEE_DENOMINATOR", "denominator", "percentageDivider", "masterTaxDivisor"},
		PreferredDenominators: map[string]int64{
			"reflect":       10000,
			"auto_lp_share": 10000,
			"gamble":        10000,
			"dev_fee":       10000,
		},
	}
}

// MergeKeyGetters appends extra getter candidates onto base. Extras for
// a known key come after its built-ins; unknown keys are appended in
// sorted order so the probe sequence stays deterministic.
func MergeKeyGetters(base []KeyGetters, extras map[string][]string) []KeyGetters {
	if len(extras) == 0 {
		return base
	}
	out := make([]KeyGetters, len(base))
	copy(out, base)
	known := make(map[string]int, len(out))
	for i, entry := range out {
		known[entry.Key] = i
	}
	newKeys := make([]string, 0, len(extras))
	for key, getters := range extras {
		if i, ok := known[key]; ok {
			out[i].Getters = append(append([]string(nil), out[i].Getters...), getters...)
			continue
		}
		newKeys = append(newKeys, key)
	}
	sort.Strings(newKeys)
	for _, key := range newKeys {
		out = append(out, KeyGetters{Key: key, Getters: extras[key]})
	}
	return out
}

// Probe issues speculative read-only calls against a token contract.
// Every individual call is isolated: a revert, timeout or unexpected
// return shape is "no value" and the next candidate is tried.
type Probe struct {
	caller  Caller
	cfg     Config
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
}

// New builds a Probe. timeout bounds every single contract call and
// every outbound HTTP fetch.
func New(caller Caller, cfg Config, timeout time.Duration, logger *zap.Logger) *Probe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if len(cfg.SocialKeys) == 0 {
		cfg.SocialKeys = def.SocialKeys
	}
	if len(cfg.SocialMapGetters) == 0 {
		cfg.SocialMapGetters = def.SocialMapGetters
	}
	if len(cfg.SocialMapGettersBytes32) == 0 {
		cfg.SocialMapGettersBytes32 = def.SocialMapGettersBytes32
	}
	if len(cfg.MechanismNumericGetters) == 0 {
		cfg.MechanismNumericGetters = def.MechanismNumericGetters
	}
	if len(cfg.MechanismFlagGetters) == 0 {
		cfg.MechanismFlagGetters = def.MechanismFlagGetters
	}
	if len(cfg.MechanismTupleGetters) == 0 {
		cfg.MechanismTupleGetters = def.MechanismTupleGetters
	}
	if len(cfg.MechanismMapGetters) == 0 {
		cfg.MechanismMapGetters = def.MechanismMapGetters
	}
	if len(cfg.MechanismMapGettersBytes32) == 0 {
		cfg.MechanismMapGettersBytes32 = def.MechanismMapGettersBytes32
	}
	if len(cfg.DenominatorGetters) == 0 {
		cfg.DenominatorGetters = def.DenominatorGetters
	}
	if cfg.PreferredDenominators == nil {
		cfg.PreferredDenominators = def.PreferredDenominators
	}
	return &Probe{
		caller:  caller,
		cfg:     cfg,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (p *Probe) call(ctx context.Context, addr common.Address, sig string, input []byte) ([]byte, error) {
	if p.caller == nil {
		return nil, fmt.Errorf("no caller")
	}
	selector := crypto.Keccak256([]byte(sig))[:4]
	data := append(append([]byte{}, selector...), input...)

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := ethereum.CallMsg{To: &addr, Data: data}
	return p.caller.CallContract(callCtx, msg, nil)
}

// callString calls a zero-argument getter returning a string. A 32-byte
// fixed return is accepted as a bytes32-encoded string.
func (p *Probe) callString(ctx context.Context, addr common.Address, fn string) (string, bool) {
	resp, err := p.call(ctx, addr, fn+"()", nil)
	if err != nil || len(resp) == 0 {
		return "", false
	}
	return decodeStringResult(resp)
}

// callStringKeyed calls fn(string) -> string with the given key.
func (p *Probe) callStringKeyed(ctx context.Context, addr common.Address, fn, key string) (string, bool) {
	args := abi.Arguments{{Type: typString}}
	input, err := args.Pack(key)
	if err != nil {
		return "", false
	}
	resp, err := p.call(ctx, addr, fn+"(string)", input)
	if err != nil || len(resp) == 0 {
		return "", false
	}
	return decodeStringResult(resp)
}

// callBytes32Keyed calls fn(bytes32) -> string keyed by keccak256(key).
func (p *Probe) callBytes32Keyed(ctx context.Context, addr common.Address, fn, key string) (string, bool) {
	args := abi.Arguments{{Type: typBytes32}}
	var hashed [32]byte
	copy(hashed[:], crypto.Keccak256([]byte(key)))
	input, err := args.Pack(hashed)
	if err != nil {
		return "", false
	}
	resp, err := p.call(ctx, addr, fn+"(bytes32)", input)
	if err != nil || len(resp) == 0 {
		return "", false
	}
	return decodeStringResult(resp)
}

// callUint calls a zero-argument getter returning a single integer.
func (p *Probe) callUint(ctx context.Context, addr common.Address, fn string) (*big.Int, bool) {
	resp, err := p.call(ctx, addr, fn+"()", nil)
	if err != nil || len(resp) != 32 {
		return nil, false
	}
	return new(big.Int).SetBytes(resp), true
}

// callUintKeyed calls fn(string) -> uint256 with the given key.
func (p *Probe) callUintKeyed(ctx context.Context, addr common.Address, fn, key string) (*big.Int, bool) {
	args := abi.Arguments{{Type: typString}}
	input, err := args.Pack(key)
	if err != nil {
		return nil, false
	}
	resp, err := p.call(ctx, addr, fn+"(string)", input)
	if err != nil || len(resp) != 32 {
		return nil, false
	}
	return new(big.Int).SetBytes(resp), true
}

// callUintBytes32Keyed calls fn(bytes32) -> uint256 keyed by keccak256(key).
func (p *Probe) callUintBytes32Keyed(ctx context.Context, addr common.Address, fn, key string) (*big.Int, bool) {
	args := abi.Arguments{{Type: typBytes32}}
	var hashed [32]byte
	copy(hashed[:], crypto.Keccak256([]byte(key)))
	input, err := args.Pack(hashed)
	if err != nil {
		return nil, false
	}
	resp, err := p.call(ctx, addr, fn+"(bytes32)", input)
	if err != nil || len(resp) != 32 {
		return nil, false
	}
	return new(big.Int).SetBytes(resp), true
}

// callBool calls a zero-argument getter returning a bool.
func (p *Probe) callBool(ctx context.Context, addr common.Address, fn string) (bool, bool) {
	resp, err := p.call(ctx, addr, fn+"()", nil)
	if err != nil || len(resp) != 32 {
		return false, false
	}
	v := new(big.Int).SetBytes(resp)
	if v.Sign() == 0 {
		return false, true
	}
	if v.Cmp(big.NewInt(1)) == 0 {
		return true, true
	}
	// Anything else is not a boolean word.
	return false, false
}

// callStringTuple calls a zero-argument getter returning n strings.
func (p *Probe) callStringTuple(ctx context.Context, addr common.Address, fn string, n int) ([]string, bool) {
	resp, err := p.call(ctx, addr, fn+"()", nil)
	if err != nil || len(resp) == 0 {
		return nil, false
	}
	args := make(abi.Arguments, n)
	for i := range args {
		args[i] = abi.Argument{Type: typString}
	}
	values, err := args.Unpack(resp)
	if err != nil || len(values) != n {
		return nil, false
	}
	out := make([]string, n)
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// callUintTuple calls a zero-argument getter returning n integers.
func (p *Probe) callUintTuple(ctx context.Context, addr common.Address, fn string, n int) ([]*big.Int, bool) {
	resp, err := p.call(ctx, addr, fn+"()", nil)
	if err != nil || len(resp) != 32*n {
		return nil, false
	}
	out := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		out[i] = new(big.Int).SetBytes(resp[i*32 : (i+1)*32])
	}
	return out, true
}

// decodeStringResult interprets a call result as an ABI string, falling
// back to a right-padded bytes32 string for old-style contracts.
func decodeStringResult(resp []byte) (string, bool) {
	args := abi.Arguments{{Type: typString}}
	if values, err := args.Unpack(resp); err == nil && len(values) == 1 {
		if s, ok := values[0].(string); ok {
			if s = sanitizeString(s); s != "" {
				return s, true
			}
			return "", false
		}
	}
	if len(resp) == 32 {
		s := string(bytes.TrimRight(resp, "\x00"))
		if s = sanitizeString(s); s != "" {
			return s, true
		}
	}
	return "", false
}

func sanitizeString(s string) string {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return ""
		}
	}
	return s
}
