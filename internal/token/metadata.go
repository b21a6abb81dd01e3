package token

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABIString      abi.ABI
	erc20ABIStringOnce  sync.Once
	erc20ABIStringErr   error
	erc20ABIBytes32     abi.ABI
	erc20ABIBytes32Once sync.Once
	erc20ABIBytes32Err  error
)

func erc20ABIStringInstance() (abi.ABI, error) {
	erc20ABIStringOnce.Do(func() {
		erc20ABIString, erc20ABIStringErr = abi.JSON(strings.NewReader(erc20ABIStringJSON))
	})
	return erc20ABIString, erc20ABIStringErr
}

func erc20ABIBytes32Instance() (abi.ABI, error) {
	erc20ABIBytes32Once.Do(func() {
		erc20ABIBytes32, erc20ABIBytes32Err = abi.JSON(strings.NewReader(erc20ABIBytes32JSON))
	})
	return erc20ABIBytes32, erc20ABIBytes32Err
}

// Caller performs a read-only contract call.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Basics are the ERC20 fields read as a safety net when a launch fact is
// missing them. Fields a contract refuses to answer stay at their zero
// values; a read failure never propagates as an error.
type Basics struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
}

// Reader performs cached ERC20 metadata reads.
type Reader struct {
	caller  Caller
	cache   *lru.Cache
	timeout time.Duration
	logger  *zap.Logger
}

// NewReader builds a Reader. cacheSize bounds the address cache.
func NewReader(caller Caller, cacheSize int, timeout time.Duration, logger *zap.Logger) (*Reader, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("token cache: %w", err)
	}
	return &Reader{caller: caller, cache: cache, timeout: timeout, logger: logger}, nil
}

// ReadBasics reads name, symbol, decimals and total supply for a token.
// Each field degrades independently on failure.
func (r *Reader) ReadBasics(ctx context.Context, token common.Address) Basics {
	if cached, ok := r.cache.Get(token); ok {
		if basics, ok := cached.(Basics); ok {
			return basics
		}
	}

	basics := Basics{TotalSupply: new(big.Int)}
	if r.caller == nil {
		return basics
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return basics
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return basics
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := r.caller.CallContract(callCtx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	if values, err := call("decimals", stringABI); err == nil && len(values) == 1 {
		if decimals, ok := values[0].(uint8); ok {
			basics.Decimals = decimals
		}
	} else if err != nil {
		r.logger.Debug("decimals call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("totalSupply", stringABI); err == nil && len(values) == 1 {
		if supply, ok := values[0].(*big.Int); ok {
			basics.TotalSupply = supply
		}
	} else if err != nil {
		r.logger.Debug("totalSupply call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("symbol", stringABI); err == nil && len(values) == 1 {
		if symbol, ok := values[0].(string); ok {
			basics.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil && len(values) == 1 {
		if symbol, ok := bytes32ToString(values[0]); ok {
			basics.Symbol = symbol
		}
	}

	if values, err := call("name", stringABI); err == nil && len(values) == 1 {
		if name, ok := values[0].(string); ok {
			basics.Name = name
		}
	} else if values, err := call("name", bytes32ABI); err == nil && len(values) == 1 {
		if name, ok := bytes32ToString(values[0]); ok {
			basics.Name = name
		}
	}

	r.cache.Add(token, basics)
	return basics
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
