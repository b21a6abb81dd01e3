package events

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// launchABIJSON covers every event shape the decoders recognize. The
// TokenCreated event is the launchpad's own non-standard creation
// signal; the rest are standard ERC20/AMM-pair/wrapped-native shapes.
const launchABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "token", "type": "address"},
      {"indexed": false, "internalType": "string", "name": "name", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "symbol", "type": "string"}
    ],
    "name": "TokenCreated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "token0", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "token1", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "pair", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "allPairsLength", "type": "uint256"}
    ],
    "name": "PairCreated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount0", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount1", "type": "uint256"}
    ],
    "name": "Mint",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint112", "name": "reserve0", "type": "uint112"},
      {"indexed": false, "internalType": "uint112", "name": "reserve1", "type": "uint112"}
    ],
    "name": "Sync",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "dst", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "wad", "type": "uint256"}
    ],
    "name": "Deposit",
    "type": "event"
  }
]`

var (
	launchABI     abi.ABI
	launchABIOnce sync.Once
	launchABIErr  error
)

// LaunchABI returns the parsed event ABI shared by all decoders.
func LaunchABI() (abi.ABI, error) {
	launchABIOnce.Do(func() {
		launchABI, launchABIErr = abi.JSON(strings.NewReader(launchABIJSON))
	})
	return launchABI, launchABIErr
}

// Lock-event signatures accepted as synonyms. Different launchpad
// revisions emitted different names for the same irreversible action.
var lockEventSignatures = []string{
	"SettingsLocked(address)",
	"ContractLocked(address)",
	"LiquidityLocked(address)",
}

var (
	topicsOnce sync.Once

	topicTokenCreated common.Hash
	topicPairCreated  common.Hash
	topicMint         common.Hash
	topicSync         common.Hash
	topicTransfer     common.Hash
	topicDeposit      common.Hash
	topicLocks        []common.Hash
)

func initTopics() {
	topicsOnce.Do(func() {
		parsed, err := LaunchABI()
		if err != nil {
			// The ABI JSON is a compile-time constant; a parse failure
			// leaves every registry topic zero and nothing ever matches.
			return
		}
		topicTokenCreated = parsed.Events["TokenCreated"].ID
		topicPairCreated = parsed.Events["PairCreated"].ID
		topicMint = parsed.Events["Mint"].ID
		topicSync = parsed.Events["Sync"].ID
		topicTransfer = parsed.Events["Transfer"].ID
		topicDeposit = parsed.Events["Deposit"].ID

		topicLocks = make([]common.Hash, 0, len(lockEventSignatures))
		for _, sig := range lockEventSignatures {
			topicLocks = append(topicLocks, crypto.Keccak256Hash([]byte(sig)))
		}
	})
}

// TokenCreatedTopic returns the launchpad's creation-event topic hash.
func TokenCreatedTopic() common.Hash {
	initTopics()
	return topicTokenCreated
}

// TransferTopic returns the ERC20 Transfer topic hash.
func TransferTopic() common.Hash {
	initTopics()
	return topicTransfer
}

// LockTopics returns the accepted settings-lock topic hashes.
func LockTopics() []common.Hash {
	initTopics()
	out := make([]common.Hash, len(topicLocks))
	copy(out, topicLocks)
	return out
}

func isLockTopic(h common.Hash) bool {
	initTopics()
	for _, t := range topicLocks {
		if h == t {
			return true
		}
	}
	return false
}
