package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Launch is the reconstructed fact of a token launch, assembled from a
// single transaction receipt. At most one Launch exists per receipt.
type Launch struct {
	Token  common.Address
	Name   string
	Symbol string

	// Pair is zero when the liquidity pair was not created in the same
	// transaction; the pair may seed later in a separate one.
	Pair          common.Address
	TokenIsToken0 bool

	// DevAmount sums token transfers from the launchpad to anyone but the
	// pair; LiquidityTokenAmount sums transfers into the pair.
	DevAmount            *big.Int
	LiquidityTokenAmount *big.Int

	// LiquidityNative is the wei-equivalent amount seeded on the native
	// side of the pool.
	LiquidityNative *big.Int

	Decimals    uint8
	TotalSupply *big.Int

	TxHash      common.Hash
	BlockNumber uint64
}

// HasPair reports whether a liquidity pair was resolved for this launch.
func (l *Launch) HasPair() bool {
	return l.Pair != (common.Address{})
}

// Lock records an irreversible settings lock. Subject is nil when the
// lock event carried no address.
type Lock struct {
	Subject *common.Address
	TxHash  common.Hash
}
