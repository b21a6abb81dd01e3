package model

import "math/big"

// Mechanism keys discovered by the introspection probe.
const (
	MechReflect      = "reflect"
	MechAutoLPShare  = "auto_lp_share"
	MechGamble       = "gamble"
	MechDevFee       = "dev_fee"
	MechBurnBuy      = "burn_buy"
	MechBurnSell     = "burn_sell"
	MechDailyPumpCap = "daily_pump_cap"
	MechDeathTimer   = "death_timer"
	MechAPY          = "apy"
	MechMaxWallet    = "max_wallet"
	MechMaxTx        = "max_tx"

	MechAntibot        = "antibot"
	MechTradingEnabled = "trading_enabled"
	MechReflectEnabled = "reflect_enabled"
	MechEthReflect     = "eth_reflect"
	MechGambleEnabled  = "gamble_enabled"
)

// Mechanism holds raw values probed from a token contract. Values are
// unscaled on-chain integers; Denominator is set only when the contract
// exposed its own fee denominator.
type Mechanism struct {
	Numbers     map[string]*big.Int
	Flags       map[string]bool
	Denominator *big.Int
}

// NewMechanism returns an empty snapshot.
func NewMechanism() *Mechanism {
	return &Mechanism{
		Numbers: make(map[string]*big.Int),
		Flags:   make(map[string]bool),
	}
}

// FillNumber records a numeric value for key unless one is already set.
// The first successful probe wins.
func (m *Mechanism) FillNumber(key string, v *big.Int) {
	if v == nil {
		return
	}
	if _, ok := m.Numbers[key]; !ok {
		m.Numbers[key] = v
	}
}

// FillFlag records a boolean value for key unless one is already set.
func (m *Mechanism) FillFlag(key string, v bool) {
	if _, ok := m.Flags[key]; !ok {
		m.Flags[key] = v
	}
}

// HasNumber reports whether key holds a numeric value.
func (m *Mechanism) HasNumber(key string) bool {
	_, ok := m.Numbers[key]
	return ok
}

// HasFlag reports whether key holds a boolean value.
func (m *Mechanism) HasFlag(key string) bool {
	_, ok := m.Flags[key]
	return ok
}

// RawNumbers returns all numeric values in no particular order.
func (m *Mechanism) RawNumbers() []*big.Int {
	out := make([]*big.Int, 0, len(m.Numbers))
	for _, v := range m.Numbers {
		out = append(out, v)
	}
	return out
}
