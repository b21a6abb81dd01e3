// Package derive turns a launch fact and probed mechanism values into
// the human-meaningful numbers a notification shows.
package derive

import (
	"github.com/shopspring/decimal"

	"launchscope/internal/model"
	"launchscope/internal/probe"
)

var weiPerNative = decimal.New(1, 18)

// Metrics are the derived valuation figures for one launch. USD fields
// are meaningful only when HasUSD is true; otherwise the native-currency
// fields are shown instead.
type Metrics struct {
	DevHoldPct      decimal.Decimal
	LiquidityNative decimal.Decimal
	LiquidityUSD    decimal.Decimal
	FDVNative       decimal.Decimal
	FDVUSD          decimal.Decimal
	HasFDV          bool
	HasUSD          bool
}

// Compute derives metrics from a launch fact and the native/USD rate.
// A zero rate means the rate source was unavailable.
func Compute(fact *model.Launch, rate decimal.Decimal) Metrics {
	m := Metrics{HasUSD: rate.IsPositive()}
	if fact == nil {
		return m
	}

	supply := decimal.NewFromBigInt(fact.TotalSupply, 0)
	dev := decimal.NewFromBigInt(fact.DevAmount, 0)
	lpToken := decimal.NewFromBigInt(fact.LiquidityTokenAmount, 0)
	lpNativeWei := decimal.NewFromBigInt(fact.LiquidityNative, 0)

	// Dev holdings and total supply share the token's decimals, so the
	// ratio needs no decimal adjustment.
	if supply.IsPositive() {
		m.DevHoldPct = dev.Div(supply).Mul(decimal.NewFromInt(100))
	}

	m.LiquidityNative = lpNativeWei.Div(weiPerNative)
	if m.HasUSD {
		// One known side doubled approximates the whole 50/50 pool.
		m.LiquidityUSD = m.LiquidityNative.Mul(decimal.NewFromInt(2)).Mul(rate)
	}

	if lpToken.IsPositive() && lpNativeWei.IsPositive() {
		m.HasFDV = true
		m.FDVNative = supply.Mul(lpNativeWei).Div(lpToken).Div(weiPerNative)
		if m.HasUSD {
			m.FDVUSD = m.FDVNative.Mul(rate)
		}
	}

	return m
}

// Specs is the normalized fee/mechanism breakdown of a reflect-style
// token. Reward is a derived remainder, not an independently probed
// value.
type Specs struct {
	Reflect float64
	AutoLP  float64
	Reward  float64
	Gamble  float64
	Dev     float64
	HasData bool
}

// SplitReflect splits the sub-slices of a reflect percentage: whatever
// auto-LP, gamble and dev do not claim is the holder reward, clamped at
// zero.
func SplitReflect(autoLP, gamble, dev float64) float64 {
	reward := 100 - (autoLP + gamble + dev)
	if reward < 0 {
		return 0
	}
	return reward
}

// BuildSpecs resolves the probed raw mechanism values into percentages.
func BuildSpecs(m *model.Mechanism, preferred map[string]int64) Specs {
	var s Specs
	if m == nil {
		return s
	}

	if pct, ok := probe.ResolvePct(m, model.MechReflect, preferred); ok {
		s.Reflect = pct
		s.HasData = true
	}
	if pct, ok := probe.ResolvePct(m, model.MechAutoLPShare, preferred); ok {
		s.AutoLP = pct
		s.HasData = true
	}
	if pct, ok := probe.ResolvePct(m, model.MechGamble, preferred); ok {
		s.Gamble = pct
		s.HasData = true
	}
	if pct, ok := probe.ResolvePct(m, model.MechDevFee, preferred); ok {
		s.Dev = pct
		s.HasData = true
	}
	s.Reward = SplitReflect(s.AutoLP, s.Gamble, s.Dev)
	return s
}
