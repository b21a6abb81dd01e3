package probe

import (
	"math/big"

	"launchscope/internal/model"
)

// The on-chain scale of a raw fee integer is not declared anywhere:
// contracts divide by 100 (percent), 1000 (permille) or 10000 (basis
// points). These heuristics recover the most plausible percentage.

var denominatorCandidates = []int64{100, 1000, 10000}

// Percentages rounding below this floor under a candidate denominator
// are treated as implausible.
const minPlausiblePct = 0.01

// ExpectedMaxByKey caps the plausible percentage per mechanism key.
// Keys absent from the table default to 100.
var ExpectedMaxByKey = map[string]float64{
	model.MechReflect:      25,
	model.MechAutoLPShare:  25,
	model.MechGamble:       25,
	model.MechDevFee:       25,
	model.MechBurnBuy:      25,
	model.MechBurnSell:     25,
	model.MechDailyPumpCap: 100,
	model.MechAPY:          10000,
}

func pctUnder(raw *big.Int, denominator int64) float64 {
	if denominator <= 0 {
		return 0
	}
	f := new(big.Float).SetInt(raw)
	f.Quo(f, big.NewFloat(float64(denominator)))
	f.Mul(f, big.NewFloat(100))
	out, _ := f.Float64()
	return out
}

// BestPctFromRaw converts a raw unscaled integer into the most plausible
// percentage. All three candidate scales are computed; candidates whose
// percentage lies in (0, expectedMax] qualify and the largest qualifying
// reading wins. When none qualify the largest reading overall is used,
// ignoring the ceiling.
func BestPctFromRaw(raw *big.Int, expectedMax float64) float64 {
	if raw == nil {
		return 0
	}
	best := -1.0
	bestAny := -1.0
	for _, denom := range denominatorCandidates {
		pct := pctUnder(raw, denom)
		if pct > bestAny {
			bestAny = pct
		}
		if pct > 0 && pct <= expectedMax && pct > best {
			best = pct
		}
	}
	if best >= 0 {
		return best
	}
	if bestAny < 0 {
		return 0
	}
	return bestAny
}

// GuessDenominator examines all raw numeric values of a snapshot at once
// and guesses the contract-wide scale: any value in [1000,20000] implies
// basis points, any in [100,1000] implies permille, else percent.
func GuessDenominator(values []*big.Int) int64 {
	lo1000 := big.NewInt(1000)
	hi20000 := big.NewInt(20000)
	lo100 := big.NewInt(100)

	for _, v := range values {
		if v == nil {
			continue
		}
		if v.Cmp(lo1000) >= 0 && v.Cmp(hi20000) <= 0 {
			return 10000
		}
	}
	for _, v := range values {
		if v == nil {
			continue
		}
		if v.Cmp(lo100) >= 0 && v.Cmp(lo1000) <= 0 {
			return 1000
		}
	}
	return 100
}

// ResolvePct turns the raw value stored for key into a percentage.
//
// Priority: a denominator read off the contract itself is trusted
// outright; then the per-key preferred denominator, if its reading is
// plausible; then the contract-wide guess from all raw values; finally
// BestPctFromRaw. Returns false when the key holds no value.
func ResolvePct(m *model.Mechanism, key string, preferred map[string]int64) (float64, bool) {
	if m == nil {
		return 0, false
	}
	raw, ok := m.Numbers[key]
	if !ok || raw == nil {
		return 0, false
	}

	expectedMax, ok := ExpectedMaxByKey[key]
	if !ok {
		expectedMax = 100
	}

	if m.Denominator != nil && m.Denominator.Sign() > 0 {
		f := new(big.Float).SetInt(raw)
		f.Quo(f, new(big.Float).SetInt(m.Denominator))
		f.Mul(f, big.NewFloat(100))
		out, _ := f.Float64()
		return out, true
	}

	if denom, ok := preferred[key]; ok && denom > 0 {
		pct := pctUnder(raw, denom)
		if pct >= minPlausiblePct && pct <= expectedMax {
			return pct, true
		}
	}

	if guess := GuessDenominator(m.RawNumbers()); guess > 0 {
		pct := pctUnder(raw, guess)
		if pct >= minPlausiblePct && pct <= expectedMax {
			return pct, true
		}
	}

	return BestPctFromRaw(raw, expectedMax), true
}
