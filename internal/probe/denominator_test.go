package probe

import (
	"math"
	"math/big"
	"testing"

	"launchscope/internal/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBestPctFromRawPicksQualifyingScale(t *testing.T) {
	// 1000 reads as 1000% / 100% / 10%; only the basis-point reading
	// falls within (0, 25].
	got := BestPctFromRaw(big.NewInt(1000), 25)
	if !almostEqual(got, 10) {
		t.Fatalf("expected 10, got %v", got)
	}
}

func TestBestPctFromRawPrefersLargestQualifying(t *testing.T) {
	// 20 reads as 20% / 2% / 0.2%; all qualify under a 25 ceiling, the
	// largest wins.
	got := BestPctFromRaw(big.NewInt(20), 25)
	if !almostEqual(got, 20) {
		t.Fatalf("expected 20, got %v", got)
	}
}

func TestBestPctFromRawFallbackIgnoresCeiling(t *testing.T) {
	// 50000 reads as 50000% / 5000% / 500%; none qualify under 25, so
	// the largest overall reading is returned.
	got := BestPctFromRaw(big.NewInt(50000), 25)
	if !almostEqual(got, 50000) {
		t.Fatalf("expected 50000, got %v", got)
	}
}

func TestGuessDenominator(t *testing.T) {
	cases := []struct {
		values []int64
		want   int64
	}{
		{[]int64{1500, 3}, 10000},
		{[]int64{250, 3}, 1000},
		{[]int64{5, 3}, 100},
		{nil, 100},
	}
	for _, tc := range cases {
		values := make([]*big.Int, 0, len(tc.values))
		for _, v := range tc.values {
			values = append(values, big.NewInt(v))
		}
		if got := GuessDenominator(values); got != tc.want {
			t.Fatalf("values %v: expected %d, got %d", tc.values, tc.want, got)
		}
	}
}

func TestResolvePctTrustsDiscoveredDenominator(t *testing.T) {
	m := model.NewMechanism()
	m.FillNumber(model.MechReflect, big.NewInt(50))
	m.Denominator = big.NewInt(1000)

	got, ok := ResolvePct(m, model.MechReflect, nil)
	if !ok || !almostEqual(got, 5) {
		t.Fatalf("expected 5, got %v ok=%v", got, ok)
	}
}

func TestResolvePctPreferredDenominator(t *testing.T) {
	m := model.NewMechanism()
	m.FillNumber(model.MechDevFee, big.NewInt(500))

	got, ok := ResolvePct(m, model.MechDevFee, map[string]int64{model.MechDevFee: 10000})
	if !ok || !almostEqual(got, 5) {
		t.Fatalf("expected 5, got %v ok=%v", got, ok)
	}
}

func TestResolvePctPreferredImplausibleFallsBack(t *testing.T) {
	// Preferred denominator 100 would read 500%, above the 25 ceiling;
	// the guess over all raw values takes over.
	m := model.NewMechanism()
	m.FillNumber(model.MechDevFee, big.NewInt(500))

	got, ok := ResolvePct(m, model.MechDevFee, map[string]int64{model.MechDevFee: 100})
	if !ok || !almostEqual(got, 5) {
		t.Fatalf("expected 5, got %v ok=%v", got, ok)
	}
}

func TestResolvePctMissingKey(t *testing.T) {
	m := model.NewMechanism()
	if _, ok := ResolvePct(m, model.MechGamble, nil); ok {
		t.Fatalf("expected no value")
	}
}
