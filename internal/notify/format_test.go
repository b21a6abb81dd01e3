package notify

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"launchscope/internal/derive"
	"launchscope/internal/model"
)

func sampleLaunch() *model.Launch {
	return &model.Launch{
		Token:       common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Pair:        common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Name:        "Moon <Cat>",
		Symbol:      "MCAT",
		TxHash:      common.HexToHash("0xabc1"),
		TotalSupply: big.NewInt(1_000_000),
	}
}

func TestFormatLaunchMessage(t *testing.T) {
	metrics := derive.Metrics{
		DevHoldPct:      decimal.NewFromInt(5),
		LiquidityNative: decimal.NewFromInt(4),
		LiquidityUSD:    decimal.NewFromInt(2400),
		HasUSD:          true,
	}
	specs := derive.Specs{Reflect: 6, Reward: 4, AutoLP: 1, Dev: 1, HasData: true}
	socials := model.SocialSet{
		model.SocialWebsite: "https://mooncat.example",
		model.SocialTwitter: "https://x.com/mooncat",
	}

	text, buttons := FormatLaunch(sampleLaunch(), metrics, specs, socials, nil, nil, "https://scan.example/")

	if !strings.Contains(text, "Moon &lt;Cat&gt;") {
		t.Fatalf("token name not HTML-escaped: %q", text)
	}
	if !strings.Contains(text, "Dev holds: <b>5%</b>") {
		t.Errorf("missing dev hold line: %q", text)
	}
	if !strings.Contains(text, "$2400") {
		t.Errorf("missing USD liquidity: %q", text)
	}
	if !strings.Contains(text, "Reflect: 6%") || !strings.Contains(text, "reward 4%") {
		t.Errorf("missing fee breakdown: %q", text)
	}

	labels := make([]string, 0, len(buttons))
	for _, b := range buttons {
		labels = append(labels, b.Label)
	}
	want := []string{"Token", "Pair", "Website", "Twitter"}
	if len(labels) != len(want) {
		t.Fatalf("buttons = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("buttons = %v, want %v", labels, want)
		}
	}
	if buttons[0].URL != "https://scan.example/address/0x1111111111111111111111111111111111111111" {
		t.Errorf("token button URL = %q", buttons[0].URL)
	}
}

func TestFormatLaunchWithoutPairOrRate(t *testing.T) {
	fact := sampleLaunch()
	fact.Pair = common.Address{}
	metrics := derive.Metrics{LiquidityNative: decimal.NewFromInt(3)}

	text, buttons := FormatLaunch(fact, metrics, derive.Specs{}, nil, nil, nil, "https://scan.example")

	if !strings.Contains(text, "Pair: not created yet") {
		t.Errorf("missing pair note: %q", text)
	}
	if strings.Contains(text, "$") {
		t.Errorf("USD shown without a rate: %q", text)
	}
	if !strings.Contains(text, "3 native") {
		t.Errorf("missing native liquidity fallback: %q", text)
	}
	for _, b := range buttons {
		if b.Label == "Pair" {
			t.Errorf("pair button present without a pair")
		}
	}
}

func TestFormatLaunchMechanismLines(t *testing.T) {
	mech := model.NewMechanism()
	mech.FillNumber(model.MechBurnBuy, big.NewInt(200))
	mech.Denominator = big.NewInt(10000)
	mech.FillFlag(model.MechAntibot, true)
	mech.FillFlag(model.MechTradingEnabled, false)

	text, _ := FormatLaunch(sampleLaunch(), derive.Metrics{}, derive.Specs{}, nil, mech, nil, "https://scan.example")

	if !strings.Contains(text, "Burn on buy: 2%") {
		t.Errorf("missing burn line: %q", text)
	}
	if !strings.Contains(text, "Antibot: yes") || !strings.Contains(text, "Trading enabled: no") {
		t.Errorf("missing flag lines: %q", text)
	}
}

func TestFormatLock(t *testing.T) {
	subject := common.HexToAddress("0x3333333333333333333333333333333333333333")
	lock := &model.Lock{Subject: &subject, TxHash: common.HexToHash("0xdef1")}

	text, buttons := FormatLock(lock, "https://scan.example")

	if !strings.Contains(text, "Settings locked") {
		t.Errorf("missing headline: %q", text)
	}
	if !strings.Contains(text, subject.Hex()) {
		t.Errorf("missing subject address: %q", text)
	}
	if len(buttons) != 2 || buttons[0].Label != "Contract" {
		t.Fatalf("buttons = %v", buttons)
	}
}

func TestFmtPctTrimsZeros(t *testing.T) {
	cases := map[float64]string{
		5:     "5%",
		2.5:   "2.5%",
		0.25:  "0.25%",
		12.34: "12.34%",
	}
	for in, want := range cases {
		if got := fmtPct(in); got != want {
			t.Errorf("fmtPct(%v) = %q, want %q", in, got, want)
		}
	}
}
