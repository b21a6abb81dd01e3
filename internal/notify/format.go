package notify

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"launchscope/internal/derive"
	"launchscope/internal/model"
	"launchscope/internal/probe"
)

// FormatLaunch renders a launch fact and its derived figures into a
// Telegram HTML message plus link buttons. USD figures are shown only
// when the rate source was reachable.
func FormatLaunch(fact *model.Launch, metrics derive.Metrics, specs derive.Specs,
	socials model.SocialSet, mech *model.Mechanism, preferred map[string]int64,
	explorerBase string) (string, []Button) {

	var b strings.Builder

	title := strings.TrimSpace(fact.Name)
	if title == "" {
		title = "Unknown token"
	}
	fmt.Fprintf(&b, "<b>🚀 New launch: %s", html.EscapeString(title))
	if fact.Symbol != "" {
		fmt.Fprintf(&b, " (%s)", html.EscapeString(fact.Symbol))
	}
	b.WriteString("</b>\n\n")

	fmt.Fprintf(&b, "Token: <code>%s</code>\n", fact.Token.Hex())
	if fact.HasPair() {
		fmt.Fprintf(&b, "Pair: <code>%s</code>\n", fact.Pair.Hex())
	} else {
		b.WriteString("Pair: not created yet\n")
	}

	if !metrics.DevHoldPct.IsZero() {
		fmt.Fprintf(&b, "Dev holds: <b>%s%%</b>\n", fmtDecimal(metrics.DevHoldPct))
	}
	if metrics.HasUSD && !metrics.LiquidityUSD.IsZero() {
		fmt.Fprintf(&b, "Liquidity: <b>$%s</b> (%s native)\n",
			fmtDecimal(metrics.LiquidityUSD), fmtDecimal(metrics.LiquidityNative))
	} else if !metrics.LiquidityNative.IsZero() {
		fmt.Fprintf(&b, "Liquidity: <b>%s native</b>\n", fmtDecimal(metrics.LiquidityNative))
	}
	if metrics.HasFDV {
		if metrics.HasUSD {
			fmt.Fprintf(&b, "FDV: <b>$%s</b>\n", fmtDecimal(metrics.FDVUSD))
		} else {
			fmt.Fprintf(&b, "FDV: <b>%s native</b>\n", fmtDecimal(metrics.FDVNative))
		}
	}

	if specs.HasData {
		b.WriteString("\n<b>Fees</b>\n")
		if specs.Reflect > 0 {
			fmt.Fprintf(&b, "Reflect: %s (reward %s, auto-LP %s, gamble %s, dev %s)\n",
				fmtPct(specs.Reflect), fmtPct(specs.Reward), fmtPct(specs.AutoLP),
				fmtPct(specs.Gamble), fmtPct(specs.Dev))
		} else {
			if specs.AutoLP > 0 {
				fmt.Fprintf(&b, "Auto-LP: %s\n", fmtPct(specs.AutoLP))
			}
			if specs.Gamble > 0 {
				fmt.Fprintf(&b, "Gamble: %s\n", fmtPct(specs.Gamble))
			}
			if specs.Dev > 0 {
				fmt.Fprintf(&b, "Dev fee: %s\n", fmtPct(specs.Dev))
			}
		}
	}

	if lines := mechanismLines(mech, preferred); len(lines) > 0 {
		b.WriteString("\n<b>Mechanics</b>\n")
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	fmt.Fprintf(&b, "\n<a href=\"%s\">Transaction</a>", txURL(explorerBase, fact.TxHash))

	return b.String(), launchButtons(fact, socials, explorerBase)
}

// FormatLock renders a settings-lock notice.
func FormatLock(lock *model.Lock, explorerBase string) (string, []Button) {
	var b strings.Builder
	b.WriteString("<b>🔒 Settings locked</b>\n\n")
	if lock.Subject != nil {
		fmt.Fprintf(&b, "Contract: <code>%s</code>\n", lock.Subject.Hex())
	}
	fmt.Fprintf(&b, "<a href=\"%s\">Transaction</a>", txURL(explorerBase, lock.TxHash))

	buttons := []Button{{Label: "Transaction", URL: txURL(explorerBase, lock.TxHash)}}
	if lock.Subject != nil {
		buttons = append([]Button{{Label: "Contract", URL: addressURL(explorerBase, *lock.Subject)}}, buttons...)
	}
	return b.String(), buttons
}

var mechanismLabels = []struct {
	key   string
	label string
	pct   bool
}{
	{model.MechBurnBuy, "Burn on buy", true},
	{model.MechBurnSell, "Burn on sell", true},
	{model.MechDailyPumpCap, "Daily pump cap", true},
	{model.MechMaxWallet, "Max wallet", true},
	{model.MechMaxTx, "Max tx", true},
	{model.MechAPY, "APY", true},
	{model.MechDeathTimer, "Death timer", false},
}

var flagLabels = []struct {
	key   string
	label string
}{
	{model.MechAntibot, "Antibot"},
	{model.MechTradingEnabled, "Trading enabled"},
	{model.MechEthReflect, "Native reflections"},
	{model.MechGambleEnabled, "Gamble active"},
}

func mechanismLines(mech *model.Mechanism, preferred map[string]int64) []string {
	if mech == nil {
		return nil
	}
	var lines []string
	for _, entry := range mechanismLabels {
		if !mech.HasNumber(entry.key) {
			continue
		}
		if entry.pct {
			if pct, ok := probe.ResolvePct(mech, entry.key, preferred); ok && pct > 0 {
				lines = append(lines, fmt.Sprintf("%s: %s", entry.label, fmtPct(pct)))
			}
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", entry.label, mech.Numbers[entry.key].String()))
	}
	for _, entry := range flagLabels {
		if !mech.HasFlag(entry.key) {
			continue
		}
		state := "no"
		if mech.Flags[entry.key] {
			state = "yes"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", entry.label, state))
	}
	return lines
}

var socialLabels = map[string]string{
	model.SocialWebsite:  "Website",
	model.SocialTwitter:  "Twitter",
	model.SocialTelegram: "Telegram",
	model.SocialDiscord:  "Discord",
}

func launchButtons(fact *model.Launch, socials model.SocialSet, explorerBase string) []Button {
	buttons := []Button{{Label: "Token", URL: addressURL(explorerBase, fact.Token)}}
	if fact.HasPair() {
		buttons = append(buttons, Button{Label: "Pair", URL: addressURL(explorerBase, fact.Pair)})
	}
	for _, category := range model.SocialCategories {
		if url := socials[category]; url != "" {
			buttons = append(buttons, Button{Label: socialLabels[category], URL: url})
		}
	}
	return buttons
}

func addressURL(base string, addr common.Address) string {
	return strings.TrimRight(base, "/") + "/address/" + addr.Hex()
}

func txURL(base string, hash common.Hash) string {
	return strings.TrimRight(base, "/") + "/tx/" + hash.Hex()
}

// fmtPct renders a percentage without trailing zeros.
func fmtPct(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s + "%"
}

// fmtDecimal rounds for display and drops trailing zeros.
func fmtDecimal(d decimal.Decimal) string {
	s := d.Round(2).String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}
