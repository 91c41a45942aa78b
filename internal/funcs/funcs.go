package funcs

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/exp/constraints"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TemplateFuncs is made available to all email templates rendered by the
// mailer.
var TemplateFuncs = map[string]any{
	"formatTime":    formatTime,
	"formatUSDT":    formatUSDT,
	"formatMXI":     formatMXI,
	"formatInt":     formatInt[int],
	"formatInt64":   formatInt[int64],
	"formatFloat":   formatFloat,
	"titleCase":     titleCase,
	"upper":         strings.ToUpper,
	"lower":         strings.ToLower,
	"shortenTxHash": shortenTxHash,
}

func formatTime(format string, t time.Time) string {
	return t.Format(format)
}

func formatUSDT(amount float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%.2f USDT", amount)
}

func formatMXI(amount float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%.4f MXI", amount)
}

func formatInt[T constraints.Integer](n T) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d", n)
}

func formatFloat(f float64, dp int) string {
	p := message.NewPrinter(language.English)
	format := "%." + fmt.Sprint(dp) + "f"
	return p.Sprintf(format, f)
}

func titleCase(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}

	runes[0] = unicode.ToTitle(runes[0])
	return string(runes)
}

// shortenTxHash renders a transaction hash as 0x1234…abcd for display in
// emails.
func shortenTxHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:10] + "…" + hash[len(hash)-4:]
}
