// Package format renders numbers for display with thousands separators.
package format

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Int formats n with thousands separators, e.g. 12345 -> "12,345".
func Int(n int64) string {
	return printer.Sprintf("%d", n)
}

// Decimal formats f with thousands separators and at most two decimals,
// dropping trailing zeros: 1234.5 -> "1,234.5", 3 -> "3".
func Decimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + s
	}
	frac = strings.TrimRight(frac, "0")
	out := sign + Int(n)
	if frac != "" {
		out += "." + frac
	}
	if out == "-0" {
		return "0"
	}
	return out
}
