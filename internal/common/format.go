package common

import (
	"strings"

	"github.com/shopspring/decimal"
)

// groupThousands inserts comma separators into a string of digits.
func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",")
}

// FormatMoney formats a decimal as a dollar amount with comma separators,
// rounded half away from zero to cents.
func FormatMoney(v decimal.Decimal) string {
	negative := v.Round(2).IsNegative()
	s := v.Abs().StringFixed(2)
	whole, cents, _ := strings.Cut(s, ".")

	out := "$" + groupThousands(whole) + "." + cents
	if negative {
		return "-" + out
	}
	return out
}

// FormatSignedMoney formats a dollar amount with +/- prefix
func FormatSignedMoney(v decimal.Decimal) string {
	if !v.Round(2).IsNegative() {
		return "+" + FormatMoney(v)
	}
	return FormatMoney(v)
}

// FormatPct formats a percentage to two decimals.
func FormatPct(v decimal.Decimal) string {
	return v.StringFixed(2) + "%"
}

// FormatSignedPct formats a percentage with +/- prefix
func FormatSignedPct(v decimal.Decimal) string {
	if !v.Round(2).IsNegative() {
		return "+" + FormatPct(v)
	}
	return FormatPct(v)
}

// FormatQuantity formats a share quantity without trailing zeros.
func FormatQuantity(v decimal.Decimal) string {
	return v.String()
}
