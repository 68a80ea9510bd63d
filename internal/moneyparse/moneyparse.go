// Package moneyparse parses locale-formatted monetary strings into exact
// decimal values. It is a lossy-tolerant boundary parser: unparseable input
// yields zero, never an error, so callers must not assume a non-zero result
// implies success.
package moneyparse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var trailingSingleDecimal = regexp.MustCompile(`,(\d)$`)

// Parse converts strings like "1.234,56", "2.365.792,5" or "-500,00 TL" to a
// decimal. Thousand separators may be dots or non-breaking spaces, the
// decimal separator is a comma. A leading minus anywhere in the original
// string makes the result negative.
func Parse(s string) decimal.Decimal {
	negative := strings.Contains(s, "-")

	// Strip currency symbols, letters and every kind of space; keep only
	// digits and the two separator characters.
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero
	}

	// "2,5" means two and a half, pad to two decimal digits.
	cleaned = trailingSingleDecimal.ReplaceAllString(cleaned, ",${1}0")

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		// Last comma is the decimal separator, every dot is a thousands
		// separator.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = replaceLast(cleaned, ",", ".")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case hasComma:
		cleaned = replaceLast(cleaned, ",", ".")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case strings.Count(cleaned, ".") > 1:
		// Multiple dots and no comma: the last dot is decimal, earlier ones
		// are thousands separators.
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		d = d.Neg()
	}
	return d
}

func replaceLast(s, old, new string) string {
	i := strings.LastIndex(s, old)
	if i < 0 {
		return s
	}
	return s[:i] + new + s[i+len(old):]
}
