// Package statement turns raw extracted statement text into normalized
// transactions: a segmenter splits the text into candidate records on a
// date-time anchor, and a field parser pulls timestamp, description, amount
// and running balance out of each record.
package statement

import (
	"regexp"
	"strings"
)

// RawRecord is one candidate transaction string plus its originating line
// index, kept for diagnostics.
type RawRecord struct {
	Text string
	Line int
}

var (
	// A record starts at a date-time anchor like "11/08/2025 17:39:14".
	anchorPattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}\s*\d{2}:\d{2}:\d{2}`)

	// Page footers like "3/12".
	pageFooterPattern = regexp.MustCompile(`^\d+/\d+$`)
)

// Fixed banner lines that statements repeat on every page.
var boilerplatePrefixes = []string{
	"Tarih Aralığı",
	"Müşteri Adı",
	"Hesap Hareketleri",
	"Tarih Açıklama",
}

// Segment splits statement text into candidate transaction records. A line
// matching the date-time anchor opens a new record; any other line is
// appended to the currently open record, which stitches transactions that
// wrap across physical lines. Lines before the first anchor are dropped.
func Segment(text string) []RawRecord {
	var records []RawRecord
	open := -1

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || pageFooterPattern.MatchString(line) || isBoilerplateLine(line) {
			continue
		}

		if anchorPattern.MatchString(line) {
			records = append(records, RawRecord{Text: line, Line: i})
			open = len(records) - 1
			continue
		}

		if open < 0 {
			// No open record to append to.
			continue
		}
		records[open].Text += " " + line
	}

	return records
}

func isBoilerplateLine(line string) bool {
	for _, prefix := range boilerplatePrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
