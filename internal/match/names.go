package match

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Legal-form suffixes dropped during name normalization; matching keys on the
// distinctive part of the name.
var corporateSuffixes = map[string]bool{
	"aş":      true,
	"as":      true,
	"ltd":     true,
	"şti":     true,
	"sti":     true,
	"limited": true,
	"anonim":  true,
	"şirketi": true,
	"sirketi": true,
	"holding": true,
	"inc":     true,
	"co":      true,
}

// The "Sanayi ve Ticaret" boilerplate is dropped only as a compound phrase.
// A standalone "Ticaret" after a proper name is the distinctive trade name
// ("Yılmaz Ticaret") and must survive.
var compoundSuffixes = []string{
	"sanayi ve ticaret",
	"san ve tic",
}

// nameScore compares a transaction counterparty name with one customer name
// and returns the confidence plus the contributing heuristic. Exactly equal
// normalized names score 1.0; otherwise edit-distance similarity >= 0.8,
// first-token equality at 0.7, or matching initials at 0.6.
func nameScore(txName, customerName string) (float64, string) {
	a := normalizeName(txName)
	b := normalizeName(customerName)
	if a == "" || b == "" {
		return 0, ""
	}

	if a == b {
		return 1.0, "name_exact"
	}

	if sim := similarity(a, b); sim >= 0.8 {
		return sim, "name_similarity"
	}

	aTokens := strings.Fields(a)
	bTokens := strings.Fields(b)
	if len(aTokens) > 0 && len(bTokens) > 0 && aTokens[0] == bTokens[0] {
		return 0.7, "first_word_match"
	}

	if initials(aTokens) == initials(bTokens) {
		return 0.6, "initials_match"
	}

	return 0, ""
}

// similarity is the classic edit-distance ratio (maxLen - distance) / maxLen
// over runes. It is symmetric in its arguments.
func similarity(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}

// normalizeName lowercases with Turkish I handling, drops corporate suffix
// tokens and strips everything that is not a letter or space.
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		r = foldTurkishLower(r)
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	s := strings.Join(strings.Fields(b.String()), " ")
	for _, phrase := range compoundSuffixes {
		s = strings.ReplaceAll(s, phrase, " ")
	}

	var kept []string
	for _, token := range strings.Fields(s) {
		if corporateSuffixes[token] {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

// foldTurkishLower lowercases one rune under Turkish casing: dotless I maps
// to ı and dotted İ to i, so "YILMAZ" and "Yılmaz" normalize identically.
// strings.ToLower would fold I to i and İ to i plus a combining dot, losing
// exact equality for the most common name renditions.
func foldTurkishLower(r rune) rune {
	switch r {
	case 'I':
		return 'ı'
	case 'İ':
		return 'i'
	}
	return unicode.ToLower(r)
}

func initials(tokens []string) string {
	var b strings.Builder
	for _, token := range tokens {
		for _, r := range token {
			b.WriteRune(r)
			break
		}
	}
	return b.String()
}
