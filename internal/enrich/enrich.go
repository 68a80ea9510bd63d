// Package enrich classifies transactions into category tags via an ordered
// rule table and extracts counterparty name and IBAN from the description.
package enrich

import (
	"regexp"
	"strings"

	"github.com/finrota/bankfeed/internal/domain"
)

type ruleTag int

const (
	tagIncoming ruleTag = iota
	tagOutgoing
	tagFee
	tagPointOfSale
	tagInvoice
)

// categoryRules is evaluated top to bottom against the concatenation of
// operation, direction and description. Keeping the rules as a flat table
// keeps the set testable in isolation.
var categoryRules = []struct {
	pattern *regexp.Regexp
	tag     ruleTag
}{
	{regexp.MustCompile(`(?i)\bgelen\b|hesabınıza|girişi`), tagIncoming},
	{regexp.MustCompile(`(?i)\bgiden\b|hesabınızdan|çıkışı`), tagOutgoing},
	{regexp.MustCompile(`(?i)ücret|komisyon|bsmv|kkdf|vergi|masraf`), tagFee},
	{regexp.MustCompile(`(?i)\bpos\b|alışveriş|kartı`), tagPointOfSale},
	{regexp.MustCompile(`(?i)fatura|elektrik|doğalgaz|telekom|\bsu\b`), tagInvoice},
}

// First-matching-class priority: incoming > outgoing > fee > point-of-sale >
// invoice > other.
var tagPriority = []struct {
	tag      ruleTag
	category domain.Category
}{
	{tagIncoming, domain.CategoryInboundTransfer},
	{tagOutgoing, domain.CategoryOutboundTransfer},
	{tagFee, domain.CategoryFeeTax},
	{tagPointOfSale, domain.CategoryPointOfSale},
	{tagInvoice, domain.CategoryUtilityBill},
}

var (
	ibanPattern = regexp.MustCompile(`TR\d{2}(?:\s?\d{4}){5}\s?\d{2}|TR\d{24}`)

	// "Gelen FAST - " / "Giden EFT - " style direction+operation prefix.
	counterpartyPrefix = regexp.MustCompile(`(?i)(?:gelen|giden)\s+(?:fast|havale|eft)\s*-\s*`)

	separatorSplit = regexp.MustCompile(`\s*[-|/;]\s*`)
)

// Enrich classifies the transaction and fills counterparty fields that the
// parser left empty. It never overwrites fields already set by the email
// extractor.
func Enrich(tx *domain.Transaction) {
	tx.Category = Classify(tx.TransactionType, tx.Direction, tx.Description)
	if tx.Subcategory == "" && tx.TransactionType != "" {
		tx.Subcategory = strings.ToLower(tx.TransactionType)
	}

	if tx.CounterpartyIBAN == "" {
		tx.CounterpartyIBAN = ExtractIBAN(tx.Description)
	}
	if tx.CounterpartyName == "" {
		tx.CounterpartyName = ExtractCounterpartyName(tx.Description)
	}
}

// Classify runs the ordered rule table over operation+direction+description
// and derives the category from the matched tags.
func Classify(operation string, direction domain.Direction, description string) domain.Category {
	subject := operation + " " + string(direction) + " " + description

	matched := make(map[ruleTag]bool)
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(subject) {
			matched[rule.tag] = true
		}
	}

	for _, p := range tagPriority {
		if matched[p.tag] {
			return p.category
		}
	}
	return domain.CategoryOther
}

// ExtractIBAN returns the first IBAN found in the description, verbatim.
func ExtractIBAN(description string) string {
	return ibanPattern.FindString(description)
}

// ExtractCounterpartyName locates the direction+operation prefix and takes
// the text up to the next separator; without such a prefix it falls back to
// the second separator-delimited segment. Names shorter than 2 characters
// are noise and treated as absent.
func ExtractCounterpartyName(description string) string {
	var candidate string

	if loc := counterpartyPrefix.FindStringIndex(description); loc != nil {
		rest := description[loc[1]:]
		if sep := separatorSplit.FindStringIndex(rest); sep != nil {
			rest = rest[:sep[0]]
		}
		candidate = rest
	} else {
		segments := separatorSplit.Split(description, -1)
		if len(segments) >= 2 {
			candidate = segments[1]
		}
	}

	candidate = strings.TrimSpace(ibanPattern.ReplaceAllString(candidate, ""))
	if len([]rune(candidate)) < 2 {
		return ""
	}
	return candidate
}
