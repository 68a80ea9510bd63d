package statement

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/finrota/bankfeed/internal/domain"
	"github.com/finrota/bankfeed/internal/moneyparse"
)

var (
	// ErrTooFewTokens marks a record with fewer than two numeric tokens; the
	// record is dropped and counted, never fatal for the batch.
	ErrTooFewTokens = errors.New("record has fewer than two numeric tokens")

	// ErrNoValue marks a record whose amount and balance both parse to zero.
	ErrNoValue = errors.New("record carries no value movement")
)

var (
	anchorCapture = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})\s*(\d{2}):(\d{2}):(\d{2})\s*`)

	// Two trailing "amount + optional currency code" groups anchored at the
	// end of the record: the first pair is the transaction amount, the second
	// is the post-transaction balance.
	amountPairPattern = regexp.MustCompile(`(-?[\d.,]+)\s*([A-Z]{2,3})?\s+(-?[\d.,]+)\s*([A-Z]{2,3})?\s*$`)

	numericTokenPattern = regexp.MustCompile(`-?\d[\d.,]*`)

	ibanPattern = regexp.MustCompile(`TR\d{2}(?:\s?\d{4}){5}\s?\d{2}|TR\d{24}`)

	longDigitRun = regexp.MustCompile(`\d{10,}`)

	multiSpace = regexp.MustCompile(`\s+`)
)

// Channel names and operation noise the banks prepend to descriptions.
var boilerplateTokens = []string{
	"İnternet - Mobil",
	"İnternet/Mobil",
	"Mobil Şube",
	"İnternet Şube",
	"Şube",
	"ATM",
	"Diğer",
}

// ParseRecord extracts one transaction from a candidate record. The trailing
// amount/balance block is located by scanning from the right; the text before
// it, with the date-time anchor stripped, becomes the description.
func ParseRecord(rec RawRecord, defaultCurrency string) (*domain.Transaction, error) {
	anchor := anchorCapture.FindStringSubmatch(rec.Text)
	if anchor == nil {
		return nil, fmt.Errorf("record at line %d: no date-time anchor", rec.Line)
	}
	ts, err := anchorTime(anchor)
	if err != nil {
		return nil, fmt.Errorf("record at line %d: %w", rec.Line, err)
	}

	body := rec.Text[len(anchor[0]):]

	var (
		amountStr, amountCur   string
		balanceStr, balanceCur string
		desc                   string
	)

	if loc := amountPairPattern.FindStringSubmatchIndex(body); loc != nil {
		groups := amountPairPattern.FindStringSubmatch(body[loc[0]:])
		amountStr, amountCur = groups[1], groups[2]
		balanceStr, balanceCur = groups[3], groups[4]
		desc = body[:loc[0]]
	} else {
		// Fall back to the last two bare numeric tokens with the default
		// currency.
		tokens := numericTokenPattern.FindAllStringIndex(body, -1)
		if len(tokens) < 2 {
			return nil, ErrTooFewTokens
		}
		amountTok := tokens[len(tokens)-2]
		balanceTok := tokens[len(tokens)-1]
		amountStr = body[amountTok[0]:amountTok[1]]
		balanceStr = body[balanceTok[0]:balanceTok[1]]
		desc = body[:amountTok[0]]
	}

	amount := moneyparse.Parse(amountStr)
	balance := moneyparse.Parse(balanceStr)
	if amount.IsZero() && balance.IsZero() {
		return nil, ErrNoValue
	}

	if amountCur == "" {
		amountCur = defaultCurrency
	}
	if balanceCur == "" {
		balanceCur = amountCur
	}

	tx := &domain.Transaction{
		Timestamp:       ts,
		Description:     CleanDescription(desc),
		Currency:        amountCur,
		BalanceAfter:    balance,
		BalanceCurrency: balanceCur,
		Confidence:      1.0,
		SourceRaw:       rec.Text,
		SourceLine:      rec.Line,
	}
	tx.SetSignedAmount(amount)

	return tx, nil
}

// CleanDescription strips channel boilerplate, collapses long reference
// number runs while preserving IBANs verbatim, and normalizes whitespace.
func CleanDescription(desc string) string {
	for _, tok := range boilerplateTokens {
		desc = strings.ReplaceAll(desc, tok, " ")
	}
	desc = collapseNonIBANDigits(desc)
	desc = multiSpace.ReplaceAllString(desc, " ")
	return strings.TrimSpace(desc)
}

// collapseNonIBANDigits removes 10+ digit runs that are reference-number
// noise, leaving digit runs inside IBAN spans untouched.
func collapseNonIBANDigits(s string) string {
	ibans := ibanPattern.FindAllStringIndex(s, -1)
	runs := longDigitRun.FindAllStringIndex(s, -1)
	if len(runs) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, run := range runs {
		if insideAny(run, ibans) {
			continue
		}
		b.WriteString(s[last:run[0]])
		last = run[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func insideAny(run []int, spans [][]int) bool {
	for _, span := range spans {
		if run[0] >= span[0] && run[1] <= span[1] {
			return true
		}
	}
	return false
}

func anchorTime(groups []string) (time.Time, error) {
	stamp := fmt.Sprintf("%s/%s/%s %s:%s:%s",
		groups[1], groups[2], groups[3], groups[4], groups[5], groups[6])
	ts, err := time.Parse("02/01/2006 15:04:05", stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", stamp, err)
	}
	return ts, nil
}
