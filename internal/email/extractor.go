package email

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finrota/bankfeed/internal/domain"
	"github.com/finrota/bankfeed/internal/moneyparse"
)

var (
	// ErrTemplateMismatch marks an email matching none of the value
	// templates. Fatal for that email only.
	ErrTemplateMismatch = errors.New("email matches no transaction template")

	// ErrDirectionUnresolved marks an email that matched a value template but
	// carries no inbound/outbound signal in subject or body. Direction is
	// mandatory and never guessed.
	ErrDirectionUnresolved = errors.New("transfer direction could not be inferred")
)

// valueTemplate is one entry of the ordered template table; the first
// template that matches wins and sets the transaction type tag.
type valueTemplate struct {
	txType  string
	pattern *regexp.Regexp
}

// The banks phrase each rail slightly differently but share the skeleton
// "<account> hesabınıza/hesabınızdan, <datetime> tarihinde, <name> isimli
// kişiden/kişiye <amount> <currency> <rail> gelmiştir/gönderilmiştir".
func railTemplate(railPhrase string) *regexp.Regexp {
	return regexp.MustCompile(
		`(?P<account>[A-Z0-9][A-Z0-9*.]*)\s+hesab[ıi]n[ıi]z(?:a|dan)?,?\s*` +
			`(?P<datetime>\d{2}/\d{2}/\d{4}\s+\d{2}:\d{2}:\d{2})\s+tarihinde,?\s*` +
			`(?P<name>.+?)\s+isimli\s+ki[şs]i(?:den|ye)?\s+` +
			`(?P<amount>-?[\d.,]+)\s*(?P<currency>[A-Z]{2,3})\s+` +
			railPhrase + `\s+(?:gelmi[şs]tir|gönderilmi[şs]tir|gerçekle[şs]mi[şs]tir)`)
}

var valueTemplates = []valueTemplate{
	{"FAST", railTemplate(`FAST\s+ödemesi`)},
	{"HAVALE", railTemplate(`(?i:havale(?:si)?)`)},
	{"EFT", railTemplate(`EFT(?:\s+ödemesi)?`)},
}

// balanceTemplate optionally extracts the post-transaction balance.
var balanceTemplate = regexp.MustCompile(
	`(?i)(?:kullanılabilir\s+)?bakiye(?:niz)?\s*:?\s*(?P<balance>-?[\d.,]+)\s*(?P<currency>[A-Z]{2,3})?`)

// Only a full unmasked IBAN is kept verbatim; masked accounts are not.
var ibanAccountPattern = regexp.MustCompile(`^TR\d{24}$`)

// Direction keywords, checked in the subject first and only then the body.
var (
	subjectInbound  = []string{"gelen", "hesabınıza"}
	subjectOutbound = []string{"giden", "hesabınızdan"}
	bodyInbound     = []string{"hesabınıza", "gelmiştir", "girişi", "kişiden"}
	bodyOutbound    = []string{"hesabınızdan", "gönderilmiştir", "çıkışı", "kişiye"}
)

const emailTimeFormat = "02/01/2006 15:04:05"

// Extract applies the ordered template table to the message and returns the
// transaction it describes. The message body must already be cleaned (see
// CleanBody).
func Extract(msg Message) (*domain.Transaction, error) {
	var (
		matched *valueTemplate
		groups  map[string]string
	)
	for i := range valueTemplates {
		if g := namedGroups(valueTemplates[i].pattern, msg.Body); g != nil {
			matched = &valueTemplates[i]
			groups = g
			break
		}
	}
	if matched == nil {
		return nil, ErrTemplateMismatch
	}

	direction, err := inferDirection(msg.Subject, msg.Body)
	if err != nil {
		return nil, err
	}

	ts, err := time.Parse(emailTimeFormat, groups["datetime"])
	if err != nil {
		return nil, fmt.Errorf("parsing notification timestamp %q: %w", groups["datetime"], err)
	}

	amount := moneyparse.Parse(groups["amount"]).Abs()
	name := strings.TrimSpace(groups["name"])

	tx := &domain.Transaction{
		Timestamp:        ts,
		Currency:         groups["currency"],
		Direction:        direction,
		CounterpartyName: name,
		TransactionType:  matched.txType,
		Confidence:       1.0,
		SourceRaw:        msg.Body,
	}
	if direction == domain.DirectionIn {
		tx.Credit = amount
		tx.Debit = decimal.Zero
		tx.Description = fmt.Sprintf("Gelen %s - %s", matched.txType, name)
	} else {
		tx.Debit = amount
		tx.Credit = decimal.Zero
		tx.Description = fmt.Sprintf("Giden %s - %s", matched.txType, name)
	}

	if ibanAccountPattern.MatchString(groups["account"]) {
		tx.CounterpartyIBAN = groups["account"]
	}

	if bal := namedGroups(balanceTemplate, msg.Body); bal != nil {
		tx.BalanceAfter = moneyparse.Parse(bal["balance"])
		tx.BalanceCurrency = bal["currency"]
		if tx.BalanceCurrency == "" {
			tx.BalanceCurrency = tx.Currency
		}
	}

	return tx, nil
}

func inferDirection(subject, body string) (domain.Direction, error) {
	subjectLower := strings.ToLower(subject)
	if containsAny(subjectLower, subjectInbound) {
		return domain.DirectionIn, nil
	}
	if containsAny(subjectLower, subjectOutbound) {
		return domain.DirectionOut, nil
	}

	bodyLower := strings.ToLower(body)
	if containsAny(bodyLower, bodyInbound) {
		return domain.DirectionIn, nil
	}
	if containsAny(bodyLower, bodyOutbound) {
		return domain.DirectionOut, nil
	}

	return "", ErrDirectionUnresolved
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func namedGroups(re *regexp.Regexp, s string) map[string]string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = m[i]
		}
	}
	return groups
}
