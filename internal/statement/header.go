package statement

import (
	"regexp"
	"strings"
	"time"

	"github.com/finrota/bankfeed/internal/domain"
	"github.com/finrota/bankfeed/internal/moneyparse"
)

var (
	holderPattern  = regexp.MustCompile(`(?i)^(?:Hesap Sahibi|Müşteri Adı(?:\s*/\s*No)?)\s*[:\-]?\s*(.+)$`)
	periodPattern  = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s*-\s*(\d{2}/\d{2}/\d{4})`)
	openingPattern = regexp.MustCompile(`(?i)Açılış Bakiyesi\s*:?\s*(-?[\d.,]+)\s*([A-Z]{2,3})?`)
	closingPattern = regexp.MustCompile(`(?i)Kapanış Bakiyesi\s*:?\s*(-?[\d.,]+)\s*([A-Z]{2,3})?`)
)

const headerDateFormat = "02/01/2006"

// ExtractAccountInfo pulls the statement header context (holder, IBAN,
// period, opening/closing balance) from the lines before the first record
// anchor. The result is reporting context only; reconciliation never reads
// it.
func ExtractAccountInfo(text string) domain.AccountInfo {
	var info domain.AccountInfo

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if anchorPattern.MatchString(line) {
			// Header region ends at the first transaction record.
			break
		}

		if info.HolderName == "" {
			if m := holderPattern.FindStringSubmatch(line); m != nil {
				info.HolderName = strings.TrimSpace(m[1])
			}
		}
		if info.IBAN == "" {
			if m := ibanPattern.FindString(line); m != "" {
				info.IBAN = m
			}
		}
		if info.PeriodStart.IsZero() {
			if m := periodPattern.FindStringSubmatch(line); m != nil {
				start, err1 := time.Parse(headerDateFormat, m[1])
				end, err2 := time.Parse(headerDateFormat, m[2])
				if err1 == nil && err2 == nil {
					info.PeriodStart = start
					info.PeriodEnd = end
				}
			}
		}
		if m := openingPattern.FindStringSubmatch(line); m != nil {
			info.OpeningBalance = moneyparse.Parse(m[1])
			if info.Currency == "" {
				info.Currency = m[2]
			}
		}
		if m := closingPattern.FindStringSubmatch(line); m != nil {
			info.ClosingBalance = moneyparse.Parse(m[1])
			if info.Currency == "" {
				info.Currency = m[2]
			}
		}
	}

	return info
}
