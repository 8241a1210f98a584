package flow

import (
	"errors"
	"regexp"
	"strings"

	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
	"github.com/shopspring/decimal"
)

var ErrDepositUnreadable = errors.New("deposit text not recognized")

var (
	depositAmountLabeledRe = regexp.MustCompile(`(?i)(?:amount|total|mmk|ks)[:\s]*([0-9][0-9,]*(?:\.[0-9]+)?)`)
	depositAmountBareRe    = regexp.MustCompile(`([0-9][0-9,]{2,}(?:\.[0-9]+)?)`)
	depositReferenceRe     = regexp.MustCompile(`(?i)(?:ref(?:erence)?\s*(?:no|number)?|txn|transaction\s*(?:id|no)?)[:\s#.]*([A-Za-z0-9][A-Za-z0-9-]{3,})`)
)

// ParseDepositText extracts the amount and an optional transfer reference
// from a pasted bank confirmation. A labeled amount wins; otherwise the first
// figure of at least three digits is taken. Anything less is unreadable and
// the attendant is asked to paste the full confirmation.
func ParseDepositText(text string) (decimal.Decimal, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, "", ErrDepositUnreadable
	}

	var raw string
	if m := depositAmountLabeledRe.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else if m := depositAmountBareRe.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else {
		return decimal.Zero, "", ErrDepositUnreadable
	}
	amount, err := utils.ParseDecimal(raw)
	if err != nil || amount.IsZero() || amount.IsNegative() {
		return decimal.Zero, "", ErrDepositUnreadable
	}

	reference := ""
	if m := depositReferenceRe.FindStringSubmatch(text); m != nil {
		reference = m[1]
	}
	return amount, reference, nil
}
