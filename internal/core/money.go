// Package core holds the pure domain of the household ledger: entry and
// account types, amount parsing, category classification, deduplication,
// aggregation and the budget alert state machine. Nothing in this package
// performs I/O.
package core

import (
	"strconv"
	"strings"
)

// NormalizeDigits converts full-width digits, commas and signs to their
// ASCII equivalents. Card-issuer mails and LINE messages freely mix the two
// widths, so every numeric field passes through here before parsing.
func NormalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '０' && r <= '９':
			b.WriteRune(r - '０' + '0')
		case r == '，':
			b.WriteRune(',')
		case r == '－':
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseYen parses an amount string into signed whole yen. Grouping commas
// (either width) and full-width digits are accepted; a leading minus is kept
// so callers can detect refunds. Fractional amounts are not supported.
func ParseYen(s string) (int64, error) {
	s = NormalizeDigits(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "円")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
