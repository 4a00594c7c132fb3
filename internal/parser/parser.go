// Package parser turns raw card-issuer notification mails and manual texts
// into candidate ledger entries. Dispatch is an explicit ordered list of
// issuer rule sets; within a rule set each field is extracted by trying its
// ordered pattern list and taking the first match.
package parser

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

// Message is one inbound notification from the message source.
type Message struct {
	ID       string
	Sender   string
	Subject  string
	Body     string
	Received time.Time
}

// MerchantResolver disambiguates a generic issuer placeholder label using
// secondary sources. Implementations must never fail the pipeline; a miss is
// reported as ok=false.
type MerchantResolver interface {
	Resolve(ctx context.Context, at time.Time) (label string, ok bool)
}

// RuleSet holds the ordered extraction patterns for one issuer. Date, amount
// and merchant are extracted independently; a candidate is emitted only when
// date and amount both resolve.
type RuleSet struct {
	Issuer string
	// Match decides whether this rule set handles the message.
	Match func(sender, subject string) bool
	// Skip rejects known non-transactional subjects before extraction.
	Skip func(subject string) bool
	// Account names the ledger account for the sender.
	Account func(sender string) string

	DatePatterns     []*regexp.Regexp
	AmountPatterns   []*regexp.Regexp
	MerchantPatterns []*regexp.Regexp
}

// Parser extracts ledger entries from notification messages.
type Parser struct {
	rules      []RuleSet
	classifier *core.Classifier
	resolver   MerchantResolver
	logger     *log.Logger
}

// New creates a parser over the given rule sets. resolver may be nil, in
// which case generic merchant placeholders are kept as-is.
func New(rules []RuleSet, classifier *core.Classifier, resolver MerchantResolver, logger *log.Logger) *Parser {
	if classifier == nil {
		classifier = core.DefaultClassifier()
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentParser)
	}
	return &Parser{rules: rules, classifier: classifier, resolver: resolver, logger: logger}
}

// NewDefault creates a parser with the built-in issuer rule sets.
func NewDefault(classifier *core.Classifier, resolver MerchantResolver, logger *log.Logger) *Parser {
	return New(DefaultRuleSets(), classifier, resolver, logger)
}

// placeholderMerchant matches generic network-brand labels that name the
// card network instead of the shop.
var placeholderMerchant = regexp.MustCompile(`加盟店|Mastercard|Visa|JCB`)

const (
	memoMaxRunes    = 50
	snippetMaxRunes = 200
	estimatedSuffix = "（推定）"
	refundPrefix    = "【返金】"
)

// Parse extracts a candidate entry from a message. A nil entry with ok=false
// means the message produced no candidate; that is not an error.
func (p *Parser) Parse(ctx context.Context, msg Message) (*core.LedgerEntry, bool) {
	sender := strings.ToLower(msg.Sender)
	body := core.NormalizeDigits(msg.Body)

	for _, rs := range p.rules {
		if !rs.Match(sender, msg.Subject) {
			continue
		}
		if rs.Skip != nil && rs.Skip(msg.Subject) {
			p.logger.Debug("non-transactional subject skipped",
				log.FieldSubject, truncateRunes(msg.Subject, 60),
				"issuer", rs.Issuer)
			return nil, false
		}
		return p.extract(ctx, rs, sender, msg.Subject, body)
	}
	return nil, false
}

func (p *Parser) extract(ctx context.Context, rs RuleSet, sender, subject, body string) (*core.LedgerEntry, bool) {
	date, occurredAt, dateOK := extractDate(rs.DatePatterns, body)
	amount, amountOK := extractAmount(rs.AmountPatterns, body)
	if !dateOK || !amountOK {
		// Unresolved date or amount is a parse miss, not an error. The
		// truncated snippet goes to the log for rule tuning.
		p.logger.Warn("extraction failed",
			"issuer", rs.Issuer,
			"date_ok", dateOK,
			"amount_ok", amountOK,
			"body_snippet", truncateRunes(body, snippetMaxRunes))
		return nil, false
	}

	memo, merchantOK := extractMerchant(rs.MerchantPatterns, body)
	if !merchantOK {
		memo = rs.Issuer + "利用"
	}

	hint := memo
	if merchantOK && p.resolver != nil && placeholderMerchant.MatchString(memo) {
		if label, ok := p.resolver.Resolve(ctx, occurredAt); ok {
			hint = label
			memo = truncateRunes(label, memoMaxRunes-len([]rune(estimatedSuffix))) + estimatedSuffix
		}
	}

	entry := core.LedgerEntry{
		At:      occurredAt,
		Flow:    core.FlowExpense,
		Method:  core.MethodCardAuto,
		Account: rs.Account(sender),
	}
	if amount < 0 {
		// A negative amount is a refund: the flow flips to income and the
		// magnitude is kept positive.
		entry.Flow = core.FlowIncome
		entry.Amount = core.Money{Yen: -amount}
		entry.Category = core.CategoryRefund
		entry.Memo = refundPrefix + memo
	} else {
		entry.Amount = core.Money{Yen: amount}
		entry.Category = p.classifier.Classify(hint)
		entry.Memo = memo
	}
	entry = entry.Normalized()

	p.logger.Debug("candidate extracted",
		"issuer", rs.Issuer,
		log.FieldDate, date.String(),
		log.FieldAmountYen, entry.Amount.Yen,
		log.FieldMemo, entry.Memo,
		log.FieldCategory, entry.Category)
	return &entry, true
}

// extractDate tries the ordered date patterns and returns the calendar day
// plus the best-known occurrence time. When the pattern carries no
// time-of-day, noon is assumed so context windows stay centered in the day.
func extractDate(patterns []*regexp.Regexp, body string) (core.Date, time.Time, bool) {
	groups, ok := firstMatch(patterns, body)
	if !ok {
		return core.Date{}, time.Time{}, false
	}

	var date core.Date
	switch {
	case groups["date"] != "":
		d, err := core.ParseDate(groups["date"])
		if err != nil {
			return core.Date{}, time.Time{}, false
		}
		date = d
	case groups["y"] != "":
		y, _ := strconv.Atoi(groups["y"])
		m, _ := strconv.Atoi(groups["m"])
		d, _ := strconv.Atoi(groups["d"])
		if m < 1 || m > 12 || d < 1 || d > 31 {
			return core.Date{}, time.Time{}, false
		}
		date = core.NewDate(y, m, d)
	default:
		return core.Date{}, time.Time{}, false
	}

	hour, minute := 12, 0
	if groups["hh"] != "" {
		hour, _ = strconv.Atoi(groups["hh"])
		if groups["mm"] != "" {
			minute, _ = strconv.Atoi(groups["mm"])
		}
	}
	at := time.Date(date.Year(), time.Month(date.Month()), date.Day(), hour, minute, 0, 0, time.Local)
	return date, at, true
}

func extractAmount(patterns []*regexp.Regexp, body string) (int64, bool) {
	groups, ok := firstMatch(patterns, body)
	if !ok {
		return 0, false
	}
	v, err := core.ParseYen(groups["amount"])
	if err != nil {
		return 0, false
	}
	return v, true
}

func extractMerchant(patterns []*regexp.Regexp, body string) (string, bool) {
	groups, ok := firstMatch(patterns, body)
	if !ok {
		return "", false
	}
	shop := strings.TrimSpace(groups["shop"])
	if shop == "" {
		return "", false
	}
	return truncateRunes(shop, memoMaxRunes), true
}

// firstMatch tries patterns in order and returns the named capture groups of
// the first one that matches.
func firstMatch(patterns []*regexp.Regexp, text string) (map[string]string, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		groups := make(map[string]string)
		for i, name := range re.SubexpNames() {
			if name != "" && i < len(m) {
				groups[name] = m[i]
			}
		}
		return groups, true
	}
	return nil, false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
