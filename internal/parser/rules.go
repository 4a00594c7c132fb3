package parser

import (
	"regexp"
	"strings"
)

// Issuer account labels.
const (
	AccountSMBC   = "三井住友カード"
	AccountPayPay = "PayPayカード"
	AccountOther  = "その他カード"
)

// nonTransactional matches campaign and service mails that carry
// purchase-like subjects but never describe a transaction.
var nonTransactional = regexp.MustCompile(`キャンペーン|特典|アンケート|ポイント進呈|メンテナンス|規約改定`)

var (
	smbcDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`◇?(?:ご)?利用日(?:時)?\s*[：:・]?\s*(?P<y>\d{4})[/-](?P<m>\d{1,2})[/-](?P<d>\d{1,2})(?:\s+(?P<hh>\d{1,2}):(?P<mm>\d{2}))?`),
		regexp.MustCompile(`日時\s*[：:・]?\s*(?P<y>\d{4})[/-](?P<m>\d{1,2})[/-](?P<d>\d{1,2})`),
		regexp.MustCompile(`(?P<y>\d{4})[/-](?P<m>\d{1,2})[/-](?P<d>\d{1,2})\s*にカードの利用`),
	}
	smbcAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`◇?(?:ご)?利用金額\s*[：:・]?\s*[\\¥￥]?(?P<amount>-?[0-9,]+)\s*円`),
		regexp.MustCompile(`金額\s*[：:・]?\s*[\\¥￥]?(?P<amount>-?[0-9,]+)`),
		regexp.MustCompile(`[¥￥](?P<amount>[0-9,]+)\s*のご利用`),
	}
	smbcMerchantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`◇?(?:ご)?利用先\s*[：:・]?\s*(?P<shop>[^\n\r]+)`),
		regexp.MustCompile(`利用店名[・等]*\s*[：:・]?\s*(?P<shop>[^\n\r]+)`),
		regexp.MustCompile(`お店[（(]?名[）)]?\s*[：:・]?\s*(?P<shop>[^\n\r]+)`),
	}

	paypayDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?P<y>\d{4})年(?P<m>\d{1,2})月(?P<d>\d{1,2})日(?:\s+(?P<hh>\d{1,2}):(?P<mm>\d{2}))?`),
		regexp.MustCompile(`(?:ご)?利用日時?\s*[：:・]?\s*(?P<y>\d{4})[/-](?P<m>\d{1,2})[/-](?P<d>\d{1,2})`),
	}
	paypayAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:ご)?利用金額\s*[：:・]?\s*[\\¥￥]?(?P<amount>-?[0-9,]+)\s*円?`),
		regexp.MustCompile(`(?P<amount>-?[0-9,]+)円`),
	}
	paypayMerchantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`利用速報\s+(?P<shop>\S.*?)\s+\d{4}年`),
		regexp.MustCompile(`利用店名等?\s*[：:・]?\s*(?P<shop>[^\n\r]+)`),
		regexp.MustCompile(`(?:ご)?利用先\s*[：:・]?\s*(?P<shop>[^\n\r]+)`),
	}

	genericDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:ご)?利用日(?:時)?\s*[：:・]?\s*(?P<y>\d{4})[/-](?P<m>\d{1,2})[/-](?P<d>\d{1,2})(?:\s+(?P<hh>\d{1,2}):(?P<mm>\d{2}))?`),
		regexp.MustCompile(`(?P<y>\d{4})[/-](?P<m>\d{1,2})[/-](?P<d>\d{1,2})`),
		regexp.MustCompile(`(?P<y>\d{4})年(?P<m>\d{1,2})月(?P<d>\d{1,2})日`),
	}
	genericAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:ご)?利用金額\s*[：:・]?\s*[\\¥￥]?(?P<amount>-?[0-9,]+)\s*円?`),
		regexp.MustCompile(`[\\¥￥]?(?P<amount>-?[0-9,]{3,})\s*円`),
	}
	genericMerchantPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:利用先|店名|加盟店)\s*[：:・]?\s*(?P<shop>[^\n\r]+)`),
	}
)

// DefaultRuleSets returns the built-in issuer rule sets in dispatch order:
// known issuers first, then the generic cross-issuer fallback for messages
// whose subject carries purchase-notification keywords.
func DefaultRuleSets() []RuleSet {
	return []RuleSet{
		{
			Issuer: AccountSMBC,
			Match: func(sender, subject string) bool {
				return strings.Contains(sender, "vpass.ne.jp") || strings.Contains(sender, "smbc-card")
			},
			Skip: func(subject string) bool {
				return nonTransactional.MatchString(subject) || !strings.Contains(subject, "ご利用")
			},
			Account:          func(string) string { return AccountSMBC },
			DatePatterns:     smbcDatePatterns,
			AmountPatterns:   smbcAmountPatterns,
			MerchantPatterns: smbcMerchantPatterns,
		},
		{
			Issuer: AccountPayPay,
			Match: func(sender, subject string) bool {
				return strings.Contains(sender, "paypay") &&
					(strings.Contains(subject, "利用速報") || strings.Contains(subject, "ご利用"))
			},
			Skip: func(subject string) bool {
				return nonTransactional.MatchString(subject)
			},
			Account:          func(string) string { return AccountPayPay },
			DatePatterns:     paypayDatePatterns,
			AmountPatterns:   paypayAmountPatterns,
			MerchantPatterns: paypayMerchantPatterns,
		},
		{
			Issuer: AccountOther,
			Match: func(sender, subject string) bool {
				return strings.Contains(subject, "ご利用") ||
					strings.Contains(subject, "カード") ||
					strings.Contains(subject, "お知らせ")
			},
			Skip: func(subject string) bool {
				return nonTransactional.MatchString(subject)
			},
			Account:          guessIssuerAccount,
			DatePatterns:     genericDatePatterns,
			AmountPatterns:   genericAmountPatterns,
			MerchantPatterns: genericMerchantPatterns,
		},
	}
}

func guessIssuerAccount(sender string) string {
	switch {
	case strings.Contains(sender, "rakuten"):
		return "楽天カード"
	case strings.Contains(sender, "aeon"):
		return "イオンカード"
	case strings.Contains(sender, "saison"):
		return "セゾンカード"
	default:
		return AccountOther
	}
}
