package core

import (
	"regexp"
	"strings"
)

// CategoryRule maps a keyword pattern to a category label. Rules are tried
// in order; the first match wins.
type CategoryRule struct {
	Category string
	Pattern  *regexp.Regexp
}

// Classifier assigns a category to free-form merchant text. It is a pure
// lookup: lower-case the input, walk the ordered rule table, fall back to
// the default label.
type Classifier struct {
	rules    []CategoryRule
	fallback string
}

// NewClassifier builds a classifier from an ordered rule table. An empty
// fallback defaults to the uncategorized label.
func NewClassifier(rules []CategoryRule, fallback string) *Classifier {
	if fallback == "" {
		fallback = CategoryUncategorized
	}
	return &Classifier{rules: rules, fallback: fallback}
}

// Classify returns the category for the given text.
func (c *Classifier) Classify(text string) string {
	if strings.TrimSpace(text) == "" {
		return c.fallback
	}
	s := strings.ToLower(text)
	for _, r := range c.rules {
		if r.Pattern.MatchString(s) {
			return r.Category
		}
	}
	return c.fallback
}

// defaultCategoryRules is keyword data only; extending a category means
// editing a pattern here, never the matching logic.
var defaultCategoryRules = []CategoryRule{
	{"食費", regexp.MustCompile(`スーパー|イオン|セブン|ファミマ|ローソン|マクド|モス|ケンタッキー|くら寿司|はま寿司|すき家|吉野家|松屋|なか卯|王将|ココス|ガスト|デニーズ|食品|ピザ|パン|ベーカリー|カフェ|スタバ|ドトール|コーヒー|レストラン|居酒屋|食堂|弁当|バーガー|ランチ|うどん|そば|ラーメン|焼肉|定食|コンビニ|飲食|グルメ|ドンキ|業務|ubereats|uber eats|出前館|ディナー|夕食|朝食|夜ごはん|昼ごはん|飲み会|飲み|外食|ご飯|食事|買い物|お買い物`)},
	{"日用品", regexp.MustCompile(`ドラッグ|薬局|クスリ|マツモトキヨシ|サンドラッグ|コスモス|ダイソー|カインズ|ホームセンター|ニトリ|コーナン|無印良品|ロフト|シャンプー|赤ちゃん本舗|ウエルシア|買物|ショッピング|美容院|美容室|ヘアサロン|サロン|ネイル|エステ|マッサージ|整体|ヤマダ電機|ビックカメラ|ヨドバシ|apple|アップル|アマゾン|amazon`)},
	{"交通費", regexp.MustCompile(`jr|suica|pasmo|鉄道|タクシー|ガソリン|駅|電車|バス|航空|空港|eneos|出光|shell|コスモ石油|駐車|給油|ドライブ`)},
	{"娯楽", regexp.MustCompile(`映画|シネマ|カラオケ|ゲーム|ボウリング|テーマパーク|遊園地|アミューズ|スポーツ|ジム|美術館|博物館|netflix|spotify|amazon prime|youtube|disney|ネットフリックス|書籍|本屋|旅行|ホテル|温泉|観光|遊び|デート|イベント|ライブ|コンサート`)},
	{"医療", regexp.MustCompile(`病院|クリニック|歯科|歯医者|薬|医院|調剤|診療|健康|整形|美容外科|美容皮膚|内科|小児科|眼科|耳鼻|皮膚科|検診|健診|通院`)},
	{"衣服", regexp.MustCompile(`ユニクロ|gu|ザラ|h&m|シマムラ|服|アパレル|ファッション|abcマート|靴|シューズ`)},
	{"通信費", regexp.MustCompile(`ソフトバンク|docomo|softbank|ラインモバイル|ocn|nuro|ビッグローブ|wi-?fi|通信`)},
}

// DefaultClassifier returns the built-in keyword table used for automatic
// card-mail categorization.
func DefaultClassifier() *Classifier {
	return NewClassifier(defaultCategoryRules, CategoryUncategorized)
}
