// Package advisor generates spending commentary with Gemini. The commentary
// is decoration on top of the ledger: when the model is unreachable the
// advisor degrades to a fixed apology instead of failing the report run.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

// ReportKind selects the analysis framing.
type ReportKind string

const (
	ReportWeekly  ReportKind = "weekly"
	ReportMonthly ReportKind = "monthly"
)

// DefaultModel is the Gemini model used unless configured otherwise.
const DefaultModel = "gemini-2.0-flash"

// FallbackMessage is returned whenever generation fails.
const FallbackMessage = "すみません、今回は分析コメントを生成できませんでした。また次回お伝えしますね。"

// CategoryDiff compares one category's spending across the report period
// and the one before it.
type CategoryDiff struct {
	Name     string
	Current  int64
	Previous int64
}

// PromptData is the aggregated state the commentary is based on. The
// period pair is the last 7 days versus the 7 before for weekly reports,
// and this month versus last month for monthly ones.
type PromptData struct {
	Kind         ReportKind
	Year         int
	Month        int
	Budget       int64
	TotalExpense int64 // month to date
	CarryOver    int64
	Categories   []core.CategoryAmount // month to date

	PeriodExpense     int64
	PrevPeriodExpense int64
	Diffs             []CategoryDiff
	Daily             []int64 // report period, oldest day first
	ProjectedExpense  int64   // month-end total at the current pace
}

// DiffCategories pairs the per-category totals of the report period with
// the previous one. Categories present in either period get a row.
func DiffCategories(current, previous []core.CategoryAmount) []CategoryDiff {
	prev := make(map[string]int64, len(previous))
	for _, c := range previous {
		prev[c.Name] = c.Amount
	}
	seen := make(map[string]struct{}, len(current))
	diffs := make([]CategoryDiff, 0, len(current))
	for _, c := range current {
		diffs = append(diffs, CategoryDiff{Name: c.Name, Current: c.Amount, Previous: prev[c.Name]})
		seen[c.Name] = struct{}{}
	}
	for _, c := range previous {
		if _, ok := seen[c.Name]; !ok {
			diffs = append(diffs, CategoryDiff{Name: c.Name, Previous: c.Amount})
		}
	}
	return diffs
}

type Advisor struct {
	client *genai.Client
	model  string
	logger *log.Logger
}

func New(ctx context.Context, apiKey, model string, logger *log.Logger) (*Advisor, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentAdvisor)
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Advisor{client: client, model: model, logger: logger}, nil
}

// Analyze returns commentary for the given month state. It never returns an
// error: failures log and fall back to FallbackMessage.
func (a *Advisor) Analyze(ctx context.Context, data PromptData) string {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: buildPrompt(data)}},
		},
	}
	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		a.logger.Error("generate content failed",
			log.FieldOperation, log.OpAnalyze, log.FieldError, err.Error())
		return FallbackMessage
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		a.logger.Warn("empty model response",
			log.FieldOperation, log.OpAnalyze)
		return FallbackMessage
	}
	return text
}

func buildPrompt(data PromptData) string {
	var b strings.Builder
	switch data.Kind {
	case ReportWeekly:
		b.WriteString("あなたは家計簿アプリのアドバイザーです。今週までの支出状況を見て、短い励ましとアドバイスを日本語で3文以内で書いてください。\n")
	default:
		b.WriteString("あなたは家計簿アプリのアドバイザーです。今月の支出のまとめと来月へのアドバイスを日本語で5文以内で書いてください。\n")
	}
	fmt.Fprintf(&b, "対象: %d年%d月\n", data.Year, data.Month)
	fmt.Fprintf(&b, "予算: %d円\n", data.Budget)
	fmt.Fprintf(&b, "支出合計: %d円\n", data.TotalExpense)
	if data.CarryOver != 0 {
		fmt.Fprintf(&b, "先月からの繰越: %d円\n", data.CarryOver)
	}
	if data.PeriodExpense != 0 || data.PrevPeriodExpense != 0 {
		if data.Kind == ReportWeekly {
			fmt.Fprintf(&b, "直近7日間の支出: %d円（その前の7日間: %d円）\n",
				data.PeriodExpense, data.PrevPeriodExpense)
		} else {
			fmt.Fprintf(&b, "今月の支出: %d円（先月: %d円）\n",
				data.PeriodExpense, data.PrevPeriodExpense)
		}
	}
	if len(data.Diffs) > 0 {
		b.WriteString("分類別の増減（前期間 → 今期間）:\n")
		for _, d := range data.Diffs {
			fmt.Fprintf(&b, "- %s: %d円 → %d円\n", d.Name, d.Previous, d.Current)
		}
	} else if len(data.Categories) > 0 {
		b.WriteString("分類別支出:\n")
		for _, c := range data.Categories {
			fmt.Fprintf(&b, "- %s: %d円\n", c.Name, c.Amount)
		}
	}
	if len(data.Daily) > 0 {
		b.WriteString("日別支出: ")
		for i, v := range data.Daily {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%d", v)
		}
		b.WriteString(" 円\n")
	}
	if data.ProjectedExpense > 0 {
		fmt.Fprintf(&b, "このままのペースだと月末の支出は約%d円になります。\n", data.ProjectedExpense)
	}
	b.WriteString("口調は親しみやすく、絵文字は使いすぎないでください。金額を捏造しないでください。")
	return b.String()
}
