package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FlowType classifies an entry as income or expense. The Japanese labels are
// the open string values stored in the ledger, matching the household-ledger
// convention the rest of the data uses.
type FlowType string

const (
	FlowExpense FlowType = "支出"
	FlowIncome  FlowType = "収入"
)

// OriginMethod records how an entry entered the ledger.
type OriginMethod string

const (
	MethodManual    OriginMethod = "LINE手入力"
	MethodDashboard OriginMethod = "ダッシュボード入力"
	MethodCardAuto  OriginMethod = "自動(カード)"
	MethodFixedAuto OriginMethod = "自動(固定費)"
)

// Sentinel labels. Category and account are open string labels but are never
// empty; these defaults stand in when nothing better is known.
const (
	CategoryUncategorized = "未分類"
	CategoryRefund        = "返金"
	AccountUnset          = "未設定"
)

type (
	// Date is a calendar day, rendered as yyyy/mm/dd.
	Date struct {
		time.Time
	}

	// Money is an amount in whole yen. Ledger amounts are always positive;
	// direction is carried by FlowType.
	Money struct {
		Yen int64
	}

	// LedgerEntry is one recorded transaction. At carries the full timestamp
	// when one is known (automatic ingestion keeps the notification time);
	// the calendar day alone is significant for aggregation.
	LedgerEntry struct {
		At       time.Time
		Amount   Money
		Category string
		Memo     string
		Flow     FlowType
		Method   OriginMethod
		Account  string
		Fixed    bool
		// Position is the store-assigned id of the entry. It is stable only
		// until a delete shifts later entries.
		Position int
	}

	// Account is a named balance bucket with a configured starting balance.
	Account struct {
		Name           string `json:"name"`
		InitialBalance int64  `json:"balance"`
	}

	// FixedExpense is a recurring charge recorded automatically on a fixed
	// day of every month.
	FixedExpense struct {
		Day      int    `json:"date"`
		Memo     string `json:"memo"`
		Amount   int64  `json:"amount"`
		Category string `json:"category"`
		Method   string `json:"method"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyMemo     = errors.New("empty memo")
	ErrInvalidFlow   = errors.New("invalid flow type")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)}
}

// ParseDate accepts yyyy/mm/dd or yyyy-mm-dd, with one- or two-digit month
// and day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "-", "/"))
	for _, layout := range []string{"2006/01/02", "2006/1/2"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the canonical yyyy/mm/dd form.
func (d Date) String() string {
	return d.Format("2006/01/02")
}

// MonthKey identifies the month of this date, e.g. "2026-02".
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// Year returns the calendar year.
func (d Date) Year() int { return d.Time.Year() }

// Month returns the calendar month, 1-12.
func (d Date) Month() int { return int(d.Time.Month()) }

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

func (m Money) Validate() error {
	if m.Yen <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MonthKeyOf formats a year and month into the alert-state month key.
func MonthKeyOf(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Date returns the calendar day of the entry.
func (e LedgerEntry) Date() Date {
	return Date{Time: e.At}
}

func (e LedgerEntry) Validate() error {
	if e.At.IsZero() {
		return ErrInvalidDate
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Memo)) == 0 {
		return ErrEmptyMemo
	}
	if len([]rune(e.Memo)) > 200 {
		return errors.New("memo too long (max 200 characters)")
	}
	switch e.Flow {
	case FlowExpense, FlowIncome:
	default:
		return ErrInvalidFlow
	}
	return nil
}

// Normalized returns a copy with sentinel labels filled in for empty
// category and account, so stored entries never carry empty labels.
func (e LedgerEntry) Normalized() LedgerEntry {
	if strings.TrimSpace(e.Category) == "" {
		e.Category = CategoryUncategorized
	}
	if strings.TrimSpace(e.Account) == "" {
		e.Account = AccountUnset
	}
	if e.Flow == "" {
		e.Flow = FlowExpense
	}
	return e
}
