// Package view turns ledger data into display-ready values shared by the web
// templates and the terminal renderer.
package view

import (
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	FilterAll     Filter = "all"
	FilterIncome  Filter = "income"
	FilterExpense Filter = "expense"
)

const RowDateLayout = "02.01.2006, 15:04"

type Filter string

// Filters lists the tabs in display order.
var Filters = []Filter{FilterAll, FilterIncome, FilterExpense}

// ParseFilter falls back to FilterAll for anything unknown.
func ParseFilter(s string) Filter {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterIncome, FilterExpense:
		return f
	}
	return FilterAll
}

func (f Filter) Label() string {
	switch f {
	case FilterIncome:
		return "Income"
	case FilterExpense:
		return "Expenses"
	}
	return "All"
}

// Apply keeps the transactions matching f in their original order.
func Apply(f Filter, txs []core.Transaction) []core.Transaction {
	if f == FilterAll {
		return txs
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if string(tx.Type) == string(f) {
			out = append(out, tx)
		}
	}
	return out
}

type TransactionRow struct {
	ID            int64
	Type          core.TxType
	CategoryLabel string
	Description   string
	DateText      string
	AmountText    string
	Class         string
}

func NewRow(tx core.Transaction, money core.MoneyFormatter) TransactionRow {
	return TransactionRow{
		ID:            tx.ID,
		Type:          tx.Type,
		CategoryLabel: core.CategoryLabel(tx.Type, tx.Category, tx.CategoryDisplay),
		Description:   tx.Description,
		DateText:      tx.Date.Format(RowDateLayout),
		AmountText:    money.FormatSigned(tx.Type, tx.Amount),
		Class:         string(tx.Type),
	}
}

func Rows(txs []core.Transaction, money core.MoneyFormatter) []TransactionRow {
	rows := make([]TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, NewRow(tx, money))
	}
	return rows
}

type BalanceView struct {
	Balance  string
	Income   string
	Expense  string
	Negative bool
}

func NewBalanceView(b core.Balance, money core.MoneyFormatter) BalanceView {
	return BalanceView{
		Balance:  money.Format(b.Balance),
		Income:   money.Format(b.TotalIncome),
		Expense:  money.Format(b.TotalExpense),
		Negative: b.Balance.IsNegative(),
	}
}

type AnalyticsView struct {
	ChangeText  string
	Trend       core.Trend
	TrendClass  string
	TopCategory string
	TopAmount   string
	Current     string
	Previous    string
	Breakdown   []CategoryLine
}

// ChangeText renders a percentage with an explicit plus sign and at most two
// fraction digits, the precision the ledger reports: "+12.35%", "-3%", "0%".
func ChangeText(pct decimal.Decimal) string {
	r := pct.Round(2)
	s := r.String() + "%"
	if r.IsPositive() {
		return "+" + s
	}
	return s
}

// TrendClass colours spending: growth is bad news.
func TrendClass(t core.Trend) string {
	switch t {
	case core.TrendUp:
		return "danger"
	case core.TrendDown:
		return "success"
	}
	return "neutral"
}

func NewAnalyticsView(a core.Analytics, money core.MoneyFormatter) AnalyticsView {
	v := AnalyticsView{
		ChangeText: ChangeText(a.ChangePercent),
		Trend:      a.Trend,
		TrendClass: TrendClass(a.Trend),
		Current:    money.Format(a.CurrentMonthTotal),
		Previous:   money.Format(a.PreviousMonthTotal),
		Breakdown:  lines(core.Expense, a.CategoryBreakdown, money),
	}
	if a.TopCategory != nil {
		v.TopCategory = core.CategoryLabel(core.Expense, a.TopCategory.Category, "")
		v.TopAmount = money.Format(a.TopCategory.Total)
	}
	return v
}

type CategoryLine struct {
	Key   string
	Label string
	Total string
}

type SummaryView struct {
	Income  []CategoryLine
	Expense []CategoryLine
}

func (s SummaryView) Empty() bool {
	return len(s.Income) == 0 && len(s.Expense) == 0
}

func NewSummaryView(s core.Summary, money core.MoneyFormatter) SummaryView {
	return SummaryView{
		Income:  lines(core.Income, s.IncomeByCategory, money),
		Expense: lines(core.Expense, s.ExpenseByCategory, money),
	}
}

func lines(t core.TxType, totals []core.CategoryTotal, money core.MoneyFormatter) []CategoryLine {
	out := make([]CategoryLine, 0, len(totals))
	for _, ct := range totals {
		out = append(out, CategoryLine{
			Key:   ct.Category,
			Label: core.CategoryLabel(t, ct.Category, ""),
			Total: money.Format(ct.Total),
		})
	}
	return out
}

type DayRow struct {
	ID            int64
	Type          core.TxType
	CategoryLabel string
	Description   string
	AmountText    string
}

type DayView struct {
	Date    string
	Title   string
	Income  string
	Expense string
	Rows    []DayRow
}

// NewDayView renders a calendar day; Title is "05.01.2025".
func NewDayView(d core.CalendarDay, money core.MoneyFormatter) DayView {
	v := DayView{
		Date:    d.Date,
		Title:   d.Date,
		Income:  money.Format(d.TotalIncome),
		Expense: money.Format(d.TotalExpense),
		Rows:    make([]DayRow, 0, len(d.Transactions)),
	}
	if t, err := core.ParseDate(d.Date); err == nil {
		v.Title = t.Format("02.01.2006")
	}
	for _, tx := range d.Transactions {
		v.Rows = append(v.Rows, DayRow{
			ID:            tx.ID,
			Type:          tx.Type,
			CategoryLabel: core.CategoryLabel(tx.Type, tx.Category, ""),
			Description:   tx.Description,
			AmountText:    money.FormatSigned(tx.Type, tx.Amount),
		})
	}
	return v
}
