package core

import "github.com/shopspring/decimal"

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

type Trend string

// Balance is the aggregate of all signed transaction amounts.
type Balance struct {
	Balance      decimal.Decimal
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
}

// CategoryTotal is an amount aggregated by category key.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Summary splits all-time totals by category for each type.
type Summary struct {
	IncomeByCategory  []CategoryTotal
	ExpenseByCategory []CategoryTotal
}

// Analytics compares the current month's expenses with the previous month.
type Analytics struct {
	CurrentMonthTotal  decimal.Decimal
	PreviousMonthTotal decimal.Decimal
	ChangePercent      decimal.Decimal
	Trend              Trend
	TopCategory        *CategoryTotal
	CategoryBreakdown  []CategoryTotal
}

// DayTransaction is the trimmed transaction carried by a calendar day.
type DayTransaction struct {
	ID          int64
	Type        TxType
	Category    string
	Amount      decimal.Decimal
	Description string
}

// CalendarDay aggregates one day of a month. Date is YYYY-MM-DD.
type CalendarDay struct {
	Date         string
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Transactions []DayTransaction
}

func (d CalendarDay) HasIncome() bool {
	return d.TotalIncome.IsPositive()
}

func (d CalendarDay) HasExpense() bool {
	return d.TotalExpense.IsPositive()
}
