package term

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/calendar"
	"fintrack/internal/core"
	"fintrack/internal/view"
)

func newTestRenderer() (*Renderer, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, core.NewMoneyFormatter("en", "₸")), &buf
}

func TestBalance(t *testing.T) {
	r, buf := newTestRenderer()
	v := view.NewBalanceView(core.Balance{
		Balance:      decimal.RequireFromString("-250.5"),
		TotalIncome:  decimal.RequireFromString("1000"),
		TotalExpense: decimal.RequireFromString("1250.5"),
	}, r.Money())

	require.NoError(t, r.Balance(v))
	out := buf.String()
	assert.Contains(t, out, "Balance")
	assert.Contains(t, out, "-250.5 ₸")
	assert.Contains(t, out, "1,000 ₸")
	assert.Contains(t, out, "╭")
}

func TestAnalytics(t *testing.T) {
	r, buf := newTestRenderer()
	v := view.NewAnalyticsView(core.Analytics{
		CurrentMonthTotal:  decimal.RequireFromString("150"),
		PreviousMonthTotal: decimal.RequireFromString("100"),
		ChangePercent:      decimal.RequireFromString("50"),
		Trend:              core.TrendUp,
		TopCategory:        &core.CategoryTotal{Category: "food", Total: decimal.RequireFromString("90")},
		CategoryBreakdown: []core.CategoryTotal{
			{Category: "food", Total: decimal.RequireFromString("90")},
			{Category: "transport", Total: decimal.RequireFromString("60")},
		},
	}, r.Money())

	require.NoError(t, r.Analytics(v))
	out := buf.String()
	assert.Contains(t, out, "+50%")
	assert.Contains(t, out, "🍔 Groceries · 90 ₸")
	assert.Contains(t, out, "Transport")
}

func TestSummary_Empty(t *testing.T) {
	r, buf := newTestRenderer()
	require.NoError(t, r.Summary(view.SummaryView{}))
	assert.Contains(t, buf.String(), "No transactions yet")
}

func TestTransactions(t *testing.T) {
	r, buf := newTestRenderer()
	txs := []core.Transaction{
		{ID: 7, Type: core.Expense, Category: "food", Amount: decimal.RequireFromString("12.5"),
			Date: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), Description: "lunch"},
		{ID: 12, Type: core.Income, Category: "salary", Amount: decimal.RequireFromString("1000"),
			Date: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)},
	}

	require.NoError(t, r.Transactions(view.FilterAll, view.Rows(txs, r.Money())))
	out := buf.String()
	assert.Contains(t, out, "(All)")
	assert.Contains(t, out, "15.01.2025, 10:00")
	assert.Contains(t, out, "-12.5 ₸")
	assert.Contains(t, out, "+1,000 ₸")
	assert.Contains(t, out, "lunch")
}

func TestTransactions_Empty(t *testing.T) {
	r, buf := newTestRenderer()
	require.NoError(t, r.Transactions(view.FilterIncome, nil))
	assert.Contains(t, buf.String(), "(Income)")
	assert.Contains(t, buf.String(), "No transactions")
}

func TestCalendar(t *testing.T) {
	r, buf := newTestRenderer()
	m, err := calendar.NewMonth(2025, 1)
	require.NoError(t, err)
	days := []core.CalendarDay{
		{Date: "2025-01-10", TotalIncome: decimal.RequireFromString("1000")},
		{Date: "2025-01-15", TotalExpense: decimal.RequireFromString("12.5")},
		{Date: "2025-01-20", TotalIncome: decimal.NewFromInt(1), TotalExpense: decimal.NewFromInt(2)},
	}
	today := time.Date(2025, 1, 22, 8, 0, 0, 0, time.Local)

	require.NoError(t, r.Calendar(calendar.Build(m, days, today)))
	out := buf.String()
	assert.Contains(t, out, "January 2025")
	assert.Contains(t, out, "December 2024")
	assert.Contains(t, out, "Mon")
	assert.Contains(t, out, "10+")
	assert.Contains(t, out, "15-")
	assert.Contains(t, out, "20±")
	assert.Contains(t, out, "[22]")
}

func TestDay(t *testing.T) {
	r, buf := newTestRenderer()
	d := core.CalendarDay{
		Date:         "2025-01-15",
		TotalExpense: decimal.RequireFromString("12.5"),
		Transactions: []core.DayTransaction{
			{ID: 1, Type: core.Expense, Category: "food", Amount: decimal.RequireFromString("12.5"), Description: "lunch"},
		},
	}

	require.NoError(t, r.Day(view.NewDayView(d, r.Money())))
	assert.Contains(t, buf.String(), "15.01.2025")
	assert.Contains(t, buf.String(), "lunch")

	buf.Reset()
	require.NoError(t, r.Day(view.NewDayView(core.CalendarDay{Date: "2025-01-16"}, r.Money())))
	assert.Contains(t, buf.String(), "No transactions on this day")
}
