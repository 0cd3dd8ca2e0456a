package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// apiTime accepts RFC 3339 as well as the naive layouts the API emits when
// time zone support is off on the server.
type apiTime struct {
	time.Time
}

var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	core.DateTimeLocalLayout,
	core.DayLayout,
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range apiTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

type transactionDTO struct {
	ID              int64           `json:"id"`
	Date            apiTime         `json:"date"`
	Category        string          `json:"category"`
	CategoryDisplay string          `json:"category_display"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"`
	TypeDisplay     string          `json:"type_display"`
	Description     string          `json:"description"`
}

func (d transactionDTO) toCore() core.Transaction {
	return core.Transaction{
		ID:              d.ID,
		Type:            core.TxType(d.Type),
		TypeDisplay:     d.TypeDisplay,
		Category:        d.Category,
		CategoryDisplay: d.CategoryDisplay,
		Amount:          d.Amount,
		Date:            d.Date.Time,
		Description:     d.Description,
	}
}

type transactionRequest struct {
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

func newTransactionRequest(in core.TransactionInput) transactionRequest {
	in = in.Normalized()
	return transactionRequest{
		Type:        in.Type,
		Category:    in.Category,
		Amount:      in.Amount,
		Date:        in.Date,
		Description: in.Description,
	}
}

type balanceDTO struct {
	Balance      decimal.Decimal `json:"balance"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}

type categoryTotalDTO struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

func (d categoryTotalDTO) toCore() core.CategoryTotal {
	return core.CategoryTotal{Category: d.Category, Total: d.Total}
}

func categoryTotals(in []categoryTotalDTO) []core.CategoryTotal {
	out := make([]core.CategoryTotal, 0, len(in))
	for _, d := range in {
		out = append(out, d.toCore())
	}
	return out
}

type summaryDTO struct {
	IncomeByCategory  []categoryTotalDTO `json:"income_by_category"`
	ExpenseByCategory []categoryTotalDTO `json:"expense_by_category"`
}

type analyticsDTO struct {
	CurrentMonthTotal  decimal.Decimal    `json:"current_month_total"`
	PreviousMonthTotal decimal.Decimal    `json:"previous_month_total"`
	ChangePercent      decimal.Decimal    `json:"change_percent"`
	Trend              string             `json:"trend"`
	TopCategory        *categoryTotalDTO  `json:"top_category"`
	CategoryBreakdown  []categoryTotalDTO `json:"category_breakdown"`
}

func (d analyticsDTO) toCore() core.Analytics {
	a := core.Analytics{
		CurrentMonthTotal:  d.CurrentMonthTotal,
		PreviousMonthTotal: d.PreviousMonthTotal,
		ChangePercent:      d.ChangePercent,
		Trend:              core.Trend(d.Trend),
		CategoryBreakdown:  categoryTotals(d.CategoryBreakdown),
	}
	switch a.Trend {
	case core.TrendUp, core.TrendDown, core.TrendStable:
	default:
		a.Trend = trendOf(a.ChangePercent)
	}
	if d.TopCategory != nil {
		top := d.TopCategory.toCore()
		a.TopCategory = &top
	}
	return a
}

func trendOf(change decimal.Decimal) core.Trend {
	switch change.Sign() {
	case 1:
		return core.TrendUp
	case -1:
		return core.TrendDown
	default:
		return core.TrendStable
	}
}

type dayTransactionDTO struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type calendarDayDTO struct {
	Date         string              `json:"date"`
	Transactions []dayTransactionDTO `json:"transactions"`
	TotalIncome  decimal.Decimal     `json:"total_income"`
	TotalExpense decimal.Decimal     `json:"total_expense"`
}

func (d calendarDayDTO) toCore() core.CalendarDay {
	day := core.CalendarDay{
		Date:         d.Date,
		TotalIncome:  d.TotalIncome,
		TotalExpense: d.TotalExpense,
		Transactions: make([]core.DayTransaction, 0, len(d.Transactions)),
	}
	for _, t := range d.Transactions {
		day.Transactions = append(day.Transactions, core.DayTransaction{
			ID:          t.ID,
			Type:        core.TxType(t.Type),
			Category:    t.Category,
			Amount:      t.Amount,
			Description: t.Description,
		})
	}
	return day
}
