package calendar

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Weekdays are the grid column headers.
var Weekdays = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Cell is one grid position. Blank cells pad the first week.
type Cell struct {
	Blank   bool
	Day     int
	Date    string
	Today   bool
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int
}

func (c Cell) HasIncome() bool  { return c.Income.IsPositive() }
func (c Cell) HasExpense() bool { return c.Expense.IsPositive() }
func (c Cell) HasData() bool    { return c.Count > 0 || c.HasIncome() || c.HasExpense() }

// Class is the CSS modifier for the day: has-both, has-income, has-expense
// or empty.
func (c Cell) Class() string {
	switch {
	case c.HasIncome() && c.HasExpense():
		return "has-both"
	case c.HasIncome():
		return "has-income"
	case c.HasExpense():
		return "has-expense"
	}
	return ""
}

// Grid is a rendered month: leading blanks followed by every day.
type Grid struct {
	Month Month
	Prev  Month
	Next  Month
	Cells []Cell
}

// Weeks splits the cells into rows of seven, padding the last row.
func (g Grid) Weeks() [][]Cell {
	var weeks [][]Cell
	for i := 0; i < len(g.Cells); i += 7 {
		end := i + 7
		row := make([]Cell, 0, 7)
		if end > len(g.Cells) {
			row = append(row, g.Cells[i:]...)
			for len(row) < 7 {
				row = append(row, Cell{Blank: true})
			}
		} else {
			row = append(row, g.Cells[i:end]...)
		}
		weeks = append(weeks, row)
	}
	return weeks
}

// Index maps YYYY-MM-DD to its day data.
func Index(days []core.CalendarDay) map[string]core.CalendarDay {
	out := make(map[string]core.CalendarDay, len(days))
	for _, d := range days {
		out[d.Date] = d
	}
	return out
}

// Build lays out month with the API's day aggregates. today marks the
// current day when it falls in the month.
func Build(month Month, days []core.CalendarDay, today time.Time) Grid {
	idx := Index(days)
	offset := month.FirstWeekdayOffset()
	g := Grid{
		Month: month,
		Prev:  month.Shift(-1),
		Next:  month.Shift(1),
		Cells: make([]Cell, 0, offset+month.Days()),
	}
	for i := 0; i < offset; i++ {
		g.Cells = append(g.Cells, Cell{Blank: true})
	}
	for d := 1; d <= month.Days(); d++ {
		cell := Cell{
			Day:   d,
			Date:  month.Date(d),
			Today: month.Contains(today) && today.Day() == d,
		}
		if data, ok := idx[cell.Date]; ok {
			cell.Income = data.TotalIncome
			cell.Expense = data.TotalExpense
			cell.Count = len(data.Transactions)
		}
		g.Cells = append(g.Cells, cell)
	}
	return g
}
