// Package term renders ledger views for the terminal with lipgloss.
//
// Output written to anything other than a terminal drops colour, so the same
// renderer serves pipes, files and tests.
package term

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fintrack/internal/calendar"
	"fintrack/internal/core"
	"fintrack/internal/view"
)

const (
	colorTitle   = lipgloss.Color("#87CEEB")
	colorLabel   = lipgloss.Color("#9CA3AF")
	colorValue   = lipgloss.Color("#D1D5DB")
	colorIncome  = lipgloss.Color("#4ADE80")
	colorExpense = lipgloss.Color("#F87171")
	colorBoth    = lipgloss.Color("#FFD54A")
	colorBorder  = lipgloss.Color("#6B7280")

	calendarCellWidth = 6
)

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	income  lipgloss.Style
	expense lipgloss.Style
	both    lipgloss.Style
	muted   lipgloss.Style
	card    lipgloss.Style
	today   lipgloss.Style
	cell    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Foreground(colorTitle).Bold(true),
		label:   r.NewStyle().Foreground(colorLabel),
		value:   r.NewStyle().Foreground(colorValue).Bold(true),
		income:  r.NewStyle().Foreground(colorIncome),
		expense: r.NewStyle().Foreground(colorExpense),
		both:    r.NewStyle().Foreground(colorBoth),
		muted:   r.NewStyle().Foreground(colorBorder),
		card: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),
		today: r.NewStyle().Bold(true).Underline(true),
		cell:  r.NewStyle().Width(calendarCellWidth),
	}
}

// Renderer writes the shared view models to out.
type Renderer struct {
	out   io.Writer
	money core.MoneyFormatter
	st    styles
}

func New(out io.Writer, money core.MoneyFormatter) *Renderer {
	return &Renderer{out: out, money: money, st: newStyles(lipgloss.NewRenderer(out))}
}

func (r *Renderer) Money() core.MoneyFormatter {
	return r.money
}

func (r *Renderer) write(blocks ...string) error {
	_, err := fmt.Fprintln(r.out, strings.Join(blocks, "\n"))
	return err
}

func (r *Renderer) amount(t core.TxType, s string) string {
	if t == core.Income {
		return r.st.income.Render(s)
	}
	return r.st.expense.Render(s)
}

func (r *Renderer) Balance(v view.BalanceView) error {
	balance := r.st.value.Render(v.Balance)
	if v.Negative {
		balance = r.st.expense.Bold(true).Render(v.Balance)
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		r.st.title.Render("Balance"),
		balance,
		"",
		r.st.label.Render("Income   ")+r.st.income.Render(v.Income),
		r.st.label.Render("Expenses ")+r.st.expense.Render(v.Expense),
	)
	return r.write(r.st.card.Render(body))
}

func (r *Renderer) Analytics(v view.AnalyticsView) error {
	change := v.ChangeText
	switch v.TrendClass {
	case "danger":
		change = r.st.expense.Render(change)
	case "success":
		change = r.st.income.Render(change)
	}
	lines := []string{
		r.st.title.Render("This month") + "  " + change,
		r.st.label.Render("Current month  ") + r.st.value.Render(v.Current),
		r.st.label.Render("Previous month ") + r.st.value.Render(v.Previous),
	}
	if v.TopCategory != "" {
		lines = append(lines, r.st.label.Render("Top category   ")+v.TopCategory+" · "+v.TopAmount)
	}
	if len(v.Breakdown) > 0 {
		lines = append(lines, "")
		lines = append(lines, r.categoryLines(core.Expense, v.Breakdown)...)
	}
	return r.write(r.st.card.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func (r *Renderer) Summary(v view.SummaryView) error {
	if v.Empty() {
		return r.write(r.st.muted.Render("No transactions yet"))
	}
	var lines []string
	if len(v.Income) > 0 {
		lines = append(lines, r.st.income.Bold(true).Render("Income"))
		lines = append(lines, r.categoryLines(core.Income, v.Income)...)
	}
	if len(v.Expense) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, r.st.expense.Bold(true).Render("Expenses"))
		lines = append(lines, r.categoryLines(core.Expense, v.Expense)...)
	}
	return r.write(r.st.card.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func (r *Renderer) categoryLines(t core.TxType, lines []view.CategoryLine) []string {
	width := 0
	for _, l := range lines {
		width = max(width, lipgloss.Width(l.Label))
	}
	label := r.st.label.Width(width + 2)
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, label.Render(l.Label)+r.amount(t, l.Total))
	}
	return out
}

// Transactions renders rows as an aligned table under the filter heading.
func (r *Renderer) Transactions(f view.Filter, rows []view.TransactionRow) error {
	heading := r.st.title.Render("Transactions") + " " + r.st.muted.Render("("+f.Label()+")")
	if len(rows) == 0 {
		return r.write(heading, r.st.muted.Render("No transactions"))
	}
	idW, catW, dateW := 2, 8, len(view.RowDateLayout)
	for _, row := range rows {
		idW = max(idW, len(strconv.FormatInt(row.ID, 10)))
		catW = max(catW, lipgloss.Width(row.CategoryLabel))
	}
	idCol := r.st.muted.Width(idW + 2)
	catCol := r.st.cell.Width(catW + 2)
	dateCol := r.st.label.Width(dateW + 2)
	out := []string{heading,
		idCol.Render("ID") + catCol.Render("Category") + dateCol.Render("Date") + "Amount"}
	for _, row := range rows {
		line := idCol.Render(strconv.FormatInt(row.ID, 10)) +
			catCol.Render(row.CategoryLabel) +
			dateCol.Render(row.DateText) +
			r.amount(row.Type, row.AmountText)
		if row.Description != "" {
			line += "  " + r.st.muted.Render(row.Description)
		}
		out = append(out, line)
	}
	return r.write(out...)
}

// Transaction renders one transaction as a card.
func (r *Renderer) Transaction(row view.TransactionRow) error {
	lines := []string{
		r.st.title.Render("Transaction #" + strconv.FormatInt(row.ID, 10)),
		r.st.label.Render("Category ") + row.CategoryLabel,
		r.st.label.Render("Date     ") + row.DateText,
		r.st.label.Render("Amount   ") + r.amount(row.Type, row.AmountText),
	}
	if row.Description != "" {
		lines = append(lines, r.st.label.Render("Note     ")+row.Description)
	}
	return r.write(r.st.card.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

// dayMarker marks days with activity so the grid reads without colour:
// "+" income, "-" expense, "±" both.
func dayMarker(c calendar.Cell) string {
	switch c.Class() {
	case "has-both":
		return "±"
	case "has-income":
		return "+"
	case "has-expense":
		return "-"
	}
	return ""
}

// Calendar renders a Monday-first month grid coloured by day class.
func (r *Renderer) Calendar(g calendar.Grid) error {
	title := r.st.muted.Render("‹ "+g.Prev.Title()) + "  " +
		r.st.title.Render(g.Month.Title()) + "  " +
		r.st.muted.Render(g.Next.Title()+" ›")

	var header strings.Builder
	for _, wd := range calendar.Weekdays {
		header.WriteString(r.st.label.Width(calendarCellWidth).Render(wd))
	}
	rows := []string{title, header.String()}
	for _, week := range g.Weeks() {
		var line strings.Builder
		for _, c := range week {
			line.WriteString(r.dayCell(c))
		}
		rows = append(rows, strings.TrimRight(line.String(), " "))
	}
	return r.write(rows...)
}

func (r *Renderer) dayCell(c calendar.Cell) string {
	if c.Blank {
		return r.st.cell.Render("")
	}
	text := strconv.Itoa(c.Day) + dayMarker(c)
	style := r.st.cell
	switch c.Class() {
	case "has-both":
		style = style.Foreground(colorBoth)
	case "has-income":
		style = style.Foreground(colorIncome)
	case "has-expense":
		style = style.Foreground(colorExpense)
	}
	if c.Today {
		text = "[" + text + "]"
		style = style.Inherit(r.st.today)
	}
	return style.Render(text)
}

// Day renders the transactions of one calendar day.
func (r *Renderer) Day(v view.DayView) error {
	heading := r.st.title.Render(v.Title)
	if len(v.Rows) == 0 {
		return r.write(heading, r.st.muted.Render("No transactions on this day"))
	}
	out := []string{heading,
		r.st.label.Render("Income ") + r.st.income.Render(v.Income) + "   " +
			r.st.label.Render("Expenses ") + r.st.expense.Render(v.Expense)}
	width := 0
	for _, row := range v.Rows {
		width = max(width, lipgloss.Width(row.CategoryLabel))
	}
	cat := r.st.cell.Width(width + 2)
	for _, row := range v.Rows {
		line := cat.Render(row.CategoryLabel) + r.amount(row.Type, row.AmountText)
		if row.Description != "" {
			line += "  " + r.st.muted.Render(row.Description)
		}
		out = append(out, line)
	}
	return r.write(out...)
}

// Notice prints a one-line confirmation.
func (r *Renderer) Notice(msg string) error {
	return r.write(r.st.income.Render("✓ ") + msg)
}
