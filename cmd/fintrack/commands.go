package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/calendar"
	"fintrack/internal/core"
	"fintrack/internal/view"
)

// commandContext is cancelled by Ctrl-C so a slow API call can be abandoned.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

type BalanceCmd struct{}

func (c *BalanceCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	b, err := a.client.Balance(ctx)
	if err != nil {
		return err
	}
	return a.out.Balance(view.NewBalanceView(b, a.money))
}

type AnalyticsCmd struct{}

func (c *AnalyticsCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	an, err := a.client.Analytics(ctx)
	if err != nil {
		return err
	}
	return a.out.Analytics(view.NewAnalyticsView(an, a.money))
}

type SummaryCmd struct{}

func (c *SummaryCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	s, err := a.client.Summary(ctx)
	if err != nil {
		return err
	}
	return a.out.Summary(view.NewSummaryView(s, a.money))
}

type ListCmd struct {
	Filter string `enum:"all,income,expense" default:"all" help:"all, income or expense."`
}

func (c *ListCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	txs, err := a.client.ListTransactions(ctx)
	if err != nil {
		return err
	}
	f := view.ParseFilter(c.Filter)
	return a.out.Transactions(f, view.Rows(view.Apply(f, txs), a.money))
}

type ShowCmd struct {
	ID int64 `arg:"" help:"Transaction id."`
}

func (c *ShowCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	tx, err := a.client.GetTransaction(ctx, c.ID)
	if err != nil {
		return err
	}
	return a.out.Transaction(view.NewRow(tx, a.money))
}

type AddCmd struct {
	Type        string `required:"" enum:"income,expense" help:"income or expense."`
	Category    string `required:"" help:"Category key, e.g. food or salary."`
	Amount      string `required:"" help:"Positive amount; comma or dot separator."`
	Date        string `help:"YYYY-MM-DDTHH:MM or YYYY-MM-DD; defaults to now."`
	Description string `help:"Free text."`
}

func (c *AddCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	in := core.TransactionInput{
		Type:        c.Type,
		Category:    c.Category,
		Amount:      c.Amount,
		Date:        c.Date,
		Description: c.Description,
	}
	if strings.TrimSpace(in.Date) == "" {
		in.Date = time.Now().Format(core.DateTimeLocalLayout)
	}

	ctx, cancel := commandContext()
	defer cancel()
	tx, err := a.txs.Save(ctx, a.client, a.scope(), 0, in)
	if err != nil {
		return err
	}
	if err := a.out.Transaction(view.NewRow(tx, a.money)); err != nil {
		return err
	}
	return a.out.Notice("Transaction added")
}

// EditCmd changes only the fields given on the command line. Empty flags
// keep the stored value.
type EditCmd struct {
	ID               int64  `arg:"" help:"Transaction id."`
	Type             string `help:"income or expense."`
	Category         string `help:"Category key."`
	Amount           string `help:"Positive amount."`
	Date             string `help:"YYYY-MM-DDTHH:MM or YYYY-MM-DD."`
	Description      string `help:"Free text."`
	ClearDescription bool   `help:"Remove the description."`
}

// merge applies the flags over the stored transaction.
func (c *EditCmd) merge(tx core.Transaction) core.TransactionInput {
	in := view.FormFromTransaction(tx).Input()
	if c.Type != "" {
		in.Type = c.Type
	}
	if c.Category != "" {
		in.Category = c.Category
	}
	if c.Amount != "" {
		in.Amount = c.Amount
	}
	if c.Date != "" {
		in.Date = c.Date
	}
	if c.Description != "" {
		in.Description = c.Description
	}
	if c.ClearDescription {
		in.Description = ""
	}
	return in
}

func (c *EditCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	tx, err := a.client.GetTransaction(ctx, c.ID)
	if err != nil {
		return err
	}
	updated, err := a.txs.Save(ctx, a.client, a.scope(), c.ID, c.merge(tx))
	if err != nil {
		return err
	}
	if err := a.out.Transaction(view.NewRow(updated, a.money)); err != nil {
		return err
	}
	return a.out.Notice("Transaction updated")
}

type DeleteCmd struct {
	ID  int64 `arg:"" help:"Transaction id."`
	Yes bool  `short:"y" help:"Do not ask for confirmation."`
}

// confirmed asks on stdin; only y or yes counts.
func confirmed(g *Globals, prompt string) bool {
	fmt.Fprint(g.Stdout, prompt+" [y/N]: ")
	line, _ := bufio.NewReader(g.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (c *DeleteCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	if !c.Yes && !confirmed(g, fmt.Sprintf("Delete transaction #%d?", c.ID)) {
		fmt.Fprintln(g.Stdout, "Cancelled")
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()
	if err := a.txs.Delete(ctx, a.client, a.scope(), c.ID); err != nil {
		return err
	}
	return a.out.Notice(fmt.Sprintf("Transaction #%d deleted", c.ID))
}

type CalendarCmd struct {
	Year  int `help:"Year; defaults to the current one."`
	Month int `help:"Month 1-12; defaults to the current one."`
}

func (c *CalendarCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	now := time.Now()
	m := calendar.Current(now)
	if c.Year != 0 || c.Month != 0 {
		year, month := c.Year, c.Month
		if year == 0 {
			year = now.Year()
		}
		if month == 0 {
			month = int(now.Month())
		}
		if m, err = calendar.NewMonth(year, month); err != nil {
			return err
		}
	}

	ctx, cancel := commandContext()
	defer cancel()
	days, err := a.client.Calendar(ctx, m.Year, int(m.Month))
	if err != nil {
		return err
	}
	return a.out.Calendar(calendar.Build(m, days, now))
}

type DayCmd struct {
	Date string `arg:"" help:"YYYY-MM-DD."`
}

func (c *DayCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	store := calendar.NewStore(cache.NewLRUCache[[]core.CalendarDay](1, 0), a.logger)
	day, err := store.Day(ctx, a.scope(), a.client, c.Date)
	if err != nil {
		return err
	}
	return a.out.Day(view.NewDayView(day, a.money))
}
