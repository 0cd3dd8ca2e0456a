package http

import (
	"context"
	"net/http"
	"sync"

	"fintrack/internal/calendar"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/view"
)

// section is one independently loaded part of the dashboard. Failed renders
// a placeholder instead of Data.
type section[T any] struct {
	Data   T
	Failed bool
}

type transactionsData struct {
	Filter  view.Filter
	Filters []view.Filter
	Rows    []view.TransactionRow
	Failed  bool
}

type calendarData struct {
	Grid     calendar.Grid
	Weekdays [7]string
	Failed   bool
}

type dashboardData struct {
	Balance      section[view.BalanceView]
	Analytics    section[view.AnalyticsView]
	Summary      section[view.SummaryView]
	Form         view.FormState
	Transactions transactionsData
	Calendar     calendarData
}

// handleDashboard loads every section concurrently. A failing section is
// rendered as failed without affecting the others.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	l, scope, err := s.ledgerFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := r.Context()
	now := s.now()
	data := dashboardData{Form: view.NewForm(now)}

	var wg sync.WaitGroup
	load := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	load(func() { data.Balance = s.loadBalance(ctx, l) })
	load(func() { data.Analytics = s.loadAnalytics(ctx, l) })
	load(func() { data.Summary = s.loadSummary(ctx, l) })
	load(func() { data.Transactions = s.loadTransactions(ctx, l, view.FilterAll) })
	load(func() { data.Calendar = s.loadCalendar(ctx, l, scope, calendar.Current(now)) })
	wg.Wait()

	s.render(w, r, NewHTMXResponse(), "dashboard.html", data)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	l, _, err := s.ledgerFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "balance", s.loadBalance(r.Context(), l))
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	l, _, err := s.ledgerFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "analytics", s.loadAnalytics(r.Context(), l))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	l, _, err := s.ledgerFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "summary", s.loadSummary(r.Context(), l))
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	l, _, err := s.ledgerFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	filter := view.ParseFilter(r.URL.Query().Get("filter"))
	s.render(w, r, NewHTMXResponse(), "transactions", s.loadTransactions(r.Context(), l, filter))
}

func (s *Server) loadBalance(ctx context.Context, l ledger.BalanceReader) section[view.BalanceView] {
	b, err := l.Balance(ctx)
	if err != nil {
		s.sectionFailed(ctx, "balance", err)
		return section[view.BalanceView]{Failed: true}
	}
	return section[view.BalanceView]{Data: view.NewBalanceView(b, s.money)}
}

func (s *Server) loadAnalytics(ctx context.Context, l ledger.AnalyticsReader) section[view.AnalyticsView] {
	a, err := l.Analytics(ctx)
	if err != nil {
		s.sectionFailed(ctx, "analytics", err)
		return section[view.AnalyticsView]{Failed: true}
	}
	return section[view.AnalyticsView]{Data: view.NewAnalyticsView(a, s.money)}
}

func (s *Server) loadSummary(ctx context.Context, l ledger.SummaryReader) section[view.SummaryView] {
	sum, err := l.Summary(ctx)
	if err != nil {
		s.sectionFailed(ctx, "summary", err)
		return section[view.SummaryView]{Failed: true}
	}
	return section[view.SummaryView]{Data: view.NewSummaryView(sum, s.money)}
}

func (s *Server) loadTransactions(ctx context.Context, l ledger.TransactionLister, f view.Filter) transactionsData {
	data := transactionsData{Filter: f, Filters: view.Filters}
	txs, err := l.ListTransactions(ctx)
	if err != nil {
		s.sectionFailed(ctx, "transactions", err)
		data.Failed = true
		return data
	}
	data.Rows = view.Rows(view.Apply(f, txs), s.money)
	return data
}

// loadCalendar keeps the month navigation usable when the month fails to
// load.
func (s *Server) loadCalendar(ctx context.Context, l ledger.CalendarReader, scope string, m calendar.Month) calendarData {
	data := calendarData{Weekdays: calendar.Weekdays}
	days, err := s.calendar.Get(ctx, scope, l, m)
	if err != nil {
		s.sectionFailed(ctx, "calendar", err)
		data.Failed = true
		days = nil
	}
	data.Grid = calendar.Build(m, days, s.now())
	return data
}

func (s *Server) sectionFailed(ctx context.Context, name string, err error) {
	applog.FromContext(ctx).WarnContext(ctx, "Dashboard section failed to load",
		applog.FieldSection, name, applog.FieldError, err)
}

// fail reports a request-level ledger error as a notification without
// swapping the target.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := failure(err)
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		applog.FieldStatusCode, status, applog.FieldError, err)
	ErrorResponse(status, msg).Header("HX-Reswap", "none").Write(w)
}
