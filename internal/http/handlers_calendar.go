package http

import (
	"errors"
	"net/http"

	"fintrack/internal/calendar"
	"fintrack/internal/view"
)

// handleCalendar renders one month; without year and month it renders the
// current one.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, err := calendar.ParseMonth(q.Get("year"), q.Get("month"), s.now())
	if err != nil {
		BadRequestError("Invalid month").Header("HX-Reswap", "none").Write(w)
		return
	}
	l, scope, err := s.ledgerFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "calendar", s.loadCalendar(r.Context(), l, scope, m))
}

// handleCalendarDay renders the day dialog from the cached month.
func (s *Server) handleCalendarDay(w http.ResponseWriter, r *http.Request) {
	l, scope, err := s.ledgerFor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	day, err := s.calendar.Day(r.Context(), scope, l, r.URL.Query().Get("date"))
	if errors.Is(err, calendar.ErrInvalidMonth) {
		BadRequestError("Invalid date").Header("HX-Reswap", "none").Write(w)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "day", view.NewDayView(day, s.money))
}
