package http

import (
	"fmt"
	"net/http"

	"fintrack/internal/calendar"
	"fintrack/internal/ledger"
)

// session resolves the ledger session a browser request acts for. A request
// with its own session cookie uses it. Its CSRF token comes only from the
// X-CSRFToken header set by the page, never from the cookie, so a forged
// request cannot borrow it. Anything else uses the configured fallback
// session, which mutating routes reach only past the same-origin check.
func (s *Server) session(r *http.Request) ledger.Session {
	c, err := r.Cookie(s.sessionCookie)
	if err != nil || c.Value == "" {
		return s.fallback
	}
	return ledger.Session{ID: c.Value, CSRFToken: r.Header.Get(ledger.CSRFHeader)}
}

// ledgerFor returns the ledger acting for the request's session and the
// calendar cache scope of that session.
func (s *Server) ledgerFor(r *http.Request) (ledger.Ledger, string, error) {
	sess := s.session(r)
	l, err := s.sessions.ForSession(sess)
	if err != nil {
		return nil, "", fmt.Errorf("bind session: %w", err)
	}
	return l, calendar.Scope(sess.ID), nil
}
