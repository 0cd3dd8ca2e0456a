package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/cache"
	"fintrack/internal/calendar"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/ledgertest"
	applog "fintrack/internal/log"
)

var testNow = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.Local)

type harness struct {
	fake *ledgertest.Server
	srv  *Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := ledgertest.NewServer()
	t.Cleanup(fake.Close)

	client, err := ledger.New(ledger.Options{
		BaseURL: fake.APIURL(),
		Timeout: 2 * time.Second,
		Logger:  applog.Discard(),
	})
	require.NoError(t, err)

	store := calendar.NewStore(cache.NewLRUCache[[]core.CalendarDay](16, time.Minute), applog.Discard())
	srv, err := NewServer(Options{
		Sessions: client,
		Calendar: store,
		Caches:   cache.NewManager(applog.Discard()),
		Money:    core.NewMoneyFormatter("en", "₸"),
		Logger:   applog.Discard(),
		Fallback: ledger.Session{ID: "fallback-session", CSRFToken: "fallback-token"},
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &harness{fake: fake, srv: srv}
}

func (h *harness) do(method, target, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("HX-Request", "true")
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(w, req)
	return w
}

func (h *harness) addLunch() int64 {
	return h.fake.Add(ledgertest.Tx{
		Type:        core.Expense,
		Category:    "food",
		Amount:      decimal.RequireFromString("12.50"),
		Date:        time.Date(2025, time.January, 15, 10, 0, 0, 0, time.Local),
		Description: "lunch",
	})
}

func (h *harness) addSalary() int64 {
	return h.fake.Add(ledgertest.Tx{
		Type:     core.Income,
		Category: "salary",
		Amount:   decimal.RequireFromString("1000"),
		Date:     time.Date(2025, time.January, 10, 9, 0, 0, 0, time.Local),
	})
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestReadyz(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/readyz", "").Code)

	h.fake.Close()
	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, "/readyz", "").Code)
}

func TestDashboard_RendersAllSections(t *testing.T) {
	h := newHarness(t)
	h.addLunch()
	h.addSalary()

	w := h.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	assert.Contains(t, body, "987.5 ₸")
	assert.Contains(t, body, "🍔 Groceries")
	assert.Contains(t, body, "-12.5 ₸")
	assert.Contains(t, body, "+1,000 ₸")
	assert.Contains(t, body, "January 2025")
	assert.Contains(t, body, "Add transaction")
	assert.NotContains(t, body, "failed to load")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestDashboard_SectionFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.addLunch()
	h.fake.Fail(http.MethodGet, "/api/transactions/balance/", http.StatusInternalServerError, `{"detail":"boom"}`)

	w := h.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	assert.Contains(t, body, "Balance failed to load")
	assert.NotContains(t, body, "Transactions failed to load")
	assert.NotContains(t, body, "Calendar failed to load")
	assert.Contains(t, body, "🍔 Groceries")
}

func TestTransactions_Filter(t *testing.T) {
	h := newHarness(t)
	h.addLunch()
	h.addSalary()

	w := h.do(http.MethodGet, "/ui/transactions?filter=income", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Salary")
	assert.NotContains(t, w.Body.String(), "Groceries")
}

func TestCategories(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/ui/categories?type=income", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="salary"`)
	assert.NotContains(t, w.Body.String(), `value="food"`)

	w = h.do(http.MethodGet, "/ui/categories?type=bogus", "")
	assert.Contains(t, w.Body.String(), `value="food"`)
}

func TestSubmit_CreatesExactlyOnce(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/transactions",
		"id=&type=expense&category=food&amount=12%2C5&date=2025-01-15T10%3A00&description=+lunch+")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	muts := h.fake.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, http.MethodPost, muts[0].Method)
	assert.Equal(t, "/api/transactions/", muts[0].Path)
	assert.Equal(t, "fallback-token", muts[0].CSRFToken)
	assert.Contains(t, string(muts[0].Body), `"amount":"12.50"`)
	assert.Contains(t, string(muts[0].Body), `"description":"lunch"`)

	trigger := w.Header().Get("HX-Trigger")
	assert.Contains(t, trigger, EventLedgerChanged)
	assert.Contains(t, trigger, EventFormReset)
	assert.Contains(t, trigger, "Transaction added")
	assert.Contains(t, w.Body.String(), "New transaction")
}

func TestSubmit_UpdatesWithHiddenID(t *testing.T) {
	h := newHarness(t)
	id := h.addLunch()

	w := h.do(http.MethodPost, "/transactions",
		"id="+strconv.FormatInt(id, 10)+"&type=expense&category=transport&amount=30&date=2025-01-15T10%3A00")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	muts := h.fake.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, http.MethodPut, muts[0].Method)
	assert.Equal(t, "/api/transactions/"+strconv.FormatInt(id, 10)+"/", muts[0].Path)
	assert.Equal(t, "transport", h.fake.Transactions()[0].Category)
	assert.Contains(t, w.Header().Get("HX-Trigger"), "Transaction updated")
}

func TestSubmit_ValidationFailureSkipsLedger(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/transactions",
		"type=expense&category=food&amount=abc&date=2025-01-15T10%3A00&description=lunch")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, h.fake.Mutations())
	assert.Contains(t, w.Body.String(), "Enter a positive amount")
	assert.Contains(t, w.Body.String(), `value="lunch"`)
	assert.Contains(t, w.Header().Get("HX-Trigger"), `"type":"error"`)
}

func TestSubmit_BadHiddenID(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/transactions",
		"id=abc&type=expense&category=food&amount=1&date=2025-01-15T10%3A00")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, h.fake.Mutations())
}

func TestSubmit_APIErrorKeepsForm(t *testing.T) {
	h := newHarness(t)
	h.fake.Fail(http.MethodPost, "/api/transactions/", http.StatusBadRequest,
		`{"amount":["Ensure this value is greater than 0."]}`)

	w := h.do(http.MethodPost, "/transactions",
		"type=expense&category=food&amount=5&date=2025-01-15T10%3A00")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, h.fake.Mutations(), 1)
	assert.Contains(t, w.Body.String(), "amount: Ensure this value is greater than 0.")
	assert.NotContains(t, w.Header().Get("HX-Trigger"), EventLedgerChanged)
}

func TestSubmit_ForwardsBrowserSession(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/transactions",
		"type=income&category=gift&amount=5&date=2025-01-15T10%3A00",
		func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "sessionid", Value: "browser-session"})
			r.AddCookie(&http.Cookie{Name: "csrftoken", Value: "cookie-token"})
			r.Header.Set("X-CSRFToken", "header-token")
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	muts := h.fake.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, "browser-session", muts[0].Cookies["sessionid"])
	assert.Equal(t, "header-token", muts[0].CSRFToken)
	assert.NotEmpty(t, muts[0].RequestID)
}

func TestSubmit_IgnoresCSRFCookie(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/transactions",
		"type=income&category=gift&amount=5&date=2025-01-15T10%3A00",
		func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "sessionid", Value: "browser-session"})
			r.AddCookie(&http.Cookie{Name: "csrftoken", Value: "cookie-token"})
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	muts := h.fake.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, "browser-session", muts[0].Cookies["sessionid"])
	assert.Empty(t, muts[0].CSRFToken)
}

func TestMutations_RejectCrossSiteRequests(t *testing.T) {
	h := newHarness(t)
	id := strconv.FormatInt(h.addLunch(), 10)
	const form = "type=expense&category=food&amount=5&date=2025-01-15T10%3A00"
	plainForm := func(r *http.Request) { r.Header.Del("HX-Request") }
	victim := func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "sessionid", Value: "victim"})
		r.AddCookie(&http.Cookie{Name: "csrftoken", Value: "victim-token"})
	}
	evil := func(r *http.Request) { r.Header.Set("Origin", "https://evil.example") }
	crossFetch := func(r *http.Request) { r.Header.Set("Sec-Fetch-Site", "cross-site") }

	for _, w := range []*httptest.ResponseRecorder{
		h.do(http.MethodPost, "/transactions", form, plainForm),
		h.do(http.MethodPost, "/transactions", form, plainForm, victim),
		h.do(http.MethodPost, "/transactions", form, plainForm, victim, evil),
		h.do(http.MethodPost, "/transactions", form, evil),
		h.do(http.MethodPost, "/transactions", form, crossFetch),
		h.do(http.MethodPost, "/transactions/"+id+"/delete", "confirm=yes", plainForm),
		h.do(http.MethodDelete, "/transactions/"+id+"?confirm=yes", "", evil),
	} {
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "none", w.Header().Get("HX-Reswap"))
	}
	assert.Empty(t, h.fake.Mutations())
	assert.Len(t, h.fake.Transactions(), 1)
	assert.Equal(t, int64(7), h.srv.Metrics().Security.CrossSiteRequests)

	sameOrigin := func(r *http.Request) {
		r.Header.Set("Origin", "http://example.com")
		r.Header.Set("Sec-Fetch-Site", "same-origin")
	}
	w := h.do(http.MethodPost, "/transactions", form, sameOrigin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, h.fake.Mutations(), 1)
}

func TestEdit_PrefillsForm(t *testing.T) {
	h := newHarness(t)
	id := h.addLunch()

	w := h.do(http.MethodGet, "/transactions/"+strconv.FormatInt(id, 10)+"/edit", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `value="12.50"`)
	assert.Contains(t, body, `name="id" value="`+strconv.FormatInt(id, 10)+`"`)
	assert.Contains(t, body, "Save changes")
	assert.Empty(t, h.fake.Mutations())
}

func TestEdit_NotFound(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/transactions/99/edit", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "none", w.Header().Get("HX-Reswap"))
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	id := strconv.FormatInt(h.addLunch(), 10)

	for _, w := range []*httptest.ResponseRecorder{
		h.do(http.MethodGet, "/transactions/"+id+"/delete", ""),
		h.do(http.MethodPost, "/transactions/"+id+"/delete", ""),
		h.do(http.MethodPost, "/transactions/"+id+"/delete", "confirm=no"),
		h.do(http.MethodDelete, "/transactions/"+id, ""),
	} {
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Delete transaction?")
	}
	assert.Empty(t, h.fake.Mutations())
	assert.Len(t, h.fake.Transactions(), 1)
}

func TestDelete_Confirmed(t *testing.T) {
	h := newHarness(t)
	id := strconv.FormatInt(h.addLunch(), 10)

	w := h.do(http.MethodPost, "/transactions/"+id+"/delete", "confirm=yes")
	require.Equal(t, http.StatusOK, w.Code)

	muts := h.fake.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, http.MethodDelete, muts[0].Method)
	assert.Empty(t, h.fake.Transactions())

	trigger := w.Header().Get("HX-Trigger")
	assert.Contains(t, trigger, EventLedgerChanged)
	assert.Contains(t, trigger, EventModalClose)
}

func TestDelete_ConfirmedViaQuery(t *testing.T) {
	h := newHarness(t)
	id := strconv.FormatInt(h.addLunch(), 10)

	w := h.do(http.MethodDelete, "/transactions/"+id+"?confirm=yes", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, h.fake.Mutations(), 1)
}

func TestDelete_MissingTransaction(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/transactions/7/delete", "confirm=yes")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("HX-Trigger"), EventModalClose)
	assert.NotContains(t, w.Header().Get("HX-Trigger"), EventLedgerChanged)
}

func TestCalendar_CachesUntilMutation(t *testing.T) {
	h := newHarness(t)
	id := strconv.FormatInt(h.addLunch(), 10)
	calls := func() int { return len(h.fake.RequestsMatching(http.MethodGet, "/api/transactions/calendar/")) }

	w := h.do(http.MethodGet, "/ui/calendar?year=2025&month=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "January 2025")
	assert.Contains(t, w.Body.String(), "day=2025-01-15")

	h.do(http.MethodGet, "/ui/calendar?year=2025&month=1", "")
	assert.Equal(t, 1, calls())

	h.do(http.MethodPost, "/transactions/"+id+"/delete", "confirm=yes")
	h.do(http.MethodGet, "/ui/calendar?year=2025&month=1", "")
	assert.Equal(t, 2, calls())
}

func TestCalendar_Navigation(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/ui/calendar?year=2025&month=12", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "December 2025")
	assert.Contains(t, body, "year=2026&month=1")
	assert.Contains(t, body, "year=2025&month=11")

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/ui/calendar?year=2025&month=13", "").Code)
}

func TestCalendar_FailureKeepsNavigation(t *testing.T) {
	h := newHarness(t)
	h.fake.Fail(http.MethodGet, "/api/transactions/calendar/", http.StatusBadGateway, `{"detail":"down"}`)

	w := h.do(http.MethodGet, "/ui/calendar?year=2025&month=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Calendar failed to load")
	assert.Contains(t, w.Body.String(), "Previous month")
}

func TestCalendarDay(t *testing.T) {
	h := newHarness(t)
	h.addLunch()

	w := h.do(http.MethodGet, "/ui/calendar/day?date=2025-01-15", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "15.01.2025")
	assert.Contains(t, w.Body.String(), "lunch")

	w = h.do(http.MethodGet, "/ui/calendar/day?date=2025-01-16", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No transactions on this day")

	w = h.do(http.MethodGet, "/ui/calendar/day?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetrics(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/healthz", "")
	h.do("TRACE", "/", "")

	m := h.srv.Metrics()
	assert.Equal(t, int64(2), m.Requests.TotalRequests)
	assert.Equal(t, int64(1), m.Security.BlockedRequests)
	assert.Zero(t, m.RateLimit.TotalHits)
}

func TestBlockedMethod(t *testing.T) {
	h := newHarness(t)
	w := h.do("TRACE", "/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
