package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/ledger/ledgertest"
	"fintrack/internal/middleware/trace"
)

func newTestClient(t *testing.T, fake *ledgertest.Server, s Session) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: fake.APIURL(), Timeout: 2 * time.Second, Session: s})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURLs(t *testing.T) {
	for _, raw := range []string{"", "ftp://x/api", "http:///api", "::"} {
		_, err := New(Options{BaseURL: raw})
		assert.Error(t, err, raw)
	}
}

func TestBalance(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()
	fake.Add(ledgertest.Tx{Type: core.Income, Category: "salary", Amount: decimal.RequireFromString("1000"), Date: time.Now()})
	fake.Add(ledgertest.Tx{Type: core.Expense, Category: "food", Amount: decimal.RequireFromString("250.50"), Date: time.Now()})

	b, err := newTestClient(t, fake, Session{ID: "s1"}).Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, b.Balance.Equal(decimal.RequireFromString("749.50")), b.Balance.String())
	assert.True(t, b.TotalIncome.Equal(decimal.NewFromInt(1000)))
	assert.True(t, b.TotalExpense.Equal(decimal.RequireFromString("250.5")))

	reqs := fake.RequestsMatching(http.MethodGet, "/api/transactions/balance/")
	require.Len(t, reqs, 1)
	assert.Equal(t, "s1", reqs[0].Cookies["sessionid"])
}

func TestListAndGetTransaction(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()
	older := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 1, 12, 18, 30, 0, 0, time.UTC)
	fake.Add(ledgertest.Tx{Type: core.Expense, Category: "food", Amount: decimal.RequireFromString("9.99"), Date: older, Description: "bread"})
	id := fake.Add(ledgertest.Tx{Type: core.Income, Category: "gift", Amount: decimal.RequireFromString("50"), Date: newer})

	c := newTestClient(t, fake, Session{})
	txs, err := c.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, id, txs[0].ID, "newest first")
	assert.Equal(t, "bread", txs[1].Description)
	assert.True(t, txs[1].Date.Equal(older))

	tx, err := c.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, core.Income, tx.Type)
	assert.Equal(t, "Income", tx.TypeDisplay)

	_, err = c.GetTransaction(context.Background(), 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateTransaction_EchoesCSRFToken(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()

	c := newTestClient(t, fake, Session{ID: "sess", CSRFToken: "tok-123"})
	ctx := trace.WithRequestID(context.Background(), "req_abc")
	tx, err := c.CreateTransaction(ctx, core.TransactionInput{
		Type: "expense", Category: "transport", Amount: "12,5", Date: "2025-03-01T08:15", Description: " bus ",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), tx.ID)

	muts := fake.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, http.MethodPost, muts[0].Method)
	assert.Equal(t, "/api/transactions/", muts[0].Path)
	assert.Equal(t, "tok-123", muts[0].CSRFToken)
	assert.Equal(t, "req_abc", muts[0].RequestID)

	var body map[string]string
	require.NoError(t, json.Unmarshal(muts[0].Body, &body))
	assert.Equal(t, map[string]string{
		"type": "expense", "category": "transport", "amount": "12.50", "date": "2025-03-01T08:15", "description": "bus",
	}, body)
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()
	id := fake.Add(ledgertest.Tx{Type: core.Expense, Category: "food", Amount: decimal.NewFromInt(3), Date: time.Now()})

	c := newTestClient(t, fake, Session{CSRFToken: "t"})
	updated, err := c.UpdateTransaction(context.Background(), id, core.TransactionInput{
		Type: "expense", Category: "health", Amount: "4", Date: "2025-03-02T10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "health", updated.Category)

	require.NoError(t, c.DeleteTransaction(context.Background(), id))
	assert.Empty(t, fake.Transactions())

	muts := fake.Mutations()
	require.Len(t, muts, 2)
	assert.Equal(t, http.MethodPut, muts[0].Method)
	assert.Equal(t, http.MethodDelete, muts[1].Method)
	for _, m := range muts {
		assert.Equal(t, "t", m.CSRFToken)
	}
}

func TestMutationWithoutTokenStillSent(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()
	id := fake.Add(ledgertest.Tx{Type: core.Expense, Category: "food", Amount: decimal.NewFromInt(3), Date: time.Now()})

	require.NoError(t, newTestClient(t, fake, Session{}).DeleteTransaction(context.Background(), id))
	muts := fake.Mutations()
	require.Len(t, muts, 1)
	assert.Empty(t, muts[0].CSRFToken)
}

func TestWithSession_IsolatesCookies(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()

	base := newTestClient(t, fake, Session{ID: "a", CSRFToken: "ta"})
	other, err := base.WithSession(Session{ID: "b", CSRFToken: "tb"})
	require.NoError(t, err)

	assert.Equal(t, "ta", base.CSRFToken())
	assert.Equal(t, "tb", other.CSRFToken())

	_, err = other.ListTransactions(context.Background())
	require.NoError(t, err)
	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "b", reqs[0].Cookies["sessionid"])
}

func TestCSRFTokenFollowsRotation(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get(CSRFHeader))
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "rotated", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL + "/api", Session: Session{CSRFToken: "first"}})
	require.NoError(t, err)
	require.NoError(t, c.DeleteTransaction(context.Background(), 1))
	require.NoError(t, c.DeleteTransaction(context.Background(), 2))
	assert.Equal(t, []string{"first", "rotated"}, seen)
}

func TestAPIErrors(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()
	fake.Fail(http.MethodPost, "/api/transactions/", http.StatusBadRequest, `{"amount":["Ensure that there are no more than 10 digits in total."]}`)
	fake.Fail(http.MethodGet, "/api/transactions/balance/", http.StatusForbidden, `{"detail":"Authentication credentials were not provided."}`)
	fake.Fail(http.MethodGet, "/api/transactions/", http.StatusBadGateway, `<html>bad gateway</html>`)

	c := newTestClient(t, fake, Session{})

	_, err := c.CreateTransaction(context.Background(), core.TransactionInput{Type: "expense", Category: "food", Amount: "1", Date: "2025-01-01T00:00"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "amount: Ensure that there are no more than 10 digits in total.", apiErr.UserMessage())

	_, err = c.Balance(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Authentication credentials were not provided.", apiErr.UserMessage())

	_, err = c.ListTransactions(context.Background())
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "<html>bad gateway</html>", apiErr.Message)
}

func TestAnalytics(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()
	fake.SetAnalytics(`{"current_month_total":1500.5,"previous_month_total":1000.0,"change_percent":50.05,"trend":"up",
		"top_category":{"category":"food","total":"900.00"},
		"category_breakdown":[{"category":"food","total":"900.00"},{"category":"transport","total":"600.50"}]}`)

	a, err := newTestClient(t, fake, Session{}).Analytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.TrendUp, a.Trend)
	assert.True(t, a.ChangePercent.Equal(decimal.RequireFromString("50.05")))
	require.NotNil(t, a.TopCategory)
	assert.Equal(t, "food", a.TopCategory.Category)
	assert.Len(t, a.CategoryBreakdown, 2)
}

func TestAnalytics_MissingTrendDerivedFromChange(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()
	fake.SetAnalytics(`{"current_month_total":1,"previous_month_total":2,"change_percent":-50,"top_category":null,"category_breakdown":[]}`)

	a, err := newTestClient(t, fake, Session{}).Analytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.TrendDown, a.Trend)
	assert.Nil(t, a.TopCategory)
}

func TestCalendar(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()
	day := time.Date(2025, 2, 14, 12, 0, 0, 0, time.Local)
	fake.Add(ledgertest.Tx{Type: core.Income, Category: "gift", Amount: decimal.NewFromInt(100), Date: day})
	fake.Add(ledgertest.Tx{Type: core.Expense, Category: "food", Amount: decimal.RequireFromString("30.25"), Date: day})
	fake.Add(ledgertest.Tx{Type: core.Expense, Category: "food", Amount: decimal.NewFromInt(1), Date: day.AddDate(0, 1, 0)})

	days, err := newTestClient(t, fake, Session{}).Calendar(context.Background(), 2025, 2)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2025-02-14", days[0].Date)
	assert.True(t, days[0].HasIncome())
	assert.True(t, days[0].TotalExpense.Equal(decimal.RequireFromString("30.25")))
	assert.Len(t, days[0].Transactions, 2)

	reqs := fake.RequestsMatching(http.MethodGet, "/api/transactions/calendar/")
	require.Len(t, reqs, 1)
	assert.Equal(t, "month=2&year=2025", reqs[0].Query)
}

func TestSummary(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()
	fake.Add(ledgertest.Tx{Type: core.Expense, Category: "food", Amount: decimal.NewFromInt(5), Date: time.Now()})
	fake.Add(ledgertest.Tx{Type: core.Expense, Category: "food", Amount: decimal.NewFromInt(7), Date: time.Now()})

	s, err := newTestClient(t, fake, Session{}).Summary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.IncomeByCategory)
	require.Len(t, s.ExpenseByCategory, 1)
	assert.True(t, s.ExpenseByCategory[0].Total.Equal(decimal.NewFromInt(12)))
}

func TestPing(t *testing.T) {
	fake := ledgertest.NewServer()
	defer fake.Close()
	assert.NoError(t, newTestClient(t, fake, Session{}).Ping(context.Background()))

	c, err := New(Options{BaseURL: "http://127.0.0.1:1/api", Timeout: 500 * time.Millisecond})
	require.NoError(t, err)
	assert.Error(t, c.Ping(context.Background()))
}
