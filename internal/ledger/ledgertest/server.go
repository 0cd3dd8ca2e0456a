// Package ledgertest provides an in-process fake of the ledger REST API.
package ledgertest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Request is one call observed by the fake.
type Request struct {
	Method    string
	Path      string
	Query     string
	CSRFToken string
	RequestID string
	Cookies   map[string]string
	Body      []byte
}

// Tx is a stored transaction.
type Tx struct {
	ID          int64
	Type        core.TxType
	Category    string
	Amount      decimal.Decimal
	Date        time.Time
	Description string
}

type failure struct {
	status int
	body   string
}

// Server fakes the API under /api/. Aggregates are computed from the stored
// transactions; analytics is canned and can be replaced with SetAnalytics.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	requests  []Request
	txs       []Tx
	nextID    int64
	analytics string
	failures  map[string]failure
}

const defaultAnalytics = `{"current_month_total":0,"previous_month_total":0,"change_percent":0,"trend":"stable","top_category":null,"category_breakdown":[]}`

func NewServer() *Server {
	s := &Server{
		nextID:    1,
		analytics: defaultAnalytics,
		failures:  make(map[string]failure),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/transactions/{$}", s.handleList)
	mux.HandleFunc("POST /api/transactions/{$}", s.handleCreate)
	mux.HandleFunc("GET /api/transactions/balance/", s.handleBalance)
	mux.HandleFunc("GET /api/transactions/summary/", s.handleSummary)
	mux.HandleFunc("GET /api/transactions/analytics/", s.handleAnalytics)
	mux.HandleFunc("GET /api/transactions/calendar/", s.handleCalendar)
	mux.HandleFunc("GET /api/transactions/{id}/", s.handleGet)
	mux.HandleFunc("PUT /api/transactions/{id}/", s.handleUpdate)
	mux.HandleFunc("DELETE /api/transactions/{id}/", s.handleDelete)
	s.Server = httptest.NewServer(s.record(mux))
	return s
}

// URL of the API root, suitable as a client base URL.
func (s *Server) APIURL() string {
	return s.Server.URL + "/api"
}

// Add stores a transaction and returns its id.
func (s *Server) Add(tx Tx) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.nextID
	s.nextID++
	s.txs = append(s.txs, tx)
	return tx.ID
}

// SetAnalytics replaces the analytics response body.
func (s *Server) SetAnalytics(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analytics = body
}

// Fail makes every call to method+path answer with status and body.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

// Requests returns a copy of the observed calls.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsMatching returns the observed calls with the given method and path.
func (s *Server) RequestsMatching(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Mutations returns the observed POST, PUT and DELETE calls.
func (s *Server) Mutations() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			out = append(out, r)
		}
	}
	return out
}

// Transactions returns the stored transactions.
func (s *Server) Transactions() []Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Tx(nil), s.txs...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		cookies := make(map[string]string)
		for _, c := range r.Cookies() {
			cookies[c.Name] = c.Value
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			CSRFToken: r.Header.Get("X-CSRFToken"),
			RequestID: r.Header.Get("X-Request-ID"),
			Cookies:   cookies,
			Body:      body,
		})
		f, failed := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if failed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type txJSON struct {
	ID              int64  `json:"id"`
	Date            string `json:"date"`
	Category        string `json:"category"`
	CategoryDisplay string `json:"category_display"`
	Amount          string `json:"amount"`
	Type            string `json:"type"`
	TypeDisplay     string `json:"type_display"`
	Description     string `json:"description"`
}

func toJSON(tx Tx) txJSON {
	display := "Expense"
	if tx.Type == core.Income {
		display = "Income"
	}
	return txJSON{
		ID:              tx.ID,
		Date:            tx.Date.Format(time.RFC3339),
		Category:        tx.Category,
		CategoryDisplay: tx.Category,
		Amount:          tx.Amount.StringFixed(2),
		Type:            string(tx.Type),
		TypeDisplay:     display,
		Description:     tx.Description,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) sorted() []Tx {
	txs := s.Transactions()
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })
	return txs
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	out := make([]txJSON, 0)
	for _, tx := range s.sorted() {
		out = append(out, toJSON(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.find(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, toJSON(tx))
}

func (s *Server) find(rawID string) (Tx, bool) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return Tx{}, false
	}
	for _, tx := range s.Transactions() {
		if tx.ID == id {
			return tx, true
		}
	}
	return Tx{}, false
}

func decodeInput(r *http.Request) (Tx, map[string][]string) {
	var in struct {
		Type        string `json:"type"`
		Category    string `json:"category"`
		Amount      string `json:"amount"`
		Date        string `json:"date"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return Tx{}, map[string][]string{"non_field_errors": {err.Error()}}
	}
	errs := map[string][]string{}
	t, err := core.ParseTxType(in.Type)
	if err != nil {
		errs["type"] = []string{fmt.Sprintf("\"%s\" is not a valid choice.", in.Type)}
	}
	amount, err := decimal.NewFromString(in.Amount)
	if err != nil {
		errs["amount"] = []string{"A valid number is required."}
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		errs["date"] = []string{"Datetime has wrong format."}
	}
	if in.Category == "" {
		errs["category"] = []string{"This field is required."}
	}
	if len(errs) > 0 {
		return Tx{}, errs
	}
	return Tx{Type: t, Category: in.Category, Amount: amount, Date: date, Description: in.Description}, nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	tx, errs := decodeInput(r)
	if errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	tx.ID = s.Add(tx)
	writeJSON(w, http.StatusCreated, toJSON(tx))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.find(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	tx, errs := decodeInput(r)
	if errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	tx.ID = existing.ID
	s.mu.Lock()
	for i := range s.txs {
		if s.txs[i].ID == tx.ID {
			s.txs[i] = tx
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, toJSON(tx))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.find(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	s.mu.Lock()
	kept := s.txs[:0]
	for _, tx := range s.txs {
		if tx.ID != existing.ID {
			kept = append(kept, tx)
		}
	}
	s.txs = kept
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range s.Transactions() {
		if tx.Type == core.Income {
			income = income.Add(tx.Amount)
		} else {
			expense = expense.Add(tx.Amount)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"balance":       income.Sub(expense).StringFixed(2),
		"total_income":  income.StringFixed(2),
		"total_expense": expense.StringFixed(2),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	type row struct {
		Category string `json:"category"`
		Total    string `json:"total"`
	}
	totals := map[core.TxType]map[string]decimal.Decimal{core.Income: {}, core.Expense: {}}
	for _, tx := range s.Transactions() {
		totals[tx.Type][tx.Category] = totals[tx.Type][tx.Category].Add(tx.Amount)
	}
	rows := func(t core.TxType) []row {
		out := make([]row, 0)
		for _, c := range core.Categories(t) {
			if v, ok := totals[t][c.Key]; ok {
				out = append(out, row{Category: c.Key, Total: v.StringFixed(2)})
			}
		}
		return out
	}
	writeJSON(w, http.StatusOK, map[string][]row{
		"income_by_category":  rows(core.Income),
		"expense_by_category": rows(core.Expense),
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := s.analytics
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if v, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil {
		year = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil {
		month = v
	}
	type dayTx struct {
		ID          int64   `json:"id"`
		Type        string  `json:"type"`
		Category    string  `json:"category"`
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
	}
	type day struct {
		Date         string  `json:"date"`
		Transactions []dayTx `json:"transactions"`
		TotalIncome  float64 `json:"total_income"`
		TotalExpense float64 `json:"total_expense"`
	}
	var order []string
	days := map[string]*day{}
	for _, tx := range s.sorted() {
		if tx.Date.Year() != year || int(tx.Date.Month()) != month {
			continue
		}
		key := tx.Date.Format(core.DayLayout)
		d, ok := days[key]
		if !ok {
			d = &day{Date: key, Transactions: []dayTx{}}
			days[key] = d
			order = append(order, key)
		}
		amt := tx.Amount.InexactFloat64()
		d.Transactions = append(d.Transactions, dayTx{ID: tx.ID, Type: string(tx.Type), Category: tx.Category, Amount: amt, Description: tx.Description})
		if tx.Type == core.Income {
			d.TotalIncome += amt
		} else {
			d.TotalExpense += amt
		}
	}
	out := make([]day, 0, len(order))
	for _, k := range order {
		out = append(out, *days[k])
	}
	writeJSON(w, http.StatusOK, out)
}
