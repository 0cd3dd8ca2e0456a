package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/trace"
)

const (
	DefaultSessionCookie = "sessionid"
	DefaultCSRFCookie    = "csrftoken"
	CSRFHeader           = "X-CSRFToken"

	defaultTimeout  = 7 * time.Second
	maxResponseBody = 4 << 20
)

// Session is the cookie pair that authenticates calls to the API.
type Session struct {
	ID        string
	CSRFToken string
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *applog.Logger
	Session       Session
	SessionCookie string
	CSRFCookie    string
}

// Client talks to the ledger REST API. A Client holds one session; use
// WithSession to act for another one over the same transport.
type Client struct {
	base          *url.URL
	timeout       time.Duration
	transport     http.RoundTripper
	http          *http.Client
	jar           http.CookieJar
	logger        *applog.Logger
	sessionCookie string
	csrfCookie    string
}

var (
	_ Ledger   = (*Client)(nil)
	_ Sessions = (*Client)(nil)
)

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", opts.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("api url %q: missing host", opts.BaseURL)
	}
	base.Path = strings.TrimRight(base.Path, "/")

	c := &Client{
		base:          base,
		timeout:       opts.Timeout,
		logger:        opts.Logger,
		sessionCookie: opts.SessionCookie,
		csrfCookie:    opts.CSRFCookie,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.sessionCookie == "" {
		c.sessionCookie = DefaultSessionCookie
	}
	if c.csrfCookie == "" {
		c.csrfCookie = DefaultCSRFCookie
	}
	if c.logger == nil {
		c.logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentLedger})
	}
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		c.transport = opts.HTTPClient.Transport
	} else {
		c.transport = http.DefaultTransport
	}
	if err := c.resetJar(opts.Session); err != nil {
		return nil, err
	}
	return c, nil
}

// WithSession returns a client for another session sharing this client's
// transport and settings.
func (c *Client) WithSession(s Session) (*Client, error) {
	clone := *c
	if err := clone.resetJar(s); err != nil {
		return nil, err
	}
	return &clone, nil
}

// ForSession is WithSession behind the Sessions port.
func (c *Client) ForSession(s Session) (Ledger, error) {
	sc, err := c.WithSession(s)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (c *Client) resetJar(s Session) error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("create cookie jar: %w", err)
	}
	var cookies []*http.Cookie
	if s.ID != "" {
		cookies = append(cookies, &http.Cookie{Name: c.sessionCookie, Value: s.ID, Path: "/"})
	}
	if s.CSRFToken != "" {
		cookies = append(cookies, &http.Cookie{Name: c.csrfCookie, Value: s.CSRFToken, Path: "/"})
	}
	if len(cookies) > 0 {
		jar.SetCookies(c.base, cookies)
	}
	c.jar = jar
	c.http = &http.Client{Transport: c.transport, Jar: jar}
	return nil
}

// BaseURL returns the API root the client was configured with.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// CSRFToken returns the current token from the cookie jar. The server may
// rotate it through Set-Cookie, so it is read per request.
func (c *Client) CSRFToken() string {
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name == c.csrfCookie {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) Balance(ctx context.Context) (core.Balance, error) {
	var dto balanceDTO
	if err := c.do(ctx, http.MethodGet, "/transactions/balance/", nil, nil, &dto); err != nil {
		return core.Balance{}, err
	}
	return core.Balance{Balance: dto.Balance, TotalIncome: dto.TotalIncome, TotalExpense: dto.TotalExpense}, nil
}

func (c *Client) Summary(ctx context.Context) (core.Summary, error) {
	var dto summaryDTO
	if err := c.do(ctx, http.MethodGet, "/transactions/summary/", nil, nil, &dto); err != nil {
		return core.Summary{}, err
	}
	return core.Summary{
		IncomeByCategory:  categoryTotals(dto.IncomeByCategory),
		ExpenseByCategory: categoryTotals(dto.ExpenseByCategory),
	}, nil
}

func (c *Client) Analytics(ctx context.Context) (core.Analytics, error) {
	var dto analyticsDTO
	if err := c.do(ctx, http.MethodGet, "/transactions/analytics/", nil, nil, &dto); err != nil {
		return core.Analytics{}, err
	}
	return dto.toCore(), nil
}

func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	var dtos []transactionDTO
	if err := c.do(ctx, http.MethodGet, "/transactions/", nil, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toCore())
	}
	return out, nil
}

func (c *Client) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var dto transactionDTO
	if err := c.do(ctx, http.MethodGet, transactionPath(id), nil, nil, &dto); err != nil {
		return core.Transaction{}, err
	}
	return dto.toCore(), nil
}

func (c *Client) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	var dto transactionDTO
	if err := c.do(ctx, http.MethodPost, "/transactions/", nil, newTransactionRequest(in), &dto); err != nil {
		return core.Transaction{}, err
	}
	return dto.toCore(), nil
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	var dto transactionDTO
	if err := c.do(ctx, http.MethodPut, transactionPath(id), nil, newTransactionRequest(in), &dto); err != nil {
		return core.Transaction{}, err
	}
	return dto.toCore(), nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, transactionPath(id), nil, nil, nil)
}

func (c *Client) Calendar(ctx context.Context, year, month int) ([]core.CalendarDay, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month))
	var dtos []calendarDayDTO
	if err := c.do(ctx, http.MethodGet, "/transactions/calendar/", q, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]core.CalendarDay, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toCore())
	}
	return out, nil
}

// Ping checks that the API root answers at all. Any HTTP status counts as
// reachable; only transport errors fail.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint("/", nil), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping %s: %w", c.base.Host, err)
	}
	resp.Body.Close()
	return nil
}

func transactionPath(id int64) string {
	return "/transactions/" + strconv.FormatInt(id, 10) + "/"
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := trace.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	if isMutating(method) {
		if token := c.CSRFToken(); token != "" {
			req.Header.Set(CSRFHeader, token)
		} else {
			c.logger.WarnContext(ctx, "No CSRF token for mutating request",
				applog.FieldMethod, method, applog.FieldPath, path)
		}
		// Django's CSRF check over https also wants a same-origin Referer.
		req.Header.Set("Referer", c.base.Scheme+"://"+c.base.Host+"/")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Ledger request failed",
			applog.FieldMethod, method, applog.FieldPath, path,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldError, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(method, path, resp.StatusCode, payload)
		c.logger.ErrorContext(ctx, "Ledger request rejected",
			applog.FieldMethod, method, applog.FieldPath, path,
			applog.FieldStatusCode, resp.StatusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldError, apiErr.UserMessage())
		return apiErr
	}

	c.logger.DebugContext(ctx, "Ledger request completed",
		applog.FieldMethod, method, applog.FieldPath, path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
