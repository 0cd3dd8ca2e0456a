// Command fintrack is the personal finance client: a server-rendered web UI
// and terminal commands over the same ledger API.
package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"fintrack/internal/cache"
	"fintrack/internal/calendar"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/term"
)

const shutdownTimeout = 30 * time.Second

// Globals are the flags shared by every command. Each one overrides the
// matching environment setting.
type Globals struct {
	APIURL    string `name:"api-url" help:"Ledger API root, e.g. http://localhost:8000/api."`
	Session   string `name:"session" help:"Session id sent as the session cookie."`
	CSRFToken string `name:"csrf-token" help:"CSRF token for mutating requests."`
	EnvFile   string `name:"env-file" type:"path" help:"Load environment from this file instead of ./.env."`
	LogLevel  string `name:"log-level" help:"debug, info, warn or error."`

	Stdin  io.Reader `kong:"-"`
	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

// CLI is the command tree.
type CLI struct {
	Globals `embed:""`

	Serve     ServeCmd     `cmd:"" help:"Run the web client."`
	Balance   BalanceCmd   `cmd:"" help:"Show the balance."`
	Analytics AnalyticsCmd `cmd:"" help:"Compare this month's spending with last month."`
	Summary   SummaryCmd   `cmd:"" help:"Show totals by category."`
	List      ListCmd      `cmd:"" help:"List transactions."`
	Show      ShowCmd      `cmd:"" help:"Show one transaction."`
	Add       AddCmd       `cmd:"" help:"Add a transaction."`
	Edit      EditCmd      `cmd:"" help:"Change fields of a transaction."`
	Delete    DeleteCmd    `cmd:"" help:"Delete a transaction."`
	Calendar  CalendarCmd  `cmd:"" help:"Show a month calendar."`
	Day       DayCmd       `cmd:"" help:"Show the transactions of one day."`
}

// app is what a command needs once configuration has been resolved.
type app struct {
	cfg    *config.Config
	logger *applog.Logger
	client *ledger.Client
	money  core.MoneyFormatter
	out    *term.Renderer
	txs    *services.TransactionService
}

// scope is the cache and log scope of the configured session.
func (a *app) scope() string {
	return calendar.Scope(a.cfg.SessionID)
}

func (g *Globals) streams() {
	if g.Stdin == nil {
		g.Stdin = os.Stdin
	}
	if g.Stdout == nil {
		g.Stdout = os.Stdout
	}
	if g.Stderr == nil {
		g.Stderr = os.Stderr
	}
}

// setup loads .env and the environment, applies flag overrides and builds
// the logger and ledger client.
func (g *Globals) setup() (*app, error) {
	g.streams()
	if err := cli.LoadEnvFile(g.EnvFile); err != nil {
		return nil, err
	}
	cfg := config.Load()
	if g.APIURL != "" {
		cfg.APIURL = g.APIURL
	}
	if g.Session != "" {
		cfg.SessionID = g.Session
	}
	if g.CSRFToken != "" {
		cfg.CSRFToken = g.CSRFToken
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := cli.SetupLogger(g.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	client, err := cli.NewLedgerClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	money := core.NewMoneyFormatter(cfg.Locale, cfg.Currency)
	return &app{
		cfg:    cfg,
		logger: logger,
		client: client,
		money:  money,
		out:    term.New(g.Stdout, money),
		txs:    services.NewTransactionService(nil, logger),
	}, nil
}

type ServeCmd struct {
	Port string `help:"Listen port, overrides PORT."`
}

func (c *ServeCmd) Run(g *Globals) error {
	a, err := g.setup()
	if err != nil {
		return err
	}
	if c.Port != "" {
		a.cfg.Port = c.Port
		if err := a.cfg.Validate(); err != nil {
			return err
		}
	}

	months := cache.NewLRUCache[[]core.CalendarDay](a.cfg.CalendarCacheSize, a.cfg.CalendarCacheTTL)
	caches := cache.NewManager(a.logger)
	caches.Register(months)
	if a.cfg.CalendarCacheTTL > 0 {
		caches.StartCleanup(a.cfg.CalendarCacheTTL)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               a.cfg.Addr(),
		Sessions:           a.client,
		Calendar:           calendar.NewStore(months, a.logger),
		Caches:             caches,
		Money:              a.money,
		Logger:             a.logger,
		Fallback:           ledger.Session{ID: a.cfg.SessionID, CSRFToken: a.cfg.CSRFToken},
		SessionCookie:      a.cfg.SessionCookie,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
	})
	if err != nil {
		return err
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(a.logger, shutdownTimeout, srv.Shutdown)

	a.logger.Info("Starting fintrack server",
		"addr", a.cfg.Addr(), applog.FieldAPIURL, a.client.BaseURL())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", a.cfg.Addr(), err)
	}
	cli.WaitForShutdown(ctx, done)
	a.logger.Info("Server stopped gracefully")
	return nil
}

func newParser(c *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("fintrack"),
		kong.Description("Personal finance tracker client."),
		kong.UsageOnError(),
	}, options...)
	return kong.New(c, options...)
}

func main() {
	var c CLI
	parser, err := newParser(&c)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	ctx.FatalIfErrorf(ctx.Run(&c.Globals))
}
