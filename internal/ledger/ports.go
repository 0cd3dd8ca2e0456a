package ledger

import (
	"context"

	"fintrack/internal/core"
)

// Ports for the remote ledger API.
type (
	BalanceReader interface {
		Balance(ctx context.Context) (core.Balance, error)
	}

	SummaryReader interface {
		Summary(ctx context.Context) (core.Summary, error)
	}

	AnalyticsReader interface {
		Analytics(ctx context.Context) (core.Analytics, error)
	}

	// TransactionLister returns every transaction of the session, newest first.
	TransactionLister interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	TransactionReader interface {
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	}

	// TransactionWriter issues exactly one request per call.
	TransactionWriter interface {
		CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	// CalendarReader returns the per-day aggregates of one month.
	CalendarReader interface {
		Calendar(ctx context.Context, year, month int) ([]core.CalendarDay, error)
	}

	Ledger interface {
		BalanceReader
		SummaryReader
		AnalyticsReader
		TransactionLister
		TransactionReader
		TransactionWriter
		CalendarReader
	}

	// Sessions hands out a Ledger acting for one caller's session.
	Sessions interface {
		ForSession(s Session) (Ledger, error)
		Ping(ctx context.Context) error
	}
)
