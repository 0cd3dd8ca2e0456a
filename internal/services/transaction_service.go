// Package services orchestrates transaction mutations: local validation,
// exactly one ledger request, cache invalidation and the audit log line.
package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/trace"
)

// Invalidator drops cached data of a session scope after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, scope string)
}

// ValidationError is returned when input fails the local checks. No request
// was sent.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid transaction: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err came from local validation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type TransactionService struct {
	invalidator Invalidator
	logger      *applog.Logger
}

// NewTransactionService builds a service; invalidator may be nil when
// nothing is cached.
func NewTransactionService(invalidator Invalidator, logger *applog.Logger) *TransactionService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &TransactionService{
		invalidator: invalidator,
		logger:      logger.WithComponent(applog.ComponentLedger),
	}
}

// Save creates the transaction when id is zero and updates it otherwise.
func (s *TransactionService) Save(ctx context.Context, w ledger.TransactionWriter, scope string, id int64, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, &ValidationError{Err: err}
	}
	in = in.Normalized()

	op := applog.OpCreate
	var (
		tx  core.Transaction
		err error
	)
	if id > 0 {
		op = applog.OpUpdate
		tx, err = w.UpdateTransaction(ctx, id, in)
	} else {
		tx, err = w.CreateTransaction(ctx, in)
	}
	if err != nil {
		s.logFailure(ctx, op, id, err)
		if id > 0 {
			return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.invalidate(ctx, scope)
	s.events(ctx).LogMutation(ctx, op, tx.ID, string(tx.Type), tx.Category, tx.Amount.StringFixed(2))
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, w ledger.TransactionWriter, scope string, id int64) error {
	if err := w.DeleteTransaction(ctx, id); err != nil {
		s.logFailure(ctx, applog.OpDelete, id, err)
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.invalidate(ctx, scope)
	s.events(ctx).LogMutation(ctx, applog.OpDelete, id, "", "", "")
	return nil
}

func (s *TransactionService) invalidate(ctx context.Context, scope string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, scope)
	}
}

// events carries the request id of ctx, if any.
func (s *TransactionService) events(ctx context.Context) *applog.StructuredLogger {
	logger := s.logger
	if id := trace.GetRequestID(ctx); id != "" {
		logger = logger.With(applog.FieldRequestID, id)
	}
	return applog.NewStructuredLogger(logger)
}

func (s *TransactionService) logFailure(ctx context.Context, op string, id int64, err error) {
	fields := applog.NewFields()
	if id > 0 {
		fields[applog.FieldTxID] = id
	}
	s.events(ctx).LogError(ctx, "Ledger mutation failed", err, op, fields)
}
