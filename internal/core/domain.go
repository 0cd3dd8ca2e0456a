package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// Input layouts accepted for a transaction date. The first is what an HTML
// datetime-local input submits.
const (
	DateTimeLocalLayout = "2006-01-02T15:04"
	DayLayout           = "2006-01-02"
)

const maxDescriptionLen = 500

type (
	TxType string

	Transaction struct {
		ID              int64
		Type            TxType
		TypeDisplay     string
		Category        string
		CategoryDisplay string
		Amount          decimal.Decimal
		Date            time.Time
		Description     string
	}

	// TransactionInput carries the raw values of the transaction form.
	TransactionInput struct {
		Type        string
		Category    string
		Amount      string
		Date        string
		Description string
	}
)

var (
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
)

func ParseTxType(s string) (TxType, error) {
	switch t := TxType(strings.TrimSpace(s)); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TxType) String() string {
	return string(t)
}

// Sign returns "+" for income and "-" for expense.
func (t TxType) Sign() string {
	if t == Income {
		return "+"
	}
	return "-"
}

// SignedAmount is positive for income and negative for expense.
func (tx Transaction) SignedAmount() decimal.Decimal {
	if tx.Type == Income {
		return tx.Amount
	}
	return tx.Amount.Neg()
}

// Validate checks that the input can be turned into an API request.
// Consistency rules beyond that belong to the server.
func (in TransactionInput) Validate() error {
	t, err := ParseTxType(in.Type)
	if err != nil {
		return err
	}
	if !HasCategory(t, strings.TrimSpace(in.Category)) {
		return ErrInvalidCategory
	}
	if _, err := ParseAmount(in.Amount); err != nil {
		return err
	}
	if _, err := ParseDate(in.Date); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// Normalized returns the input with trimmed fields and the amount rewritten
// with a dot separator, ready to be sent.
func (in TransactionInput) Normalized() TransactionInput {
	out := TransactionInput{
		Type:        strings.TrimSpace(in.Type),
		Category:    strings.TrimSpace(in.Category),
		Amount:      strings.TrimSpace(in.Amount),
		Date:        strings.TrimSpace(in.Date),
		Description: strings.TrimSpace(in.Description),
	}
	if amt, err := ParseAmount(out.Amount); err == nil {
		out.Amount = amt.StringFixed(2)
	}
	return out
}

// ParseDate accepts the datetime-local layout, a bare day, or RFC 3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range []string{DateTimeLocalLayout, time.RFC3339, DayLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
