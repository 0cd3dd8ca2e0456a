// Package core provides money parsing and formatting utilities.
//
// Amounts are decimal.Decimal values with two fraction digits, matching the
// ledger API's DecimalField(max_digits=10, decimal_places=2).
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	maxAmountDigits   = 10
	maxAmountDecimals = 2
)

// ParseAmount converts a user-entered decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) separators. Signs, zero,
// more than two decimals and more than ten digits in total are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("1.234") -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if len(fracPart) > maxAmountDecimals {
		return decimal.Zero, ErrInvalidAmount
	}
	if len(strings.TrimLeft(intPart, "0"))+maxAmountDecimals > maxAmountDigits {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(intPart + "." + fracPart + "0")
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// MoneyFormatter renders amounts with locale digit grouping, between zero and
// two fraction digits, and a trailing currency symbol.
type MoneyFormatter struct {
	Locale   language.Tag
	Currency string
}

// NewMoneyFormatter parses a BCP 47 locale; an unparsable tag falls back to
// Russian, the ledger's home locale.
func NewMoneyFormatter(locale, currency string) MoneyFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Russian
	}
	return MoneyFormatter{Locale: tag, Currency: currency}
}

func (f MoneyFormatter) Format(d decimal.Decimal) string {
	p := message.NewPrinter(f.Locale)
	s := p.Sprint(number.Decimal(d.Round(2).InexactFloat64(),
		number.MinFractionDigits(0), number.MaxFractionDigits(2)))
	if f.Currency == "" {
		return s
	}
	return s + " " + f.Currency
}

// FormatSigned prefixes the amount with the sign of its type.
func (f MoneyFormatter) FormatSigned(t TxType, d decimal.Decimal) string {
	return t.Sign() + f.Format(d.Abs())
}
