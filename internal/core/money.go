package core

import (
	"errors"
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for amounts that are empty, non-numeric or not
// strictly positive.
var ErrInvalidAmount = errors.New("invalid amount")

// CurrencyCode is the ISO code of every amount shown by the frontend.
const CurrencyCode = money.INR

// CurrencySymbol prefixes every rendered amount.
const CurrencySymbol = "₹"

// commaDecimal is the only shape in which a comma is accepted: a decimal
// separator followed by one or two digits. Grouping commas are rejected.
var commaDecimal = regexp.MustCompile(`^\d+,\d{1,2}$`)

// ParseAmount parses a form amount. A comma is read as the decimal
// separator only in the form "12,50"; the value must be strictly positive.
//
//	ParseAmount("100")   -> 100, nil
//	ParseAmount("12,50") -> 12.5, nil
//	ParseAmount("1,000") -> ErrInvalidAmount
//	ParseAmount("0")     -> ErrInvalidAmount
//	ParseAmount("abc")   -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		if !commaDecimal.MatchString(s) {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with the currency symbol, thousands
// separators and two decimals, rounding half away from zero.
func FormatAmount(d decimal.Decimal) string {
	cur := *money.New(0, CurrencyCode).Currency()
	minor := d.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.IntPart())
}
