// Package normalize converts between Brazilian currency strings and numbers
// and builds the folded text keys used to match records across passes.
package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatError reports a currency string that could not be read as a number.
type FormatError struct {
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("normalize: invalid currency value %q: %v", e.Input, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

var valueReplacer = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	"\u2212", "-",
	".", "",
	",", ".",
)

// ParseValue reads a Brazilian-formatted amount such as "1.234,56" or "− 12,00".
func ParseValue(s string) (decimal.Decimal, error) {
	cleaned := valueReplacer.Replace(strings.TrimSpace(s))
	if cleaned == "" || strings.ContainsAny(cleaned, "eE") {
		return decimal.Zero, &FormatError{Input: s, Err: fmt.Errorf("not a number")}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &FormatError{Input: s, Err: err}
	}
	return d, nil
}

// FormatValue renders v with two decimals, "." for thousands and "," for decimals.
func FormatValue(v decimal.Decimal) string {
	fixed := v.Round(2).StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// Canonical re-renders a currency string through ParseValue and FormatValue.
func Canonical(s string) (string, decimal.Decimal, error) {
	v, err := ParseValue(s)
	if err != nil {
		return "", decimal.Zero, err
	}
	v = v.Round(2)
	return FormatValue(v), v, nil
}
