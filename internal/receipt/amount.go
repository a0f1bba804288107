package receipt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Limits on amount text. They keep every points product well inside int64.
const (
	maxIntegerDigits  = 12
	maxFractionDigits = 8
)

var errAmountRange = errors.New("amount out of range")

var (
	one     = decimal.NewFromInt(1)
	quarter = decimal.RequireFromString("0.25")
	bonus   = decimal.RequireFromString("0.2")
	minimum = decimal.RequireFromString("0.01")
)

// Amount is an exact base-10 currency value
type Amount struct {
	d decimal.Decimal
}

// ParseAmount parses a plain decimal string such as "12.25". Exponents are
// rejected, as are values with more than 12 integer or 8 fraction digits.
func ParseAmount(s string) (Amount, error) {
	if err := checkAmountText(s); err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return Amount{d: d}, nil
}

func checkAmountText(s string) error {
	if strings.ContainsAny(s, "eE") {
		return errors.New("exponent not allowed")
	}
	s = strings.TrimLeft(s, "+-")
	whole, fraction, _ := strings.Cut(s, ".")
	if len(strings.TrimLeft(whole, "0")) > maxIntegerDigits || len(fraction) > maxFractionDigits {
		return errAmountRange
	}
	return nil
}

// MustParseAmount is ParseAmount for literals; it panics on bad input
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// NewAmountFromInt returns a whole amount
func NewAmountFromInt(v int64) Amount {
	return Amount{d: decimal.NewFromInt(v)}
}

// Mul returns a*b without losing precision
func (a Amount) Mul(b Amount) Amount {
	return Amount{d: a.d.Mul(b.d)}
}

// Mod returns the remainder of a divided by b
func (a Amount) Mod(b Amount) Amount {
	return Amount{d: a.d.Mod(b.d)}
}

// IsZero reports whether a is exactly zero
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// IsPositive reports whether a is strictly greater than zero
func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

// LessThan reports whether a < b
func (a Amount) LessThan(b Amount) bool {
	return a.d.LessThan(b.d)
}

// Equal reports whether a and b have the same value, regardless of scale
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// IsWhole reports whether a has no fractional part
func (a Amount) IsWhole() bool {
	return a.d.Mod(one).IsZero()
}

// IsMultipleOf reports whether a divides evenly by divisor
func (a Amount) IsMultipleOf(divisor Amount) bool {
	if divisor.d.IsZero() {
		return false
	}
	return a.d.Mod(divisor.d).IsZero()
}

// RoundUp rounds to a whole number away from zero whenever any fraction remains.
// For positive values this is the ceiling.
func (a Amount) RoundUp() Amount {
	return Amount{d: a.d.RoundUp(0)}
}

// IntPart returns the integer part, truncating any fraction
func (a Amount) IntPart() int64 {
	return a.d.IntPart()
}

func (a Amount) String() string {
	return a.d.String()
}

// MarshalText encodes the amount as its exact decimal string
func (a Amount) MarshalText() ([]byte, error) {
	return a.d.MarshalText()
}

// UnmarshalText decodes an exact decimal string
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
