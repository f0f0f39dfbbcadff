// Package core holds the expense domain model and the pure aggregation
// functions that power the report views.
//
// Monetary amounts are kept as int64 cents and unit prices as int64
// ten-thousandths, so sums are exact and independent of iteration order.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is a monetary amount in cents. It marshals as a plain JSON number
// with two fractional digits so backup payloads round-trip byte-for-byte
// deterministic values.
type Money struct {
	Cents int64
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Both dot (12.34) and comma (12,34)
// separators are accepted. Negative amounts are rejected; zero is allowed.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take the first two fractional digits, half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// String formats the amount as a decimal with exactly two fractional
// digits, e.g. "12.34".
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || strings.HasPrefix(s, `"`) {
		return fmt.Errorf("%w: value must be a number, got %s", ErrInvalidAmount, s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	if v < 0 {
		return fmt.Errorf("%w: negative value %s", ErrInvalidAmount, s)
	}
	m.Cents = int64(math.Round(v * 100))
	return nil
}

// UnitPrice is a price per base unit in ten-thousandths of a currency
// unit, i.e. rounded to four fractional digits.
type UnitPrice struct {
	TenThousandths int64
}

// String formats the unit price as a decimal, trailing zeros trimmed,
// e.g. "20" or "3.3333".
func (p UnitPrice) String() string {
	v := p.TenThousandths
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / 10000
	frac := v % 10000
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	s := strings.TrimRight(fmt.Sprintf("%04d", frac), "0")
	return fmt.Sprintf("%s%d.%s", sign, whole, s)
}

func (p UnitPrice) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *UnitPrice) UnmarshalJSON(data []byte) error {
	s := string(data)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid unit price: %s", s)
	}
	p.TenThousandths = int64(math.Round(v * 10000))
	return nil
}
