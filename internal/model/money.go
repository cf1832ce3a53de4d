package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Cents is a currency amount in integer cents. Negotiated rates are parsed
// from the JSON numeral text so binary floating point never touches the
// value on its way into the database.
type Cents int64

// ParseCents converts a decimal numeral string (as it appears in the source
// JSON) to Cents, rounding half away from zero at the third fractional digit.
func ParseCents(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	// Scientific notation shows up in a few payer files ("1.2E2"). Rewrite
	// it as a plain decimal, still textually, before splitting.
	if strings.ContainsAny(s, "eE") {
		plain, err := expandExponent(s)
		if err != nil {
			return 0, err
		}
		s = plain
	}

	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}

	var whole int64
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		whole = whole*10 + int64(c-'0')
	}

	// Take up to three fractional digits; the third decides rounding.
	var frac, third int64
	for i, c := range fracPart {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		switch {
		case i < 2:
			frac = frac*10 + int64(c-'0')
		case i == 2:
			third = int64(c - '0')
		}
	}
	if len(fracPart) == 1 {
		frac *= 10
	}

	c := whole*100 + frac
	if third >= 5 {
		c++
	}
	if neg {
		c = -c
	}
	return Cents(c), nil
}

// expandExponent rewrites a scientific-notation numeral as a plain decimal
// by moving the point through the mantissa digits, so no digit ever passes
// through a binary float.
func expandExponent(s string) (string, error) {
	i := strings.IndexAny(s, "eE")
	mant, expStr := s[:i], s[i+1:]
	exp, err := strconv.Atoi(expStr)
	if err != nil {
		return "", fmt.Errorf("invalid exponent in %q", s)
	}

	sign := ""
	switch {
	case strings.HasPrefix(mant, "-"):
		sign, mant = "-", mant[1:]
	case strings.HasPrefix(mant, "+"):
		mant = mant[1:]
	}
	intPart, fracPart, _ := strings.Cut(mant, ".")
	digits := intPart + fracPart
	if digits == "" {
		return "", fmt.Errorf("invalid amount %q", s)
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("invalid amount %q", s)
		}
	}

	point := len(intPart) + exp
	switch {
	case point <= 0:
		return sign + "0." + strings.Repeat("0", -point) + digits, nil
	case point >= len(digits):
		return sign + digits + strings.Repeat("0", point-len(digits)), nil
	default:
		return sign + digits[:point] + "." + digits[point:], nil
	}
}

// Dollars returns the amount as a float, for aggregation only.
func (c Cents) Dollars() float64 { return float64(c) / 100 }

// String renders the amount with exactly two decimal places, e.g. "45.10".
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
