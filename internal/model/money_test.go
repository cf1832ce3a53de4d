package model

import "testing"

func TestParseCents(t *testing.T) {
	cases := []struct {
		in   string
		want Cents
	}{
		{"45.10", 4510},
		{"45.1", 4510},
		{"45", 4500},
		{"0.01", 1},
		{"0", 0},
		{"1234.56", 123456},
		{"10.005", 1001},
		{"10.004", 1000},
		{"-3.25", -325},
		{"+7.5", 750},
		{"1.2E2", 12000},
		{"2.5e-1", 25},
		{"5e-3", 1},
		{"1e-3", 0},
		{"-4.51E1", -4510},
		// Beyond float64 precision; the exponent expansion must stay textual.
		{"12345678901234567.89E0", 1234567890123456789},
		{"720.0000237894", 72000},
	}
	for _, c := range cases {
		got, err := ParseCents(c.in)
		if err != nil {
			t.Errorf("ParseCents(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseCents(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseCents_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "12a.50", "1.2.3x", "1e", "1.2e3.5", ".e2"} {
		if _, err := ParseCents(in); err == nil {
			t.Errorf("ParseCents(%q): expected error", in)
		}
	}
}

func TestCentsString(t *testing.T) {
	cases := []struct {
		in   Cents
		want string
	}{
		{4510, "45.10"},
		{100, "1.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-325, "-3.25"},
	}
	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Errorf("Cents(%d).String() = %q, want %q", c.in, got, c.want)
		}
	}
}
