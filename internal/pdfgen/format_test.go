package pdfgen

import (
	"testing"
	"time"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "KES 0.00"},
		{100, "KES 100.00"},
		{14720, "KES 14,720.00"},
		{1234567.891, "KES 1,234,567.89"},
	}
	for _, tc := range cases {
		if got := FormatCurrency(tc.in); got != tc.want {
			t.Errorf("FormatCurrency(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2025, 3, 5, 14, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "Mar 05, 2025" {
		t.Errorf("FormatDate = %q, want %q", got, "Mar 05, 2025")
	}
}
