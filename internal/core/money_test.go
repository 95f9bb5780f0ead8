package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		name string
		in   string
		out  int64
		ok   bool
	}{
		{"whole units", "1", 100, true},
		{"trailing zero", "1.0", 100, true},
		{"dot separator", "1.23", 123, true},
		{"comma separator", "1,23", 123, true},
		{"single cent", "0.01", 1, true},
		{"half-up rounding", "1.005", 101, true},
		{"rounds down", "12.344", 1234, true},
		{"surrounding spaces", " 2.50 ", 250, true},
		{"negative", "-1", 0, false},
		{"explicit plus", "+1", 0, false},
		{"zero", "0", 0, false},
		{"not a number", "abc", 0, false},
		{"two separators", "1.2.3", 0, false},
		{"empty", "", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tc.in)
			if tc.ok {
				if err != nil || got != tc.out {
					t.Fatalf("ParseDecimalToCents(%q) = %d, %v, want %d", tc.in, got, err, tc.out)
				}
				return
			}
			if err == nil {
				t.Fatalf("ParseDecimalToCents(%q) expected error, got %d", tc.in, got)
			}
		})
	}
}

func TestMoneyUnits(t *testing.T) {
	cases := []struct {
		cents int64
		want  float64
	}{
		{0, 0},
		{1, 0.01},
		{1234, 12.34},
		{-550, -5.5},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Units(); got != tc.want {
			t.Errorf("Money{%d}.Units() = %v, want %v", tc.cents, got, tc.want)
		}
	}
}
