package format

import (
	"testing"
	"time"
)

func Test_Date(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2025-03-10", "Mar 10, 2025"},
		{"2025-01-02", "Jan 2, 2025"},
		{"not-a-date", "not-a-date"}, // unparseable passes through
	}
	for _, tc := range cases {
		if got := Date(tc.in); got != tc.want {
			t.Errorf("Date(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func Test_Time(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"14:30", "2:30 PM"},
		{"09:05", "9:05 AM"},
		{"00:00", "12:00 AM"},
		{"garbage", "garbage"},
	}
	for _, tc := range cases {
		if got := Time(tc.in); got != tc.want {
			t.Errorf("Time(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func Test_Currency(t *testing.T) {
	cases := []struct {
		cents int
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{1150, "$11.50"},
		{123456789, "$1,234,567.89"},
		{-2500, "-$25.00"},
	}
	for _, tc := range cases {
		if got := Currency(tc.cents); got != tc.want {
			t.Errorf("Currency(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func Test_Timestamp(t *testing.T) {
	ts := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	if got := Timestamp(ts); got != "Mar 10, 2025 2:30 PM" {
		t.Fatalf("Timestamp = %q", got)
	}
}
