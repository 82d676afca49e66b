// Package format holds the display formatters the page layer used to own:
// dates, times, and currency amounts. Receipts and list DTOs go through here.
package format

import (
	"fmt"
	"strings"
	"time"
)

// Date renders an ISO date (YYYY-MM-DD) as "Jan 2, 2006". Unparseable input
// is returned unchanged.
func Date(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("Jan 2, 2006")
}

// Time renders a 24h clock value (HH:MM) as "3:04 PM". Unparseable input is
// returned unchanged.
func Time(hhmm string) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format("3:04 PM")
}

// Timestamp renders a point in time for receipts.
func Timestamp(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}

// Currency renders an amount in cents as a dollar string with thousands
// separators, e.g. 123456789 → "$1,234,567.89".
func Currency(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	dollars := cents / 100
	rem := cents % 100
	return fmt.Sprintf("%s$%s.%02d", sign, groupThousands(dollars), rem)
}

func groupThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
