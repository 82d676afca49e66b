package sanitize

import (
	"testing"
	"unicode/utf8"
)

func Test_FileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my brief 2025.pdf", "my_brief_2025.pdf"},
		{"../../etc/passwd", "passwd"},
		{"weird!!name??.png", "weird_name.png"},
		{"???", "file"},
		{"  spaced.pdf  ", "spaced.pdf"},
		{".hidden", "file.hidden"}, // dotfile keeps its "extension", gains a stem
	}
	for _, tc := range cases {
		if got := FileName(tc.in); got != tc.want {
			t.Errorf("FileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func Test_Summary(t *testing.T) {
	if got := Summary("short", 20); got != "short" {
		t.Fatalf("no-op truncate changed the string: %q", got)
	}
	got := Summary("the quick brown fox jumps over", 15)
	if got != "the quick brown…" && got != "the quick…" {
		// cut lands on a word boundary at or before max
		t.Fatalf("unexpected truncation: %q", got)
	}
	if len(Summary("aaaaaaaaaaaaaaaaaaaa", 10)) > 10+len("…") {
		t.Fatal("unbroken string not truncated at max")
	}
}

func Test_Summary_CutsOnRuneBoundary(t *testing.T) {
	// Each € is 3 bytes; a 10-byte cut lands mid-rune and must back up.
	got := Summary("€€€€€€€€", 10)
	if !utf8.ValidString(got) {
		t.Fatalf("invalid UTF-8: %q", got)
	}
	if got != "€€€…" {
		t.Fatalf("got %q, want %q", got, "€€€…")
	}

	// Mixed text without spaces near the cut
	got = Summary("législation étendue", 13)
	if !utf8.ValidString(got) {
		t.Fatalf("invalid UTF-8: %q", got)
	}
}
