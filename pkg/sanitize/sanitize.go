package sanitize

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Characters allowed in stored object names. Everything else collapses to "_".
var reUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName reduces a user-supplied filename to a safe storage name: base name
// only, restricted charset, never empty.
func FileName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	stem = reUnsafe.ReplaceAllString(stem, "_")
	ext = reUnsafe.ReplaceAllString(ext, "")
	stem = strings.Trim(stem, "._-")
	if stem == "" {
		stem = "file"
	}
	return stem + ext
}

// Summary truncates s to at most max bytes, cutting back to a word boundary,
// or failing that to a rune boundary so the result stays valid UTF-8.
func Summary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	i := max
	for i > 0 && s[i] != ' ' {
		i--
	}
	if i <= 0 {
		i = max
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "…"
}
