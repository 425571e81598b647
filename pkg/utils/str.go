package utils

import (
	"regexp"
	"strings"
)

// SplitByMultipleDelimiters splits s on any of the given delimiters. Parts are
// trimmed and empty parts are dropped, so "a, b;;c" yields [a b c].
func SplitByMultipleDelimiters(s string, delimiters ...string) []string {
	if len(delimiters) == 0 {
		return []string{s}
	}
	delimiterPattern := "[" + regexp.QuoteMeta(strings.Join(delimiters, "")) + "]"
	re := regexp.MustCompile(delimiterPattern)

	parts := re.Split(s, -1)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
