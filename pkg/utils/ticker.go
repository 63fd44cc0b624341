package utils

import (
	"strings"
)

// NormalizeTicker uppercases a user-input ticker and strips whitespace and a
// leading "$" (common in chat and social feeds). The result is otherwise
// opaque; no symbol validation is done.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	return strings.TrimPrefix(ticker, "$")
}

// ParseTickerList splits comma- or whitespace-separated tickers, normalizes
// them and drops empties and duplicates while keeping first-seen order.
func ParseTickerList(args ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, a := range args {
		fields := strings.FieldsFunc(a, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		})
		for _, f := range fields {
			t := NormalizeTicker(f)
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
