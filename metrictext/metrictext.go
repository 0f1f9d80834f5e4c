// Package metrictext normalises human-readable engagement counts to integers.
//
// Platforms render counters as compact strings ("1.2M", "820K", "15,000");
// Parse converts them to plain integers, tolerating whatever noise a page
// element carries. Unparseable input yields 0 rather than an error: a
// missing metric is an ordinary outcome during scraping, not a failure.
package metrictext

import (
	"strconv"
	"strings"
)

// suffix multipliers recognised at the end of a count string.
var multipliers = []struct {
	suffix string
	factor float64
}{
	{"K", 1e3},
	{"M", 1e6},
	{"B", 1e9},
}

// Parse converts a human-readable count to an integer.
//
//	Parse("1.2M")   = 1200000
//	Parse("820K")   = 820000
//	Parse("15,000") = 15000
//	Parse("")       = 0
//	Parse("abc")    = 0
//
// Multiplied values truncate toward zero ("1.23K" = 1230, "1.2345K" = 1234).
func Parse(text string) int64 {
	s := strings.ToUpper(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0
	}

	for _, m := range multipliers {
		if !strings.HasSuffix(s, m.suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, m.suffix), 64)
		if err != nil {
			return 0
		}
		return int64(n * m.factor)
	}

	// No suffix: strip everything that is not a digit and parse the rest.
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
