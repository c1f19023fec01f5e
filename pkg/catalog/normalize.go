package catalog

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeKey rewrites a candidate match key into its canonical form.
// A key that parses as a finite number is truncated to its integer string
// form, so 19641, "19641" and "19641.0" all collide. Anything else is
// trimmed and kept verbatim: barcodes are case-sensitive, so no folding.
// Normalization is idempotent.
func NormalizeKey(key string) string {
	s := strings.TrimSpace(key)
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		// Keys too large for an exact integer representation stay verbatim.
		if math.Abs(n) < float64(math.MaxInt64) {
			return strconv.FormatInt(int64(math.Trunc(n)), 10)
		}
	}
	return s
}
