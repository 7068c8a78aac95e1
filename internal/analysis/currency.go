package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// defaultBenchmark is the fallback revenue corridor shown when the model
// supplied no usable industry benchmark.
const defaultBenchmark = "€40.000 - €60.000"

const missingRevenue = "N/A"

// formatEUR renders an amount as a German-localized currency string with
// dots as thousands separators, e.g. 589281 -> "€589.281".
func formatEUR(amount int) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.Itoa(amount)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteRune('€')
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte('.')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// formatRevenue renders the plan-side revenue figure: numbers are
// localized, text passes through, missing becomes "N/A".
func formatRevenue(v any) string {
	if n, ok := asAmount(v); ok {
		return formatEUR(n)
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return missingRevenue
}

// formatBenchmark renders the benchmark side. It additionally understands
// textual ranges like "120000-180000" (dots and euro signs tolerated) and
// falls back to the fixed default corridor when nothing usable arrived.
func formatBenchmark(v any) string {
	if n, ok := asAmount(v); ok {
		return formatEUR(n)
	}
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultBenchmark
	}
	if lo, hi, ok := parseRange(s); ok {
		return formatEUR(lo) + " - " + formatEUR(hi)
	}
	return s
}

func parseRange(s string) (lo, hi int, ok bool) {
	clean := strings.NewReplacer(".", "", "€", "", " ", "").Replace(s)
	parts := strings.SplitN(clean, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(parts[0])
	hi, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// asAmount accepts the numeric types a decoded JSON value can take.
func asAmount(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case fmt.Stringer:
		n, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
