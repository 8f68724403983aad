package cronexpr

import (
	"fmt"
	"strconv"
)

// Describe renders expr for display. It never fails. Only plain in-range
// minute and hour numbers are shown as a clock time; steps, ranges, lists and
// rolled-over values fall through to the custom form.
func Describe(expr string) string {
	f, err := split(expr)
	if err != nil {
		return "Invalid cron expression"
	}

	if f.isDaily() {
		h, hok := plainNumber(f.hour, 23)
		m, mok := plainNumber(f.minute, 59)
		if hok && mok {
			return fmt.Sprintf("Daily at %02d:%02d", h, m)
		}
	}

	if f.hour == wildcard {
		if m, ok := plainNumber(f.minute, 59); ok {
			return fmt.Sprintf("Every hour at %d minutes", m)
		}
	}

	return "Custom: " + expr
}

func plainNumber(s string, max int) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > max {
		return 0, false
	}
	return n, true
}
