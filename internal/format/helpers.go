package format

import (
	"fmt"
	"math"
	"time"
)

// FmtDuration formats a duration as "Xm Ys" or "Ys".
func FmtDuration(d time.Duration) string {
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

// FmtFloat prints v with two decimals, or "-" when v is NaN.
func FmtFloat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// FmtShare prints a fraction as a percentage with one decimal.
func FmtShare(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*v)
}

// FmtSeats prints seats out of a total, e.g. "3/8".
func FmtSeats(seats, total int) string {
	return fmt.Sprintf("%d/%d", seats, total)
}
