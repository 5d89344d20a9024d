// Package period parses compact lookback tokens ("24h", "7d") and renders
// relative-age strings for display.
package period

import (
	"fmt"
	"strconv"
	"time"

	"github.com/babylog/babylog/internal/model"
)

// Parse converts a token like "24h" or "7d" into a duration. The magnitude
// must be a strictly positive integer and the unit one of 'h' or 'd'.
// Anything else fails with model.ErrInvalidPeriod.
func Parse(token string) (time.Duration, error) {
	if len(token) < 2 {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidPeriod, token)
	}
	n, err := strconv.Atoi(token[:len(token)-1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidPeriod, token)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: magnitude must be positive", model.ErrInvalidPeriod)
	}
	switch token[len(token)-1] {
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("%w: unit must be 'h' or 'd'", model.ErrInvalidPeriod)
}

// HumanDelta renders the age of ts relative to the wall clock:
// "5s ago", "12m ago", "3h 05m ago", "2d ago".
func HumanDelta(ts time.Time) string {
	return humanDelta(ts, time.Now().UTC())
}

func humanDelta(ts, now time.Time) string {
	seconds := int(now.Sub(ts.UTC()).Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds ago", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh %02dm ago", hours, minutes%60)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}
