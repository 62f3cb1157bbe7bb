package features

import "time"

const secondsPerDay = 24 * 60 * 60

// dayOfWeek decomposes a UTC time into the Monday=0 .. Sunday=6 convention.
func dayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// isWeekend returns 1 for Saturday/Sunday under the Monday=0 convention.
func isWeekend(dow int) int {
	if dow == 5 || dow == 6 {
		return 1
	}
	return 0
}

// daysUntil returns the signed fractional-day distance from ts to end.
// Negative for observations past the nominal end; that is expected and must
// not be clamped.
func daysUntil(end time.Time, ts time.Time) float64 {
	return end.Sub(ts).Seconds() / secondsPerDay
}
