// Package calc provides the strategy calculators for wheel positions:
// covered calls, cash-secured puts and long calls. Calculators never
// panic and never divide by zero; broken inputs degrade to an empty
// metrics bundle plus a critical risk flag.
package calc

import "time"

// DaysToExpiration returns whole calendar days from asOf to expiration.
// The result is signed: expired legs come back negative so callers can
// filter or sort them out.
func DaysToExpiration(expiration, asOf time.Time) int {
	return DaysBetween(asOf, expiration)
}

// DaysBetween returns whole calendar days from start to end, negative
// when end precedes start.
func DaysBetween(start, end time.Time) int {
	return int(dateOf(end).Sub(dateOf(start)) / (24 * time.Hour))
}

// ClampDTE floors a signed day count at zero.
func ClampDTE(days int) int {
	if days < 0 {
		return 0
	}
	return days
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
