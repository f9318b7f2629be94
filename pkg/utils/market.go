package utils

import (
	"time"
)

// MarketLocation is the timezone for US equity options.
var MarketLocation *time.Location

func init() {
	var err error
	MarketLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to UTC-5
		MarketLocation = time.FixedZone("EST", -5*60*60)
	}
}

// IsTradingDay reports whether t falls on a weekday. Exchange holidays
// are not modeled.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextFriday returns the next Friday on or after t, the usual weekly
// expiration day.
func NextFriday(t time.Time) time.Time {
	d := t
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// ThirdFriday returns the third Friday of the given month, the standard
// monthly expiration.
func ThirdFriday(year int, month time.Month) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 14)
}

// NextMonthlyExpiration returns the first standard monthly expiration
// strictly after t.
func NextMonthlyExpiration(t time.Time) time.Time {
	exp := ThirdFriday(t.Year(), t.Month())
	if !exp.After(t) {
		next := t.AddDate(0, 1, 0)
		exp = ThirdFriday(next.Year(), next.Month())
	}
	return exp
}

// IsExpirationFriday reports whether t is a weekly or monthly
// expiration day.
func IsExpirationFriday(t time.Time) bool {
	return t.Weekday() == time.Friday
}
