package models

import "time"

// MinStrikeSnapshot records, for one symbol and calendar day, the lowest
// covered-call strike that still protects the share basis:
//
//	minStrike = averageCost - premiumPerShare
//
// Snapshots are keyed by (symbol, date); re-recording the same day
// replaces the earlier row.
type MinStrikeSnapshot struct {
	Symbol          string
	Date            time.Time // calendar day, UTC midnight
	AverageCost     float64
	PremiumPerShare float64
	MinStrike       float64
	SharesOwned     int
	CreatedAt       time.Time
}

// SnapshotDay normalizes t to the UTC calendar day snapshots are keyed by.
func SnapshotDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
