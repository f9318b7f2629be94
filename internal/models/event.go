package models

import (
	"fmt"
	"time"
)

// WheelEvent is one append-only journal entry in a symbol's wheel history.
// Amount is the signed cash flow of the entry: credits (premium received,
// call-away proceeds) are positive, debits (buybacks, share purchases)
// are negative.
type WheelEvent struct {
	ID           string
	CycleID      string
	Symbol       string
	Type         EventType
	Date         time.Time
	Amount       Cents
	Strike       float64   // zero when not applicable
	Expiry       time.Time // zero when not applicable
	Contracts    int       // zero when not applicable
	Description  string
	Status       EventStatus
	SupersededBy string // ID of the replacement entry, if superseded
	EditReason   string // mandatory when superseding
	RollID       string // shared by the close/open pair of a roll
	Meta         *EventMeta
	CreatedAt    time.Time
}

// Active reports whether the entry still counts toward replay.
func (e WheelEvent) Active() bool {
	return e.Status != EventSuperseded
}

// Shares returns the deliverable share count of the entry's contracts.
func (e WheelEvent) Shares() int {
	return e.Contracts * SharesPerContract
}

// EventMeta carries optional per-entry market context. Fields are
// pointers so a partially populated record round-trips unchanged.
type EventMeta struct {
	Delta        *float64
	IVRank       *float64
	IVPercentile *float64
	Commission   *Cents
}

// Validate checks the populated fields against their domains.
func (m *EventMeta) Validate() error {
	if m == nil {
		return nil
	}
	if m.Delta != nil && (*m.Delta < -1 || *m.Delta > 1) {
		return fmt.Errorf("meta delta %v out of range [-1, 1]", *m.Delta)
	}
	if m.IVRank != nil && (*m.IVRank < 0 || *m.IVRank > 100) {
		return fmt.Errorf("meta iv_rank %v out of range [0, 100]", *m.IVRank)
	}
	if m.IVPercentile != nil && (*m.IVPercentile < 0 || *m.IVPercentile > 100) {
		return fmt.Errorf("meta iv_percentile %v out of range [0, 100]", *m.IVPercentile)
	}
	if m.Commission != nil && *m.Commission < 0 {
		return fmt.Errorf("meta commission %v is negative", *m.Commission)
	}
	return nil
}

// Empty reports whether no meta field is populated.
func (m *EventMeta) Empty() bool {
	return m == nil ||
		(m.Delta == nil && m.IVRank == nil && m.IVPercentile == nil && m.Commission == nil)
}

// WheelCycle is one pass through the wheel for a symbol, from the first
// opening sale to the closing entry. At most one cycle per symbol is open
// at a time.
type WheelCycle struct {
	ID       string
	Symbol   string
	OpenedAt time.Time
	ClosedAt time.Time // zero while the cycle is open
}

// Open reports whether the cycle has not been closed yet.
func (c WheelCycle) Open() bool {
	return c.ClosedAt.IsZero()
}
