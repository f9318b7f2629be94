// Package models provides domain models for the wheel tracker.
package models

import (
	"fmt"
	"math"
)

// SharesPerContract is the deliverable size of one standard option contract.
const SharesPerContract = 100

// Cents is a cash amount in minor currency units. All premiums, fees and
// event cash flows are carried as Cents; prices stay in dollars.
type Cents int64

// Dollars converts the amount to major units.
func (c Cents) Dollars() float64 {
	return float64(c) / 100
}

// String renders the amount as a signed dollar figure.
func (c Cents) String() string {
	return fmt.Sprintf("%.2f", c.Dollars())
}

// CentsFromDollars converts a dollar amount to minor units, rounding
// half away from zero.
func CentsFromDollars(d float64) Cents {
	return Cents(math.Round(d * 100))
}

// OptionType represents the option right.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// LegSide represents the side of an option leg.
type LegSide string

const (
	SideSell LegSide = "SELL"
	SideBuy  LegSide = "BUY"
)

// WheelState represents the lifecycle phase of a symbol's wheel.
type WheelState string

const (
	StateNone        WheelState = "NONE"
	StateCSPOpen     WheelState = "CSP_OPEN"
	StateCSPAssigned WheelState = "CSP_ASSIGNED"
	StateCCOpen      WheelState = "CC_OPEN"
	StateCCAssigned  WheelState = "CC_ASSIGNED"
	StateClosed      WheelState = "CLOSED"
)

// EventType represents a wheel journal entry kind.
type EventType string

const (
	EventCSPSold        EventType = "CSP_SOLD"
	EventCSPClosed      EventType = "CSP_CLOSED"
	EventCSPAssigned    EventType = "CSP_ASSIGNED"
	EventCSPExpired     EventType = "CSP_EXPIRED"
	EventCCSold         EventType = "CC_SOLD"
	EventCCClosed       EventType = "CC_CLOSED"
	EventCCAssigned     EventType = "CC_ASSIGNED"
	EventCCExpired      EventType = "CC_EXPIRED"
	EventPositionClosed EventType = "POSITION_CLOSED"
)

// ValidEventType reports whether t is a known journal entry kind.
func ValidEventType(t EventType) bool {
	switch t {
	case EventCSPSold, EventCSPClosed, EventCSPAssigned, EventCSPExpired,
		EventCCSold, EventCCClosed, EventCCAssigned, EventCCExpired,
		EventPositionClosed:
		return true
	}
	return false
}

// EventStatus represents the edit status of a journal entry.
type EventStatus string

const (
	EventActive     EventStatus = "ACTIVE"
	EventSuperseded EventStatus = "SUPERSEDED"
)

// RiskSeverity grades a risk flag.
type RiskSeverity string

const (
	RiskLow      RiskSeverity = "LOW"
	RiskMedium   RiskSeverity = "MEDIUM"
	RiskHigh     RiskSeverity = "HIGH"
	RiskCritical RiskSeverity = "CRITICAL"
)
