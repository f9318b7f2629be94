package models

import "time"

// PositionLeg is one option leg of a wheel position. Legs are immutable
// once booked; corrections go through the journal's supersede flow.
type PositionLeg struct {
	Symbol          string
	Type            OptionType
	Side            LegSide
	Strike          float64
	PremiumPerShare float64
	Quantity        int // contracts
	OpenDate        time.Time
	Expiration      time.Time
	Fees            Cents // total for the leg
}

// PremiumTotal returns the leg's full premium in minor units.
func (l PositionLeg) PremiumTotal() Cents {
	return CentsFromDollars(l.PremiumPerShare * float64(l.Quantity*SharesPerContract))
}

// Shares returns the deliverable share count covered by the leg.
func (l PositionLeg) Shares() int {
	return l.Quantity * SharesPerContract
}

// ShareLot is a parcel of shares acquired by one assignment or buy.
// Call assignments consume lots oldest first.
type ShareLot struct {
	ID           string
	Symbol       string
	Quantity     int
	AverageCost  float64
	AcquiredDate time.Time
}

// CostTotal returns the lot's full cost basis in minor units.
func (l ShareLot) CostTotal() Cents {
	return CentsFromDollars(l.AverageCost * float64(l.Quantity))
}

// AverageCost returns the quantity-weighted mean cost per share across
// lots. Zero when no shares are held.
func AverageCost(lots []ShareLot) float64 {
	var shares int
	var cost float64
	for _, l := range lots {
		shares += l.Quantity
		cost += l.AverageCost * float64(l.Quantity)
	}
	if shares <= 0 {
		return 0
	}
	return cost / float64(shares)
}

// TotalShares returns the share count held across lots.
func TotalShares(lots []ShareLot) int {
	var n int
	for _, l := range lots {
		n += l.Quantity
	}
	return n
}
