package wheel

import (
	"context"
	"math"
	"time"

	apperrors "wheel-tracker/internal/errors"
	"wheel-tracker/internal/logging"
	"wheel-tracker/internal/models"
	"wheel-tracker/pkg/id"
)

// AssignmentInputs describes an exercise notice against a short leg.
type AssignmentInputs struct {
	Symbol      string
	Type        models.OptionType // right of the assigned leg
	Strike      float64
	Expiry      time.Time
	Contracts   int
	Date        time.Time
	Description string
}

// AssignmentResult carries the booked entry and the share position
// after the assignment settled.
type AssignmentResult struct {
	Event       models.WheelEvent
	Lots        []models.ShareLot
	SharesOwned int
	AverageCost float64
}

// RecordAssignment settles an exercise: a put assignment books the
// share purchase at the strike and opens a new lot; a call assignment
// books the sale proceeds and consumes lots oldest-first. The journal
// entry and the lot changes commit in one transaction.
//
// Exercise notices arrive from the broker whether or not the journal
// expected them, so the entry is accepted even when no matching leg is
// open; replay flags the mismatch instead.
func (e *Engine) RecordAssignment(ctx context.Context, in AssignmentInputs) (AssignmentResult, error) {
	symbol := normalizeSymbol(in.Symbol)
	if err := validSymbol(symbol); err != nil {
		return AssignmentResult{}, err
	}
	if in.Type != models.OptionCall && in.Type != models.OptionPut {
		return AssignmentResult{}, &apperrors.ValidationError{Field: "type", Value: string(in.Type), Message: "option type must be CALL or PUT"}
	}
	if in.Strike <= 0 || math.IsNaN(in.Strike) || math.IsInf(in.Strike, 0) {
		return AssignmentResult{}, &apperrors.ValidationError{Field: "strike", Value: in.Strike, Message: "strike must be a positive price"}
	}
	if in.Contracts <= 0 {
		return AssignmentResult{}, &apperrors.ValidationError{Field: "contracts", Value: in.Contracts, Message: "contracts must be at least 1"}
	}
	date := e.defaultDate(in.Date)
	shares := in.Contracts * models.SharesPerContract

	eventType := models.EventCSPAssigned
	if in.Type == models.OptionCall {
		eventType = models.EventCCAssigned
	}
	ev := e.newEvent(e.openCycleID(ctx, symbol), symbol, eventType, date)
	ev.Strike = in.Strike
	ev.Expiry = in.Expiry
	ev.Contracts = in.Contracts
	ev.Description = in.Description

	var saved []models.ShareLot
	var deleted []string

	if in.Type == models.OptionPut {
		// Shares are put to the account at the strike. Each assignment
		// opens its own lot so acquisition dates stay distinct.
		ev.Amount = -models.CentsFromDollars(in.Strike * float64(shares))
		saved = []models.ShareLot{{
			ID:           id.New(),
			Symbol:       symbol,
			Quantity:     shares,
			AverageCost:  in.Strike,
			AcquiredDate: date,
		}}
	} else {
		// Shares are called away at the strike; lots go oldest-first.
		ev.Amount = models.CentsFromDollars(in.Strike * float64(shares))
		lots, err := e.store.GetLots(ctx, symbol)
		if err != nil {
			return AssignmentResult{}, apperrors.Wrapf(err, "loading lots for %s", symbol)
		}
		remaining := shares
		for _, lot := range lots {
			if remaining == 0 {
				break
			}
			if lot.Quantity <= remaining {
				remaining -= lot.Quantity
				deleted = append(deleted, lot.ID)
				continue
			}
			lot.Quantity -= remaining
			remaining = 0
			saved = append(saved, lot)
		}
		if remaining > 0 {
			e.logger.Warn().
				Str("symbol", symbol).
				Int("shares", shares).
				Int("short", remaining).
				Msg("call assignment exceeds held shares")
		}
	}

	if err := e.store.ApplyAssignment(ctx, &ev, saved, deleted); err != nil {
		return AssignmentResult{}, apperrors.Wrapf(err, "booking %s for %s", eventType, symbol)
	}

	logging.LogAssignment(e.logger, symbol, in.Type, shares, in.Strike)

	after, err := e.store.GetLots(ctx, symbol)
	if err != nil {
		return AssignmentResult{}, apperrors.Wrapf(err, "loading lots for %s", symbol)
	}
	return AssignmentResult{
		Event:       ev,
		Lots:        after,
		SharesOwned: models.TotalShares(after),
		AverageCost: models.AverageCost(after),
	}, nil
}
