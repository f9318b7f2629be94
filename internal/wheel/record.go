package wheel

import (
	"context"
	"math"
	"time"

	apperrors "wheel-tracker/internal/errors"
	"wheel-tracker/internal/models"
	"wheel-tracker/pkg/id"
)

// SaleInputs describes a short option sale to be journaled.
type SaleInputs struct {
	Symbol          string
	Type            models.OptionType
	Strike          float64
	PremiumPerShare float64
	Contracts       int
	Expiration      time.Time
	Date            time.Time
	Fees            models.Cents
	Description     string
	Meta            *models.EventMeta
}

func (in SaleInputs) validate() error {
	if err := validSymbol(normalizeSymbol(in.Symbol)); err != nil {
		return err
	}
	if in.Type != models.OptionCall && in.Type != models.OptionPut {
		return &apperrors.ValidationError{Field: "type", Value: string(in.Type), Message: "option type must be CALL or PUT"}
	}
	if in.Strike <= 0 || math.IsNaN(in.Strike) || math.IsInf(in.Strike, 0) {
		return &apperrors.ValidationError{Field: "strike", Value: in.Strike, Message: "strike must be a positive price"}
	}
	if in.PremiumPerShare < 0 || math.IsNaN(in.PremiumPerShare) || math.IsInf(in.PremiumPerShare, 0) {
		return &apperrors.ValidationError{Field: "premium", Value: in.PremiumPerShare, Message: "premium per share cannot be negative"}
	}
	if in.Contracts <= 0 {
		return &apperrors.ValidationError{Field: "contracts", Value: in.Contracts, Message: "contracts must be at least 1"}
	}
	if in.Expiration.IsZero() {
		return &apperrors.ValidationError{Field: "expiration", Value: in.Expiration, Message: "expiration date is required"}
	}
	if in.Fees < 0 {
		return &apperrors.ValidationError{Field: "fees", Value: in.Fees, Message: "fees cannot be negative"}
	}
	if in.Meta != nil {
		if err := in.Meta.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RecordSale journals a cash-secured put or covered call sale. A cycle
// is opened when none is. Covered-call sales against held shares also
// record the day's min-strike snapshot; the snapshot is upserted before
// the journal write so a failed command can be re-run safely.
func (e *Engine) RecordSale(ctx context.Context, in SaleInputs) (models.WheelEvent, error) {
	if err := in.validate(); err != nil {
		return models.WheelEvent{}, err
	}
	symbol := normalizeSymbol(in.Symbol)
	date := e.defaultDate(in.Date)

	if in.Type == models.OptionCall {
		lots, err := e.store.GetLots(ctx, symbol)
		if err != nil {
			return models.WheelEvent{}, apperrors.Wrapf(err, "loading lots for %s", symbol)
		}
		if len(lots) > 0 {
			if _, err := e.RecordMinStrikeSnapshot(ctx, symbol, date, lots, in.PremiumPerShare); err != nil {
				return models.WheelEvent{}, apperrors.Wrap(err, "recording min-strike snapshot")
			}
		}
	}

	cycle, err := e.ensureCycle(ctx, symbol, date)
	if err != nil {
		return models.WheelEvent{}, err
	}

	eventType := models.EventCSPSold
	if in.Type == models.OptionCall {
		eventType = models.EventCCSold
	}
	ev := e.newEvent(cycle.ID, symbol, eventType, date)
	ev.Strike = in.Strike
	ev.Expiry = in.Expiration
	ev.Contracts = in.Contracts
	ev.Amount = models.CentsFromDollars(in.PremiumPerShare * float64(in.Contracts*models.SharesPerContract))
	ev.Description = in.Description
	ev.Meta = mergeCommission(in.Meta, in.Fees)

	if err := e.store.AppendEvents(ctx, &ev); err != nil {
		return models.WheelEvent{}, apperrors.Wrapf(err, "journaling %s for %s", eventType, symbol)
	}
	e.logEvent(ev)
	return ev, nil
}

// ExpirationInputs describes a short leg expiring worthless.
type ExpirationInputs struct {
	Symbol      string
	Type        models.OptionType
	Strike      float64
	Expiry      time.Time
	Contracts   int
	Date        time.Time
	Description string
}

// RecordExpiration journals a worthless expiration of an open leg. The
// entry carries no cash; the premium was booked at sale time.
func (e *Engine) RecordExpiration(ctx context.Context, in ExpirationInputs) (models.WheelEvent, error) {
	symbol := normalizeSymbol(in.Symbol)
	if err := validSymbol(symbol); err != nil {
		return models.WheelEvent{}, err
	}
	date := e.defaultDate(in.Date)

	leg, err := e.FindOpenLeg(ctx, symbol, in.Type, in.Strike, in.Expiry)
	if err != nil {
		return models.WheelEvent{}, err
	}

	eventType := models.EventCSPExpired
	if in.Type == models.OptionCall {
		eventType = models.EventCCExpired
	}
	ev := e.newEvent(e.openCycleID(ctx, symbol), symbol, eventType, date)
	ev.Strike = leg.Strike
	ev.Expiry = leg.Expiry
	ev.Contracts = in.Contracts
	if ev.Contracts == 0 {
		ev.Contracts = leg.Contracts
	}
	ev.Description = in.Description

	if err := e.store.AppendEvents(ctx, &ev); err != nil {
		return models.WheelEvent{}, apperrors.Wrapf(err, "journaling %s for %s", eventType, symbol)
	}
	e.logEvent(ev)
	return ev, nil
}

// BuybackInputs describes closing a short leg by buying it back.
type BuybackInputs struct {
	Symbol          string
	Type            models.OptionType
	Strike          float64
	Expiry          time.Time
	PremiumPerShare float64
	Contracts       int
	Date            time.Time
	Fees            models.Cents
	Description     string
}

// RecordBuyback journals a buy-to-close of an open short leg. The entry
// debits the buyback premium.
func (e *Engine) RecordBuyback(ctx context.Context, in BuybackInputs) (models.WheelEvent, error) {
	symbol := normalizeSymbol(in.Symbol)
	if err := validSymbol(symbol); err != nil {
		return models.WheelEvent{}, err
	}
	if in.PremiumPerShare < 0 || math.IsNaN(in.PremiumPerShare) || math.IsInf(in.PremiumPerShare, 0) {
		return models.WheelEvent{}, &apperrors.ValidationError{Field: "premium", Value: in.PremiumPerShare, Message: "premium per share cannot be negative"}
	}
	date := e.defaultDate(in.Date)

	leg, err := e.FindOpenLeg(ctx, symbol, in.Type, in.Strike, in.Expiry)
	if err != nil {
		return models.WheelEvent{}, err
	}
	contracts := in.Contracts
	if contracts == 0 {
		contracts = leg.Contracts
	}

	eventType := models.EventCSPClosed
	if in.Type == models.OptionCall {
		eventType = models.EventCCClosed
	}
	ev := e.newEvent(e.openCycleID(ctx, symbol), symbol, eventType, date)
	ev.Strike = leg.Strike
	ev.Expiry = leg.Expiry
	ev.Contracts = contracts
	ev.Amount = -models.CentsFromDollars(in.PremiumPerShare * float64(contracts*models.SharesPerContract))
	ev.Description = in.Description
	ev.Meta = mergeCommission(nil, in.Fees)

	if err := e.store.AppendEvents(ctx, &ev); err != nil {
		return models.WheelEvent{}, apperrors.Wrapf(err, "journaling %s for %s", eventType, symbol)
	}
	e.logEvent(ev)
	return ev, nil
}

// CloseInputs settles a position and ends its cycle.
type CloseInputs struct {
	Symbol      string
	Amount      models.Cents // signed settlement cash, e.g. share sale proceeds
	Date        time.Time
	Description string
}

// RecordPositionClosed journals the terminal entry of a pass and closes
// the open cycle. The journal write lands first; if closing the cycle
// row then fails the journal still holds the truth and doctor will
// flag the stale cycle.
func (e *Engine) RecordPositionClosed(ctx context.Context, in CloseInputs) (models.WheelEvent, error) {
	symbol := normalizeSymbol(in.Symbol)
	if err := validSymbol(symbol); err != nil {
		return models.WheelEvent{}, err
	}
	date := e.defaultDate(in.Date)

	cycle, err := e.store.GetOpenCycle(ctx, symbol)
	if err != nil {
		return models.WheelEvent{}, err
	}

	var cycleID string
	if cycle != nil {
		cycleID = cycle.ID
	}
	ev := e.newEvent(cycleID, symbol, models.EventPositionClosed, date)
	ev.Amount = in.Amount
	ev.Description = in.Description

	if err := e.store.AppendEvents(ctx, &ev); err != nil {
		return models.WheelEvent{}, apperrors.Wrapf(err, "journaling close for %s", symbol)
	}
	e.logEvent(ev)

	if cycle != nil {
		if err := e.store.CloseCycle(ctx, cycle.ID, date); err != nil {
			return ev, apperrors.Wrapf(err, "close journaled but cycle %s not marked closed", cycle.ID)
		}
		e.logger.Info().Str("symbol", symbol).Str("cycle_id", cycle.ID).Msg("cycle closed")
	}
	return ev, nil
}

// BuyInputs describes an outright share purchase.
type BuyInputs struct {
	Symbol   string
	Quantity int
	Price    float64
	Date     time.Time
}

// RecordBuy books a share lot bought outside of assignment. Lots feed
// average cost, covered-call coverage and min-strike snapshots.
func (e *Engine) RecordBuy(ctx context.Context, in BuyInputs) (models.ShareLot, error) {
	symbol := normalizeSymbol(in.Symbol)
	if err := validSymbol(symbol); err != nil {
		return models.ShareLot{}, err
	}
	if in.Quantity <= 0 {
		return models.ShareLot{}, &apperrors.ValidationError{Field: "quantity", Value: in.Quantity, Message: "quantity must be at least 1"}
	}
	if in.Price <= 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return models.ShareLot{}, &apperrors.ValidationError{Field: "price", Value: in.Price, Message: "price must be a positive amount"}
	}

	lot := models.ShareLot{
		ID:           id.New(),
		Symbol:       symbol,
		Quantity:     in.Quantity,
		AverageCost:  in.Price,
		AcquiredDate: e.defaultDate(in.Date),
	}
	if err := e.store.SaveLot(ctx, &lot); err != nil {
		return models.ShareLot{}, apperrors.Wrapf(err, "saving lot for %s", symbol)
	}
	e.logger.Info().
		Str("symbol", symbol).
		Int("quantity", in.Quantity).
		Float64("price", in.Price).
		Msg("share lot recorded")
	return lot, nil
}

// CorrectEvent retires a journal entry and books its replacement. The
// original is kept, marked superseded and linked to the replacement; a
// non-empty reason is mandatory.
func (e *Engine) CorrectEvent(ctx context.Context, oldID string, corrected models.WheelEvent, reason string) (models.WheelEvent, error) {
	if reason == "" {
		return models.WheelEvent{}, apperrors.ErrEditReasonRequired
	}
	old, err := e.store.GetEvent(ctx, oldID)
	if err != nil {
		return models.WheelEvent{}, err
	}

	corrected.ID = id.New()
	corrected.Status = models.EventActive
	if corrected.Symbol == "" {
		corrected.Symbol = old.Symbol
	} else {
		corrected.Symbol = normalizeSymbol(corrected.Symbol)
	}
	if corrected.CycleID == "" {
		corrected.CycleID = old.CycleID
	}
	if corrected.Type == "" {
		corrected.Type = old.Type
	}
	if corrected.Date.IsZero() {
		corrected.Date = old.Date
	}
	if corrected.RollID == "" {
		corrected.RollID = old.RollID
	}
	if !models.ValidEventType(corrected.Type) {
		return models.WheelEvent{}, &apperrors.ValidationError{Field: "type", Value: string(corrected.Type), Message: "unknown event type"}
	}
	if corrected.Meta != nil {
		if err := corrected.Meta.Validate(); err != nil {
			return models.WheelEvent{}, err
		}
	}

	if err := e.store.SupersedeEvent(ctx, oldID, reason, &corrected); err != nil {
		return models.WheelEvent{}, apperrors.Wrapf(err, "superseding event %s", oldID)
	}
	e.logger.Info().
		Str("symbol", corrected.Symbol).
		Str("superseded", oldID).
		Str("replacement", corrected.ID).
		Str("reason", reason).
		Msg("journal entry corrected")
	return corrected, nil
}

// openCycleID resolves the open cycle's ID, tolerating lookup failures;
// the entry is still valid without a cycle tag and doctor reconciles.
func (e *Engine) openCycleID(ctx context.Context, symbol string) string {
	cycle, err := e.store.GetOpenCycle(ctx, symbol)
	if err != nil || cycle == nil {
		return ""
	}
	return cycle.ID
}
