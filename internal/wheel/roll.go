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

// RollInputs describes the replacement leg of a roll and the cost of
// closing the leg it replaces. Premiums are per share.
type RollInputs struct {
	NewStrike            float64
	NewExpiration        time.Time
	NewPremiumPerShare   float64
	ClosePremiumPerShare float64
	Contracts            int
	Fees                 models.Cents
	Date                 time.Time
	Description          string
	Meta                 *models.EventMeta
}

// RollPlan is a validated, not-yet-booked roll with its net cash
// effect. Positive NetCashFlow is a credit to the account.
type RollPlan struct {
	Symbol       string
	Leg          OpenLeg
	Inputs       RollInputs
	Contracts    int
	ClosePremium models.Cents
	OpenPremium  models.Cents
	NetCashFlow  models.Cents
}

// Credit reports whether executing the plan collects cash.
func (p RollPlan) Credit() bool {
	return p.NetCashFlow >= 0
}

// RollResult is the pair of journal entries a roll booked.
type RollResult struct {
	RollID      string
	CloseEvent  models.WheelEvent
	OpenEvent   models.WheelEvent
	NetCashFlow models.Cents
}

// PlanRoll validates a roll of leg against in and prices its net cash
// flow. No journal entry is written; a returned error means nothing
// would be booked either.
func (e *Engine) PlanRoll(symbol string, leg OpenLeg, in RollInputs) (RollPlan, error) {
	symbol = normalizeSymbol(symbol)
	if err := validSymbol(symbol); err != nil {
		return RollPlan{}, err
	}
	if !in.NewExpiration.After(leg.Expiry) {
		return RollPlan{}, &apperrors.RollError{
			Symbol:        symbol,
			OldExpiration: leg.Expiry,
			NewExpiration: in.NewExpiration,
			Reason:        "replacement expiration must be later than the leg it replaces",
		}
	}
	if in.NewStrike <= 0 || math.IsNaN(in.NewStrike) || math.IsInf(in.NewStrike, 0) {
		return RollPlan{}, &apperrors.ValidationError{Field: "strike", Value: in.NewStrike, Message: "strike must be a positive price"}
	}
	if in.NewPremiumPerShare < 0 || in.ClosePremiumPerShare < 0 {
		return RollPlan{}, &apperrors.ValidationError{Field: "premium", Value: in.NewPremiumPerShare, Message: "premium per share cannot be negative"}
	}
	if in.Fees < 0 {
		return RollPlan{}, &apperrors.ValidationError{Field: "fees", Value: in.Fees, Message: "fees cannot be negative"}
	}
	contracts := in.Contracts
	if contracts == 0 {
		contracts = leg.Contracts
	}
	if contracts <= 0 || contracts > leg.Contracts {
		return RollPlan{}, &apperrors.ValidationError{Field: "contracts", Value: in.Contracts, Message: "contracts must be between 1 and the open leg's size"}
	}
	if in.Meta != nil {
		if err := in.Meta.Validate(); err != nil {
			return RollPlan{}, err
		}
	}

	shares := float64(contracts * models.SharesPerContract)
	plan := RollPlan{
		Symbol:       symbol,
		Leg:          leg,
		Inputs:       in,
		Contracts:    contracts,
		ClosePremium: models.CentsFromDollars(in.ClosePremiumPerShare * shares),
		OpenPremium:  models.CentsFromDollars(in.NewPremiumPerShare * shares),
	}
	plan.NetCashFlow = plan.OpenPremium - plan.ClosePremium - in.Fees
	return plan, nil
}

// ExecuteRoll books a planned roll: one entry closing the old leg and
// one opening the replacement, sharing a roll ID and committed in a
// single transaction. Either both land or neither does.
func (e *Engine) ExecuteRoll(ctx context.Context, plan RollPlan) (RollResult, error) {
	if plan.Symbol == "" || plan.Contracts <= 0 {
		return RollResult{}, &apperrors.ValidationError{Field: "plan", Value: plan.Symbol, Message: "roll plan is incomplete; build it with PlanRoll"}
	}
	date := e.defaultDate(plan.Inputs.Date)
	cycleID := e.openCycleID(ctx, plan.Symbol)
	rollID := id.New()

	closeType, openType := models.EventCSPClosed, models.EventCSPSold
	if plan.Leg.Type == models.OptionCall {
		closeType, openType = models.EventCCClosed, models.EventCCSold
	}

	closeEv := e.newEvent(cycleID, plan.Symbol, closeType, date)
	closeEv.Strike = plan.Leg.Strike
	closeEv.Expiry = plan.Leg.Expiry
	closeEv.Contracts = plan.Contracts
	closeEv.Amount = -plan.ClosePremium
	closeEv.RollID = rollID
	closeEv.Description = plan.Inputs.Description

	openEv := e.newEvent(cycleID, plan.Symbol, openType, date)
	openEv.Strike = plan.Inputs.NewStrike
	openEv.Expiry = plan.Inputs.NewExpiration
	openEv.Contracts = plan.Contracts
	openEv.Amount = plan.OpenPremium
	openEv.RollID = rollID
	openEv.Description = plan.Inputs.Description
	openEv.Meta = mergeCommission(plan.Inputs.Meta, plan.Inputs.Fees)

	if err := e.store.AppendEvents(ctx, &closeEv, &openEv); err != nil {
		return RollResult{}, apperrors.Wrapf(err, "booking roll for %s", plan.Symbol)
	}

	logging.LogRoll(e.logger, plan.Symbol, rollID,
		plan.Leg.Strike, plan.Inputs.NewStrike, plan.Inputs.NewExpiration, plan.NetCashFlow)

	return RollResult{
		RollID:      rollID,
		CloseEvent:  closeEv,
		OpenEvent:   openEv,
		NetCashFlow: plan.NetCashFlow,
	}, nil
}

// Roll plans and books a roll of the symbol's open leg in one step.
func (e *Engine) Roll(ctx context.Context, symbol string, optType models.OptionType, strike float64, expiry time.Time, in RollInputs) (RollResult, error) {
	leg, err := e.FindOpenLeg(ctx, symbol, optType, strike, expiry)
	if err != nil {
		return RollResult{}, err
	}
	plan, err := e.PlanRoll(symbol, leg, in)
	if err != nil {
		return RollResult{}, err
	}
	return e.ExecuteRoll(ctx, plan)
}
