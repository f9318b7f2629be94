// Package wheel derives the lifecycle of a wheel position from its
// append-only journal and coordinates the writes that extend it: sales,
// expirations, buybacks, rolls, assignments and min-strike snapshots.
// The current state of a ticker is always a pure function of its
// replayed event history; nothing here caches or stores state.
package wheel

import (
	"fmt"
	"sort"
	"time"

	"wheel-tracker/internal/calc"
	"wheel-tracker/internal/models"
)

// OpenLeg is a short option leg still live after replaying a symbol's
// journal.
type OpenLeg struct {
	EventID   string
	Type      models.OptionType
	Strike    float64
	Expiry    time.Time
	Contracts int
	OpenDate  time.Time
	Premium   models.Cents
	RollID    string
	Uncovered bool // short call sold without full share backing
}

// Shares returns the deliverable share count of the leg.
func (l OpenLeg) Shares() int {
	return l.Contracts * models.SharesPerContract
}

// DTE returns the leg's signed days to expiration as of asOf.
func (l OpenLeg) DTE(asOf time.Time) int {
	return calc.DaysToExpiration(l.Expiry, asOf)
}

// AnomalyKind classifies a replay finding.
type AnomalyKind string

const (
	AnomalyUncoveredCall      AnomalyKind = "UNCOVERED_CALL"
	AnomalyOrphanEvent        AnomalyKind = "ORPHAN_EVENT"
	AnomalyHalfRoll           AnomalyKind = "HALF_ROLL"
	AnomalyExpiredUnprocessed AnomalyKind = "EXPIRED_UNPROCESSED"
	AnomalyOversoldShares     AnomalyKind = "OVERSOLD_SHARES"
	AnomalyStaleCycle         AnomalyKind = "STALE_CYCLE"
)

// Anomaly is a reconcilable inconsistency surfaced by replay. Anomalies
// are reported, never auto-repaired; the journal stays the source of
// truth.
type Anomaly struct {
	Kind    AnomalyKind
	Symbol  string
	EventID string
	RollID  string
	Message string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("[%s] %s: %s", a.Kind, a.Symbol, a.Message)
}

// ReplayResult is one symbol's wheel state derived from its journal.
type ReplayResult struct {
	Symbol      string
	State       models.WheelState
	SharesOwned int
	ShareCost   float64 // weighted average cost of held shares
	OpenPuts    []OpenLeg
	OpenCalls   []OpenLeg

	// SharesNeeded counts the shares missing to cover every open short
	// call: contracts*100 minus shares owned, floored at zero.
	SharesNeeded int

	PremiumCollected models.Cents // gross premium credited by sales
	NetCashFlow      models.Cents // signed event amounts net of commissions
	RealizedPnL      models.Cents // cash flow plus book value of held shares
	CapitalPeak      models.Cents // most capital committed at any point

	Anomalies      []Anomaly
	FirstEventDate time.Time
	LastEventDate  time.Time
	EventCount     int
}

// OpenLegs returns every live leg, puts first.
func (r ReplayResult) OpenLegs() []OpenLeg {
	legs := make([]OpenLeg, 0, len(r.OpenPuts)+len(r.OpenCalls))
	legs = append(legs, r.OpenPuts...)
	legs = append(legs, r.OpenCalls...)
	return legs
}

// ClosedEligible reports whether the pass is over in all but name: no
// shares held and no leg open, so a POSITION_CLOSED entry would settle
// the cycle without further trades.
func (r ReplayResult) ClosedEligible() bool {
	return r.State != models.StateClosed &&
		r.SharesOwned == 0 && len(r.OpenPuts) == 0 && len(r.OpenCalls) == 0 &&
		r.EventCount > 0
}

// Replay folds a symbol's journal, oldest entry first, into its current
// wheel state. Superseded entries are skipped. The fold is total: every
// event sequence resolves to a defined state, and entries that do not
// fit the current state are absorbed and flagged instead of rejected.
func Replay(events []models.WheelEvent, asOf time.Time) ReplayResult {
	sorted := make([]models.WheelEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	r := &replayer{
		result:    ReplayResult{State: models.StateNone},
		rollParts: make(map[string][]models.EventType),
	}
	for _, ev := range sorted {
		if !ev.Active() {
			continue
		}
		r.apply(ev)
	}
	r.finish(asOf)
	return r.result
}

// DerivePhase returns just the lifecycle phase of a journal.
func DerivePhase(events []models.WheelEvent) models.WheelState {
	return Replay(events, time.Now()).State
}

type replayer struct {
	result    ReplayResult
	rollParts map[string][]models.EventType
	lastRoll  map[string]string // roll ID -> last event ID seen
}

func (r *replayer) apply(ev models.WheelEvent) {
	res := &r.result
	if res.Symbol == "" {
		res.Symbol = ev.Symbol
	}
	if res.FirstEventDate.IsZero() || ev.Date.Before(res.FirstEventDate) {
		res.FirstEventDate = ev.Date
	}
	if ev.Date.After(res.LastEventDate) {
		res.LastEventDate = ev.Date
	}
	res.EventCount++
	res.NetCashFlow += ev.Amount
	if ev.Meta != nil && ev.Meta.Commission != nil {
		res.NetCashFlow -= *ev.Meta.Commission
	}
	if ev.RollID != "" {
		r.rollParts[ev.RollID] = append(r.rollParts[ev.RollID], ev.Type)
		if r.lastRoll == nil {
			r.lastRoll = make(map[string]string)
		}
		r.lastRoll[ev.RollID] = ev.ID
	}

	switch ev.Type {
	case models.EventCSPSold:
		r.applyPutSold(ev)
	case models.EventCSPExpired, models.EventCSPClosed:
		r.applyPutClosed(ev)
	case models.EventCSPAssigned:
		r.applyPutAssigned(ev)
	case models.EventCCSold:
		r.applyCallSold(ev)
	case models.EventCCExpired, models.EventCCClosed:
		r.applyCallClosed(ev)
	case models.EventCCAssigned:
		r.applyCallAssigned(ev)
	case models.EventPositionClosed:
		r.applyPositionClosed(ev)
	default:
		r.flag(AnomalyOrphanEvent, ev, fmt.Sprintf("unknown event type %q", ev.Type))
	}

	r.trackCapital()
}

func (r *replayer) applyPutSold(ev models.WheelEvent) {
	res := &r.result
	if ev.Amount > 0 {
		res.PremiumCollected += ev.Amount
	}
	res.OpenPuts = append(res.OpenPuts, legFromEvent(ev, models.OptionPut))

	switch res.State {
	case models.StateNone, models.StateClosed:
		res.State = models.StateCSPOpen
	case models.StateCCAssigned:
		// Shares were called away; a fresh sale starts the next pass.
		if res.SharesOwned > 0 {
			res.State = models.StateCSPAssigned
		} else {
			res.State = models.StateCSPOpen
		}
	}
}

func (r *replayer) applyPutClosed(ev models.WheelEvent) {
	if _, ok := r.closeLeg(&r.result.OpenPuts, ev); !ok {
		r.flag(AnomalyOrphanEvent, ev, fmt.Sprintf("%s recorded with no open put", ev.Type))
		return
	}
	r.resettle()
}

func (r *replayer) applyPutAssigned(ev models.WheelEvent) {
	res := &r.result
	leg, ok := r.closeLeg(&res.OpenPuts, ev)
	if !ok {
		r.flag(AnomalyOrphanEvent, ev, "put assignment recorded with no open put")
	}

	shares := ev.Shares()
	if shares == 0 {
		shares = leg.Shares()
	}
	if shares > 0 {
		strike := ev.Strike
		if strike == 0 {
			strike = leg.Strike
		}
		held := float64(res.SharesOwned)
		res.ShareCost = (res.ShareCost*held + strike*float64(shares)) / (held + float64(shares))
		res.SharesOwned += shares
	}

	switch res.State {
	case models.StateCCOpen:
		// An open call stays the most recent active leg.
	default:
		res.State = models.StateCSPAssigned
	}
}

func (r *replayer) applyCallSold(ev models.WheelEvent) {
	res := &r.result
	if ev.Amount > 0 {
		res.PremiumCollected += ev.Amount
	}

	leg := legFromEvent(ev, models.OptionCall)
	committed := leg.Shares()
	for _, l := range res.OpenCalls {
		committed += l.Shares()
	}
	if committed > res.SharesOwned {
		leg.Uncovered = true
		r.flag(AnomalyUncoveredCall, ev, fmt.Sprintf(
			"call sold with %d of %d shares on hand", res.SharesOwned, committed))
	}
	res.OpenCalls = append(res.OpenCalls, leg)
	res.State = models.StateCCOpen
}

func (r *replayer) applyCallClosed(ev models.WheelEvent) {
	if _, ok := r.closeLeg(&r.result.OpenCalls, ev); !ok {
		r.flag(AnomalyOrphanEvent, ev, fmt.Sprintf("%s recorded with no open call", ev.Type))
		return
	}
	r.resettle()
}

func (r *replayer) applyCallAssigned(ev models.WheelEvent) {
	res := &r.result
	leg, ok := r.closeLeg(&res.OpenCalls, ev)
	if !ok {
		r.flag(AnomalyOrphanEvent, ev, "call assignment recorded with no open call")
	}

	shares := ev.Shares()
	if shares == 0 {
		shares = leg.Shares()
	}
	if shares > res.SharesOwned {
		r.flag(AnomalyOversoldShares, ev, fmt.Sprintf(
			"%d shares called away with only %d on hand", shares, res.SharesOwned))
		shares = res.SharesOwned
	}
	res.SharesOwned -= shares
	if res.SharesOwned == 0 {
		res.ShareCost = 0
	}

	res.State = models.StateCCAssigned
}

func (r *replayer) applyPositionClosed(ev models.WheelEvent) {
	res := &r.result
	res.State = models.StateClosed
	res.OpenPuts = nil
	res.OpenCalls = nil
	res.SharesOwned = 0
	res.ShareCost = 0
}

// resettle picks the most advanced state still backed by the open legs
// and holdings after a leg closes without assignment.
func (r *replayer) resettle() {
	res := &r.result
	switch {
	case len(res.OpenCalls) > 0:
		res.State = models.StateCCOpen
	case res.SharesOwned > 0:
		res.State = models.StateCSPAssigned
	case len(res.OpenPuts) > 0:
		res.State = models.StateCSPOpen
	default:
		res.State = models.StateNone
	}
}

// closeLeg removes (or shrinks, on a partial fill) the open leg an event
// settles. Legs are matched on strike and expiration day when the event
// carries them, with the oldest leg as fallback; an event with zero
// contracts closes its whole leg.
func (r *replayer) closeLeg(legs *[]OpenLeg, ev models.WheelEvent) (OpenLeg, bool) {
	idx := -1
	for i, l := range *legs {
		if ev.Strike != 0 && l.Strike != ev.Strike {
			continue
		}
		if !ev.Expiry.IsZero() && !sameDay(l.Expiry, ev.Expiry) {
			continue
		}
		idx = i
		break
	}
	if idx == -1 {
		if len(*legs) == 0 || ev.Strike != 0 || !ev.Expiry.IsZero() {
			return OpenLeg{}, false
		}
		idx = 0
	}

	leg := (*legs)[idx]
	if ev.Contracts > 0 && ev.Contracts < leg.Contracts {
		remaining := leg.Contracts - ev.Contracts
		(*legs)[idx].Premium = models.Cents(int64(leg.Premium) * int64(remaining) / int64(leg.Contracts))
		(*legs)[idx].Contracts = remaining
		leg.Contracts = ev.Contracts
		return leg, true
	}

	*legs = append((*legs)[:idx], (*legs)[idx+1:]...)
	return leg, true
}

func (r *replayer) trackCapital() {
	res := &r.result
	var committed models.Cents
	for _, p := range res.OpenPuts {
		committed += models.CentsFromDollars(p.Strike * float64(p.Shares()))
	}
	committed += models.CentsFromDollars(res.ShareCost * float64(res.SharesOwned))
	if committed > res.CapitalPeak {
		res.CapitalPeak = committed
	}
}

func (r *replayer) finish(asOf time.Time) {
	res := &r.result

	committed := 0
	for _, l := range res.OpenCalls {
		committed += l.Shares()
	}
	if committed > res.SharesOwned {
		res.SharesNeeded = committed - res.SharesOwned
	}

	res.RealizedPnL = res.NetCashFlow + models.CentsFromDollars(res.ShareCost*float64(res.SharesOwned))

	// A roll books a closing and an opening entry under one roll ID;
	// a lone survivor means the pair was torn apart.
	rollIDs := make([]string, 0, len(r.rollParts))
	for id := range r.rollParts {
		rollIDs = append(rollIDs, id)
	}
	sort.Strings(rollIDs)
	for _, id := range rollIDs {
		var opens, closes int
		for _, t := range r.rollParts[id] {
			switch t {
			case models.EventCSPSold, models.EventCCSold:
				opens++
			case models.EventCSPClosed, models.EventCCClosed:
				closes++
			}
		}
		if opens == 0 || closes == 0 {
			res.Anomalies = append(res.Anomalies, Anomaly{
				Kind:    AnomalyHalfRoll,
				Symbol:  res.Symbol,
				EventID: r.lastRoll[id],
				RollID:  id,
				Message: fmt.Sprintf("roll %s has %d close and %d open entries; retry the full roll", id, closes, opens),
			})
		}
	}

	if !asOf.IsZero() {
		for _, l := range res.OpenLegs() {
			if dte := l.DTE(asOf); dte < 0 {
				res.Anomalies = append(res.Anomalies, Anomaly{
					Kind:    AnomalyExpiredUnprocessed,
					Symbol:  res.Symbol,
					EventID: l.EventID,
					Message: fmt.Sprintf("%s %.2f leg expired %d days ago without a closing entry", l.Type, l.Strike, -dte),
				})
			}
		}
	}
}

func (r *replayer) flag(kind AnomalyKind, ev models.WheelEvent, message string) {
	r.result.Anomalies = append(r.result.Anomalies, Anomaly{
		Kind:    kind,
		Symbol:  ev.Symbol,
		EventID: ev.ID,
		RollID:  ev.RollID,
		Message: message,
	})
}

func legFromEvent(ev models.WheelEvent, t models.OptionType) OpenLeg {
	return OpenLeg{
		EventID:   ev.ID,
		Type:      t,
		Strike:    ev.Strike,
		Expiry:    ev.Expiry,
		Contracts: ev.Contracts,
		OpenDate:  ev.Date,
		Premium:   ev.Amount,
		RollID:    ev.RollID,
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
