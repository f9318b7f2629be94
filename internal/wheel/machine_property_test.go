package wheel

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"wheel-tracker/internal/models"
	"wheel-tracker/pkg/id"
)

var allEventTypes = []models.EventType{
	models.EventCSPSold,
	models.EventCSPClosed,
	models.EventCSPAssigned,
	models.EventCSPExpired,
	models.EventCCSold,
	models.EventCCClosed,
	models.EventCCAssigned,
	models.EventCCExpired,
	models.EventPositionClosed,
}

var validStates = map[models.WheelState]bool{
	models.StateNone:        true,
	models.StateCSPOpen:     true,
	models.StateCSPAssigned: true,
	models.StateCCOpen:      true,
	models.StateCCAssigned:  true,
	models.StateClosed:      true,
}

func genJournal(typeIdxs []int) []models.WheelEvent {
	base := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	events := make([]models.WheelEvent, 0, len(typeIdxs))
	for i, idx := range typeIdxs {
		t := allEventTypes[idx%len(allEventTypes)]
		ev := models.WheelEvent{
			ID:        id.New(),
			Symbol:    "PROP",
			Type:      t,
			Date:      base.AddDate(0, 0, i*3),
			Strike:    50 + float64(idx%7)*5,
			Expiry:    base.AddDate(0, 0, i*3+30),
			Contracts: 1 + idx%3,
			Status:    models.EventActive,
		}
		switch t {
		case models.EventCSPSold, models.EventCCSold:
			ev.Amount = models.Cents(10000 + idx*100)
		case models.EventCSPClosed, models.EventCCClosed:
			ev.Amount = -models.Cents(5000 + idx*50)
		case models.EventCSPAssigned:
			ev.Amount = -models.CentsFromDollars(ev.Strike * float64(ev.Shares()))
		case models.EventCCAssigned:
			ev.Amount = models.CentsFromDollars(ev.Strike * float64(ev.Shares()))
		}
		events = append(events, ev)
	}
	return events
}

// Property: any event sequence whatsoever folds to a defined state, for
// every prefix, with non-negative share and coverage counts.
func TestProperty_ReplayIsTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("every prefix resolves to a defined state", prop.ForAll(
		func(typeIdxs []int) bool {
			events := genJournal(typeIdxs)
			for i := 0; i <= len(events); i++ {
				res := Replay(events[:i], time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
				if !validStates[res.State] {
					return false
				}
				if res.SharesOwned < 0 || res.SharesNeeded < 0 {
					return false
				}
				if res.PremiumCollected < 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 26)),
	))

	properties.TestingRun(t)
}

// Property: replay is deterministic and ignores superseded entries
// entirely, so retiring an entry is the same as never having booked it.
func TestProperty_SupersededEntriesDoNotCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("retired entries never influence the fold", prop.ForAll(
		func(typeIdxs []int, dropIdx int) bool {
			events := genJournal(typeIdxs)
			if len(events) == 0 {
				return true
			}
			drop := dropIdx % len(events)
			asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

			retired := make([]models.WheelEvent, len(events))
			copy(retired, events)
			retired[drop].Status = models.EventSuperseded

			without := append([]models.WheelEvent{}, events[:drop]...)
			without = append(without, events[drop+1:]...)

			a := Replay(retired, asOf)
			b := Replay(without, asOf)

			return a.State == b.State &&
				a.SharesOwned == b.SharesOwned &&
				a.NetCashFlow == b.NetCashFlow &&
				a.PremiumCollected == b.PremiumCollected &&
				len(a.OpenPuts) == len(b.OpenPuts) &&
				len(a.OpenCalls) == len(b.OpenCalls)
		},
		gen.SliceOf(gen.IntRange(0, 26)),
		gen.IntRange(0, 1<<20),
	))

	properties.TestingRun(t)
}

// Property: cash flow is the plain sum of active amounts minus
// commissions, independent of how the state machine reads the sequence.
func TestProperty_CashFlowIsAdditive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("net cash flow sums the journal", prop.ForAll(
		func(typeIdxs []int) bool {
			events := genJournal(typeIdxs)
			var want models.Cents
			for _, ev := range events {
				want += ev.Amount
			}
			res := Replay(events, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
			return res.NetCashFlow == want
		},
		gen.SliceOf(gen.IntRange(0, 26)),
	))

	properties.TestingRun(t)
}
