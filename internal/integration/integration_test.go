// Package integration provides end-to-end tests that drive the journal
// engine against a real SQLite store, the way the CLI does.
package integration

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheel-tracker/internal/importer"
	"wheel-tracker/internal/models"
	"wheel-tracker/internal/store"
	"wheel-tracker/internal/wheel"
)

func newTestEngine(t *testing.T) (*wheel.Engine, store.WheelStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "wheel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return wheel.NewEngine(st, zerolog.Nop()), st
}

// day returns a UTC calendar day offset days from today. Dates stay
// relative to the wall clock so no leg in a finished scenario reads as
// expired-but-unprocessed.
func day(offset int) time.Time {
	now := time.Now().UTC()
	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

// TestWheelPassEndToEnd drives one full pass: put sold, assigned,
// covered call sold, rolled, called away, settled.
func TestWheelPassEndToEnd(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Step 1: sell a cash-secured put.
	sale, err := eng.RecordSale(ctx, wheel.SaleInputs{
		Symbol:          "ko",
		Type:            models.OptionPut,
		Strike:          95,
		PremiumPerShare: 1.40,
		Contracts:       1,
		Expiration:      day(-49),
		Date:            day(-60),
		Fees:            65,
	})
	require.NoError(t, err)
	assert.Equal(t, models.Cents(14000), sale.Amount)

	res, err := eng.ReplaySymbol(ctx, "KO")
	require.NoError(t, err)
	assert.Equal(t, models.StateCSPOpen, res.State)
	require.Len(t, res.OpenPuts, 1)

	// Step 2: the put is assigned; shares land at the strike.
	assigned, err := eng.RecordAssignment(ctx, wheel.AssignmentInputs{
		Symbol:    "KO",
		Type:      models.OptionPut,
		Strike:    95,
		Expiry:    day(-49),
		Contracts: 1,
		Date:      day(-49),
	})
	require.NoError(t, err)
	assert.Equal(t, models.Cents(-950000), assigned.Event.Amount)
	assert.Equal(t, 100, assigned.SharesOwned)
	assert.InDelta(t, 95.0, assigned.AverageCost, 1e-9)

	res, err = eng.ReplaySymbol(ctx, "KO")
	require.NoError(t, err)
	assert.Equal(t, models.StateCSPAssigned, res.State)
	assert.Equal(t, 100, res.SharesOwned)
	assert.InDelta(t, 95.0, res.ShareCost, 1e-9)

	// Step 3: sell a covered call; the sale snapshots the strike floor.
	_, err = eng.RecordSale(ctx, wheel.SaleInputs{
		Symbol:          "KO",
		Type:            models.OptionCall,
		Strike:          97,
		PremiumPerShare: 1.10,
		Contracts:       1,
		Expiration:      day(-28),
		Date:            day(-46),
		Fees:            65,
	})
	require.NoError(t, err)

	snap, err := eng.LatestSnapshot(ctx, "KO")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.InDelta(t, 93.90, snap.MinStrike, 1e-9)
	assert.Equal(t, 100, snap.SharesOwned)

	res, err = eng.ReplaySymbol(ctx, "KO")
	require.NoError(t, err)
	assert.Equal(t, models.StateCCOpen, res.State)
	require.Len(t, res.OpenCalls, 1)
	assert.False(t, res.OpenCalls[0].Uncovered)

	// Step 4: roll the call up and out for a net debit.
	rolled, err := eng.Roll(ctx, "KO", models.OptionCall, 97, day(-28), wheel.RollInputs{
		NewStrike:            99,
		NewExpiration:        day(-14),
		NewPremiumPerShare:   1.25,
		ClosePremiumPerShare: 1.80,
		Fees:                 130,
		Date:                 day(-35),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rolled.RollID)
	assert.Equal(t, rolled.RollID, rolled.CloseEvent.RollID)
	assert.Equal(t, rolled.RollID, rolled.OpenEvent.RollID)
	assert.Equal(t, models.Cents(-18000), rolled.CloseEvent.Amount)
	assert.Equal(t, models.Cents(12500), rolled.OpenEvent.Amount)
	assert.Equal(t, models.Cents(-5630), rolled.NetCashFlow)

	res, err = eng.ReplaySymbol(ctx, "KO")
	require.NoError(t, err)
	assert.Equal(t, models.StateCCOpen, res.State)
	require.Len(t, res.OpenCalls, 1)
	assert.InDelta(t, 99.0, res.OpenCalls[0].Strike, 1e-9)
	assert.Empty(t, res.Anomalies)

	// Step 5: the rolled call is assigned; the shares get called away.
	called, err := eng.RecordAssignment(ctx, wheel.AssignmentInputs{
		Symbol:    "KO",
		Type:      models.OptionCall,
		Strike:    99,
		Expiry:    day(-14),
		Contracts: 1,
		Date:      day(-14),
	})
	require.NoError(t, err)
	assert.Equal(t, models.Cents(990000), called.Event.Amount)
	assert.Equal(t, 0, called.SharesOwned)
	assert.Empty(t, called.Lots)

	res, err = eng.ReplaySymbol(ctx, "KO")
	require.NoError(t, err)
	assert.Equal(t, models.StateCCAssigned, res.State)
	assert.True(t, res.ClosedEligible())

	// Step 6: settle the pass.
	_, err = eng.RecordPositionClosed(ctx, wheel.CloseInputs{
		Symbol: "KO",
		Date:   day(-13),
	})
	require.NoError(t, err)

	status, err := eng.SymbolStatusView(ctx, "KO")
	require.NoError(t, err)
	assert.Equal(t, models.StateClosed, status.Result.State)
	assert.Nil(t, status.Cycle)

	// Step 7: the pass's money adds up.
	m := status.Metrics
	assert.Equal(t, models.Cents(37500), m.PremiumCollected)
	assert.Equal(t, models.Cents(59240), m.NetCashFlow)
	assert.Equal(t, models.Cents(59240), m.RealizedPnL)
	assert.Equal(t, models.Cents(950000), m.CapitalPeak)
	assert.Equal(t, 47, m.Days)
	assert.InDelta(t, 0.4843, m.AnnualizedReturn, 0.001)

	// Step 8: the cycle row closed with the journal.
	cycles, err := st.GetCycles(ctx, store.CycleFilter{Symbol: "KO"})
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.False(t, cycles[0].Open())

	// Step 9: doctor replays clean.
	findings, err := eng.Doctor(ctx)
	require.NoError(t, err)
	assert.Empty(t, findings)

	t.Logf("Wheel pass end-to-end: premium=%d net=%d days=%d annualized=%.2f%%",
		m.PremiumCollected, m.NetCashFlow, m.Days, m.AnnualizedReturn*100)
}

// TestBuybackSettlesAndNextPassOpensFreshCycle covers the no-assignment
// path: a put bought back, the pass settled, and a fresh pass after.
func TestBuybackSettlesAndNextPassOpensFreshCycle(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Step 1: sell a put and buy it back below the sale price.
	_, err := eng.RecordSale(ctx, wheel.SaleInputs{
		Symbol:          "F",
		Type:            models.OptionPut,
		Strike:          11,
		PremiumPerShare: 0.90,
		Contracts:       2,
		Expiration:      day(20),
		Date:            day(-10),
	})
	require.NoError(t, err)

	buyback, err := eng.RecordBuyback(ctx, wheel.BuybackInputs{
		Symbol:          "F",
		Type:            models.OptionPut,
		Strike:          11,
		Expiry:          day(20),
		PremiumPerShare: 0.35,
		Date:            day(-5),
	})
	require.NoError(t, err)
	assert.Equal(t, models.Cents(-7000), buyback.Amount)
	assert.Equal(t, 2, buyback.Contracts)

	res, err := eng.ReplaySymbol(ctx, "F")
	require.NoError(t, err)
	assert.Equal(t, models.StateNone, res.State)
	assert.Equal(t, models.Cents(11000), res.NetCashFlow)
	assert.True(t, res.ClosedEligible())

	// Step 2: settle the pass; the buyback profit is already in the journal.
	_, err = eng.RecordPositionClosed(ctx, wheel.CloseInputs{Symbol: "F", Date: day(-4)})
	require.NoError(t, err)

	// Step 3: the next sale starts a second cycle.
	_, err = eng.RecordSale(ctx, wheel.SaleInputs{
		Symbol:          "F",
		Type:            models.OptionPut,
		Strike:          10,
		PremiumPerShare: 0.70,
		Contracts:       2,
		Expiration:      day(25),
		Date:            day(-2),
	})
	require.NoError(t, err)

	cycles, err := st.GetCycles(ctx, store.CycleFilter{Symbol: "F"})
	require.NoError(t, err)
	assert.Len(t, cycles, 2)

	open, err := st.GetCycles(ctx, store.CycleFilter{Symbol: "F", OpenOnly: true})
	require.NoError(t, err)
	assert.Len(t, open, 1)

	res, err = eng.ReplaySymbol(ctx, "F")
	require.NoError(t, err)
	assert.Equal(t, models.StateCSPOpen, res.State)
}

// TestOrphanAssignmentIsBookedAndFlagged covers the permissive journal:
// an exercise notice with no matching leg is accepted, then reported.
func TestOrphanAssignmentIsBookedAndFlagged(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := eng.RecordAssignment(ctx, wheel.AssignmentInputs{
		Symbol:    "GE",
		Type:      models.OptionPut,
		Strike:    100,
		Expiry:    day(-7),
		Contracts: 1,
		Date:      day(-7),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, result.SharesOwned)

	res, err := eng.ReplaySymbol(ctx, "GE")
	require.NoError(t, err)
	assert.Equal(t, models.StateCSPAssigned, res.State)
	assert.Equal(t, 100, res.SharesOwned)

	kinds := map[wheel.AnomalyKind]bool{}
	findings, err := eng.Doctor(ctx)
	require.NoError(t, err)
	for _, f := range findings {
		kinds[f.Kind] = true
	}
	assert.True(t, kinds[wheel.AnomalyOrphanEvent], "orphan assignment should be flagged: %v", findings)
	assert.True(t, kinds[wheel.AnomalyStaleCycle], "pass without a cycle row should be flagged: %v", findings)
}

// TestCorrectionChangesWhatReplaySees books a fat-fingered strike, then
// corrects it and checks the journal keeps both versions straight.
func TestCorrectionChangesWhatReplaySees(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sale, err := eng.RecordSale(ctx, wheel.SaleInputs{
		Symbol:          "KO",
		Type:            models.OptionPut,
		Strike:          95,
		PremiumPerShare: 1.40,
		Contracts:       1,
		Expiration:      day(30),
		Date:            day(-3),
	})
	require.NoError(t, err)

	// Step 1: a correction without a reason is refused.
	corrected := sale
	corrected.Strike = 96
	_, err = eng.CorrectEvent(ctx, sale.ID, corrected, "")
	require.Error(t, err)

	// Step 2: correct the strike with a reason.
	replacement, err := eng.CorrectEvent(ctx, sale.ID, corrected, "strike typo")
	require.NoError(t, err)
	assert.NotEqual(t, sale.ID, replacement.ID)
	assert.InDelta(t, 96.0, replacement.Strike, 1e-9)

	// Step 3: replay sees only the corrected entry.
	res, err := eng.ReplaySymbol(ctx, "KO")
	require.NoError(t, err)
	require.Len(t, res.OpenPuts, 1)
	assert.InDelta(t, 96.0, res.OpenPuts[0].Strike, 1e-9)

	_, err = eng.FindOpenLeg(ctx, "KO", models.OptionPut, 96, day(30))
	assert.NoError(t, err)
	_, err = eng.FindOpenLeg(ctx, "KO", models.OptionPut, 95, day(30))
	assert.Error(t, err)

	// Step 4: the original survives, marked and linked.
	active, err := st.GetEvents(ctx, store.EventFilter{Symbol: "KO"})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := st.GetEvents(ctx, store.EventFilter{Symbol: "KO", IncludeSuperseded: true})
	require.NoError(t, err)
	require.Len(t, all, 2)

	old, err := st.GetEvent(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventSuperseded, old.Status)
	assert.Equal(t, replacement.ID, old.SupersededBy)
	assert.Equal(t, "strike typo", old.EditReason)
}

// TestImportedHistoryReplays runs a CSV export through the importer and
// checks the journal it builds is indistinguishable from manual entry.
func TestImportedHistoryReplays(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	csv := strings.Join([]string{
		"symbol,event,date,strike,expiry,contracts,premium_per_share,amount,fees,delta,iv_rank,description",
		"MSFT,CSP_SOLD,2025-01-06,240,2025-01-31,1,3.10,,0.65,-0.28,41,january wheel",
		"MSFT,CSP_ASSIGNED,2025-01-31,240,2025-01-31,1,,,,,,",
		"MSFT,CC_SOLD,2025-02-03,245,2025-02-28,1,2.40,,0.65,0.31,,",
		"MSFT,CC_ASSIGNED,2025-02-28,245,2025-02-28,1,,,,,,",
		"MSFT,POSITION_CLOSED,2025-03-01,,,,,,,,,called away",
	}, "\n")

	records, err := importer.ReadRecords(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, records, 5)
	require.Empty(t, importer.ValidateRecords(records))

	summary, err := importer.Apply(ctx, eng, records)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Rows)
	assert.Equal(t, 5, summary.Applied)
	assert.Equal(t, []string{"MSFT"}, summary.Symbols)
	assert.Equal(t, 1, summary.ByType[models.EventCSPSold])
	assert.Equal(t, 1, summary.ByType[models.EventPositionClosed])

	res, err := eng.ReplaySymbol(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, models.StateClosed, res.State)
	assert.Equal(t, models.Cents(55000), res.PremiumCollected)
	assert.Equal(t, models.Cents(104870), res.NetCashFlow)
	assert.Empty(t, res.Anomalies)

	// The covered-call row snapshotted the strike floor on its way in.
	snaps, err := st.GetSnapshots(ctx, store.SnapshotFilter{Symbol: "MSFT"})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.InDelta(t, 237.60, snaps[0].MinStrike, 1e-9)

	findings, err := eng.Doctor(ctx)
	require.NoError(t, err)
	assert.Empty(t, findings)

	// The sale row's greeks came through the metadata column.
	events, err := st.GetEvents(ctx, store.EventFilter{
		Symbol: "MSFT",
		Types:  []models.EventType{models.EventCSPSold},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Meta)
	require.NotNil(t, events[0].Meta.Delta)
	assert.InDelta(t, -0.28, *events[0].Meta.Delta, 1e-9)

	t.Logf("Imported %d rows: state=%s net=%s", summary.Applied, res.State, res.NetCashFlow)
}
