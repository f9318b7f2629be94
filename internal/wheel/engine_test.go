package wheel

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "wheel-tracker/internal/errors"
	"wheel-tracker/internal/models"
	"wheel-tracker/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, store.WheelStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "wheel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	eng := NewEngine(st, zerolog.Nop())
	eng.now = func() time.Time { return day0.AddDate(0, 0, 1) }
	return eng, st
}

func TestRecordSaleOpensCycle(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()

	ev, err := eng.RecordSale(ctx, SaleInputs{
		Symbol:          "ko",
		Type:            models.OptionPut,
		Strike:          95,
		PremiumPerShare: 2.50,
		Contracts:       1,
		Expiration:      exp1,
		Date:            day0,
	})
	require.NoError(t, err)

	assert.Equal(t, "KO", ev.Symbol)
	assert.Equal(t, models.EventCSPSold, ev.Type)
	assert.Equal(t, models.Cents(25000), ev.Amount)
	assert.NotEmpty(t, ev.CycleID)

	cycle, err := st.GetOpenCycle(ctx, "KO")
	require.NoError(t, err)
	require.NotNil(t, cycle)
	assert.Equal(t, ev.CycleID, cycle.ID)

	// A second sale joins the same cycle instead of opening another.
	ev2, err := eng.RecordSale(ctx, SaleInputs{
		Symbol:          "KO",
		Type:            models.OptionPut,
		Strike:          90,
		PremiumPerShare: 1.80,
		Contracts:       1,
		Expiration:      exp2,
		Date:            day0.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, ev.CycleID, ev2.CycleID)
}

func TestRecordSaleValidation(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   SaleInputs
	}{
		{"missing symbol", SaleInputs{Type: models.OptionPut, Strike: 95, Contracts: 1, Expiration: exp1}},
		{"bad type", SaleInputs{Symbol: "KO", Type: "STRADDLE", Strike: 95, Contracts: 1, Expiration: exp1}},
		{"zero strike", SaleInputs{Symbol: "KO", Type: models.OptionPut, Contracts: 1, Expiration: exp1}},
		{"negative premium", SaleInputs{Symbol: "KO", Type: models.OptionPut, Strike: 95, PremiumPerShare: -1, Contracts: 1, Expiration: exp1}},
		{"zero contracts", SaleInputs{Symbol: "KO", Type: models.OptionPut, Strike: 95, Expiration: exp1}},
		{"no expiration", SaleInputs{Symbol: "KO", Type: models.OptionPut, Strike: 95, Contracts: 1}},
		{"lowercase junk symbol", SaleInputs{Symbol: "k o!", Type: models.OptionPut, Strike: 95, Contracts: 1, Expiration: exp1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.RecordSale(ctx, tc.in)
			var verr *apperrors.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestRecordSaleCoveredCallSnapshots(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.RecordBuy(ctx, BuyInputs{Symbol: "KO", Quantity: 100, Price: 95, Date: day0})
	require.NoError(t, err)

	_, err = eng.RecordSale(ctx, SaleInputs{
		Symbol:          "KO",
		Type:            models.OptionCall,
		Strike:          100,
		PremiumPerShare: 2.50,
		Contracts:       1,
		Expiration:      exp1,
		Date:            day0.AddDate(0, 0, 2),
	})
	require.NoError(t, err)

	snaps, err := st.GetSnapshots(ctx, store.SnapshotFilter{Symbol: "KO"})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.InDelta(t, 95.0, snaps[0].AverageCost, 1e-9)
	assert.InDelta(t, 92.50, snaps[0].MinStrike, 1e-9)
	assert.Equal(t, 100, snaps[0].SharesOwned)
}

func TestRecordSalePutDoesNotSnapshot(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.RecordSale(ctx, SaleInputs{
		Symbol:          "KO",
		Type:            models.OptionPut,
		Strike:          95,
		PremiumPerShare: 2.50,
		Contracts:       1,
		Expiration:      exp1,
		Date:            day0,
	})
	require.NoError(t, err)

	snaps, err := st.GetSnapshots(ctx, store.SnapshotFilter{Symbol: "KO"})
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSnapshotIdempotentPerDay(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()

	lots := []models.ShareLot{{ID: "l1", Symbol: "KO", Quantity: 100, AverageCost: 95, AcquiredDate: day0}}

	first, err := eng.RecordMinStrikeSnapshot(ctx, "KO", day0, lots, 2.50)
	require.NoError(t, err)
	assert.InDelta(t, 92.50, first.MinStrike, 1e-9)

	// Same day, later premium: the row is replaced, not duplicated.
	second, err := eng.RecordMinStrikeSnapshot(ctx, "KO", day0.Add(4*time.Hour), lots, 3.00)
	require.NoError(t, err)
	assert.InDelta(t, 92.00, second.MinStrike, 1e-9)

	snaps, err := st.GetSnapshots(ctx, store.SnapshotFilter{Symbol: "KO"})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.InDelta(t, 92.00, snaps[0].MinStrike, 1e-9)
}

func TestRecordExpirationNeedsOpenLeg(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.RecordExpiration(ctx, ExpirationInputs{
		Symbol: "KO",
		Type:   models.OptionPut,
		Date:   day0,
	})
	assert.ErrorIs(t, err, apperrors.ErrNoOpenLeg)
}

func TestRecordExpirationFillsLegDetails(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.RecordSale(ctx, SaleInputs{
		Symbol: "KO", Type: models.OptionPut, Strike: 95,
		PremiumPerShare: 2.50, Contracts: 2, Expiration: exp1, Date: day0,
	})
	require.NoError(t, err)

	ev, err := eng.RecordExpiration(ctx, ExpirationInputs{
		Symbol: "KO",
		Type:   models.OptionPut,
		Date:   day0.AddDate(0, 0, 46),
	})
	require.NoError(t, err)
	assert.Equal(t, models.EventCSPExpired, ev.Type)
	assert.InDelta(t, 95.0, ev.Strike, 1e-9)
	assert.Equal(t, 2, ev.Contracts)
	assert.Equal(t, models.Cents(0), ev.Amount)

	res, err := eng.ReplaySymbol(ctx, "KO")
	require.NoError(t, err)
	assert.Equal(t, models.StateNone, res.State)
}

func TestRecordBuybackDebitsPremium(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.RecordSale(ctx, SaleInputs{
		Symbol: "KO", Type: models.OptionPut, Strike: 95,
		PremiumPerShare: 2.50, Contracts: 1, Expiration: exp1, Date: day0,
	})
	require.NoError(t, err)

	ev, err := eng.RecordBuyback(ctx, BuybackInputs{
		Symbol:          "KO",
		Type:            models.OptionPut,
		PremiumPerShare: 1.10,
		Date:            day0.AddDate(0, 0, 20),
		Fees:            65,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EventCSPClosed, ev.Type)
	assert.Equal(t, models.Cents(-11000), ev.Amount)
	require.NotNil(t, ev.Meta)
	require.NotNil(t, ev.Meta.Commission)
	assert.Equal(t, models.Cents(65), *ev.Meta.Commission)

	res, err := eng.ReplaySymbol(ctx, "KO")
	require.NoError(t, err)
	assert.Equal(t, models.StateNone, res.State)
	// 250 credit, 110 debit, 0.65 fees.
	assert.Equal(t, models.Cents(25000-11000-65), res.NetCashFlow)
}

func TestRecordPositionClosedEndsCycle(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()

	sold, err := eng.RecordSale(ctx, SaleInputs{
		Symbol: "KO", Type: models.OptionPut, Strike: 95,
		PremiumPerShare: 2.50, Contracts: 1, Expiration: exp1, Date: day0,
	})
	require.NoError(t, err)

	_, err = eng.RecordExpiration(ctx, ExpirationInputs{
		Symbol: "KO", Type: models.OptionPut, Date: day0.AddDate(0, 0, 46),
	})
	require.NoError(t, err)

	ev, err := eng.RecordPositionClosed(ctx, CloseInputs{
		Symbol: "KO",
		Date:   day0.AddDate(0, 0, 47),
	})
	require.NoError(t, err)
	assert.Equal(t, sold.CycleID, ev.CycleID)

	open, err := st.GetOpenCycle(ctx, "KO")
	require.NoError(t, err)
	assert.Nil(t, open)

	res, err := eng.ReplaySymbol(ctx, "KO")
	require.NoError(t, err)
	assert.Equal(t, models.StateClosed, res.State)
}

func TestCorrectEventKeepsHistory(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()

	orig, err := eng.RecordSale(ctx, SaleInputs{
		Symbol: "KO", Type: models.OptionPut, Strike: 95,
		PremiumPerShare: 2.50, Contracts: 1, Expiration: exp1, Date: day0,
	})
	require.NoError(t, err)

	fixed, err := eng.CorrectEvent(ctx, orig.ID, models.WheelEvent{
		Type:      models.EventCSPSold,
		Amount:    26000,
		Strike:    96,
		Expiry:    exp1,
		Contracts: 1,
	}, "fat-fingered the strike")
	require.NoError(t, err)
	assert.Equal(t, orig.Symbol, fixed.Symbol)
	assert.Equal(t, orig.CycleID, fixed.CycleID)

	old, err := st.GetEvent(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventSuperseded, old.Status)
	assert.Equal(t, fixed.ID, old.SupersededBy)
	assert.Equal(t, "fat-fingered the strike", old.EditReason)

	// Replay sees only the correction.
	res, err := eng.ReplaySymbol(ctx, "KO")
	require.NoError(t, err)
	require.Len(t, res.OpenPuts, 1)
	assert.InDelta(t, 96.0, res.OpenPuts[0].Strike, 1e-9)
	assert.Equal(t, models.Cents(26000), res.PremiumCollected)
}

func TestCorrectEventRequiresReason(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	orig, err := eng.RecordSale(ctx, SaleInputs{
		Symbol: "KO", Type: models.OptionPut, Strike: 95,
		PremiumPerShare: 2.50, Contracts: 1, Expiration: exp1, Date: day0,
	})
	require.NoError(t, err)

	_, err = eng.CorrectEvent(ctx, orig.ID, models.WheelEvent{Strike: 96}, "")
	assert.ErrorIs(t, err, apperrors.ErrEditReasonRequired)
}

func TestCorrectEventUnknownID(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.CorrectEvent(context.Background(), "no-such-event", models.WheelEvent{}, "because")
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestRecordBuyAddsLot(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()

	lot, err := eng.RecordBuy(ctx, BuyInputs{Symbol: "ko", Quantity: 50, Price: 94.20, Date: day0})
	require.NoError(t, err)
	assert.Equal(t, "KO", lot.Symbol)

	lots, err := st.GetLots(ctx, "KO")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, 50, lots[0].Quantity)
	assert.InDelta(t, 94.20, lots[0].AverageCost, 1e-9)
}
