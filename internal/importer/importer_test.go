package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "wheel-tracker/internal/errors"
	"wheel-tracker/internal/models"
	"wheel-tracker/internal/store"
	"wheel-tracker/internal/wheel"
)

const csvHeader = "symbol,event,date,strike,expiry,contracts,premium_per_share,amount,fees,delta,iv_rank,description"

func newImportEngine(t *testing.T) (*wheel.Engine, store.WheelStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "wheel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return wheel.NewEngine(st, zerolog.Nop()), st
}

func TestReadRecordsParsesRows(t *testing.T) {
	in := strings.Join([]string{
		csvHeader,
		"KO,CSP_SOLD,2025-05-05,95,2025-06-20,1,2.50,0,0.65,-0.30,42,opening put",
		"KO,CSP_EXPIRED,2025-06-20,95,2025-06-20,1,0,0,0,,,",
	}, "\n")

	records, err := ReadRecords(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "KO", first.Symbol)
	assert.Equal(t, "CSP_SOLD", first.Event)
	assert.True(t, first.Date.Equal(time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)))
	assert.InDelta(t, 95.0, first.Strike, 1e-9)
	assert.InDelta(t, 2.50, first.PremiumPerShare, 1e-9)
	assert.Equal(t, 1, first.Contracts)
	assert.Equal(t, "-0.30", first.Delta)
	assert.Equal(t, "opening put", first.Description)

	assert.Empty(t, records[1].Delta)
}

func TestReadRecordsBadDate(t *testing.T) {
	in := strings.Join([]string{
		csvHeader,
		"KO,CSP_SOLD,05/05/2025,95,2025-06-20,1,2.50,0,0,,,",
	}, "\n")

	_, err := ReadRecords(strings.NewReader(in))
	assert.Error(t, err)
}

func TestValidateRecordsReportsRowNumbers(t *testing.T) {
	records := []TradeRecord{
		{Symbol: "KO", Event: "CSP_SOLD", Date: Date{time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)},
			Strike: 95, Expiry: Date{time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)}, Contracts: 1, PremiumPerShare: 2.50},
		{Symbol: "ko!!", Event: "CSP_SOLD", Date: Date{time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)},
			Strike: 95, Expiry: Date{time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)}, Contracts: 1},
		{Symbol: "KO", Event: "GAMMA_SQUEEZE", Date: Date{time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)},
			Strike: 95, Expiry: Date{time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)}, Contracts: 1},
		{Symbol: "KO", Event: "CSP_SOLD", Date: Date{time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)},
			Expiry: Date{time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)}, Contracts: 1},
	}

	errs := ValidateRecords(records)
	require.Len(t, errs, 3)

	var ierr *apperrors.ImportError
	require.ErrorAs(t, errs[0], &ierr)
	assert.Equal(t, 2, ierr.Row)
	assert.Equal(t, "symbol", ierr.Field)

	require.ErrorAs(t, errs[1], &ierr)
	assert.Equal(t, 3, ierr.Row)
	assert.Equal(t, "event", ierr.Field)

	require.ErrorAs(t, errs[2], &ierr)
	assert.Equal(t, 4, ierr.Row)
	assert.Equal(t, "strike", ierr.Field)
}

func TestValidateSettlementRowNeedsNoLegFields(t *testing.T) {
	rec := TradeRecord{
		Symbol: "KO",
		Event:  "POSITION_CLOSED",
		Date:   Date{time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
		Amount: 9700,
	}
	assert.Empty(t, ValidateRecords([]TradeRecord{rec}))
}

func TestApplyBooksFullWheel(t *testing.T) {
	eng, st := newImportEngine(t)
	ctx := context.Background()

	// Rows arrive out of order; Apply sorts by date before booking.
	in := strings.Join([]string{
		csvHeader,
		"KO,CC_SOLD,2025-06-23,100,2025-07-18,1,1.80,0,0.65,0.25,38,",
		"KO,CSP_SOLD,2025-05-05,95,2025-06-20,1,2.50,0,0.65,-0.30,42,",
		"KO,CSP_ASSIGNED,2025-06-20,95,2025-06-20,1,0,0,0,,,assigned at expiry",
		"KO,CC_ASSIGNED,2025-07-18,100,2025-07-18,1,0,0,0,,,called away",
	}, "\n")

	records, err := ReadRecords(strings.NewReader(in))
	require.NoError(t, err)

	summary, err := Apply(ctx, eng, records)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Rows)
	assert.Equal(t, 4, summary.Applied)
	assert.Equal(t, []string{"KO"}, summary.Symbols)
	assert.Equal(t, 1, summary.ByType[models.EventCSPSold])
	assert.Equal(t, 1, summary.ByType[models.EventCCAssigned])

	replay, err := eng.ReplaySymbol(ctx, "KO")
	require.NoError(t, err)
	assert.Equal(t, models.StateCCAssigned, replay.State)
	assert.Equal(t, 0, replay.SharesOwned)
	assert.Empty(t, replay.Anomalies)

	// The assignment went through the lot machinery.
	lots, err := st.GetLots(ctx, "KO")
	require.NoError(t, err)
	assert.Empty(t, lots)

	// And the covered-call sale left its snapshot: 95 - 1.80.
	snaps, err := st.GetSnapshots(ctx, store.SnapshotFilter{Symbol: "KO"})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.InDelta(t, 93.20, snaps[0].MinStrike, 1e-9)

	// Meta rode along on the sale rows.
	events, err := st.GetEvents(ctx, store.EventFilter{Symbol: "KO", Types: []models.EventType{models.EventCSPSold}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Meta)
	require.NotNil(t, events[0].Meta.Delta)
	assert.InDelta(t, -0.30, *events[0].Meta.Delta, 1e-9)
	require.NotNil(t, events[0].Meta.Commission)
	assert.Equal(t, models.Cents(65), *events[0].Meta.Commission)
}

func TestApplyRejectsInvalidBeforeBooking(t *testing.T) {
	eng, st := newImportEngine(t)
	ctx := context.Background()

	records := []TradeRecord{
		{Symbol: "KO", Event: "CSP_SOLD", Date: Date{time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)},
			Strike: 95, Expiry: Date{time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)}, Contracts: 1, PremiumPerShare: 2.50},
		{Symbol: "???", Event: "CSP_SOLD", Date: Date{time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)},
			Strike: 95, Expiry: Date{time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)}, Contracts: 1},
	}

	summary, err := Apply(ctx, eng, records)
	require.Error(t, err)
	assert.Zero(t, summary.Applied)

	// Nothing was booked, not even the valid first row.
	events, err := st.GetEvents(ctx, store.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestApplyStopsAtEngineRejection(t *testing.T) {
	eng, st := newImportEngine(t)
	ctx := context.Background()

	// The expiration names a leg that was never sold.
	records := []TradeRecord{
		{Symbol: "KO", Event: "CSP_SOLD", Date: Date{time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)},
			Strike: 95, Expiry: Date{time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)}, Contracts: 1, PremiumPerShare: 2.50},
		{Symbol: "F", Event: "CSP_EXPIRED", Date: Date{time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)},
			Strike: 11, Expiry: Date{time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)}, Contracts: 1},
	}

	summary, err := Apply(ctx, eng, records)
	require.Error(t, err)
	var ierr *apperrors.ImportError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, 2, ierr.Row)
	assert.ErrorIs(t, err, apperrors.ErrNoOpenLeg)

	// The first row landed before the bad one stopped the run.
	assert.Equal(t, 1, summary.Applied)
	events, err := st.GetEvents(ctx, store.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestDateRoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalCSV("2025-06-20"))
	out, err := d.MarshalCSV()
	require.NoError(t, err)
	assert.Equal(t, "2025-06-20", out)

	var empty Date
	require.NoError(t, empty.UnmarshalCSV("  "))
	assert.True(t, empty.IsZero())
	out, err = empty.MarshalCSV()
	require.NoError(t, err)
	assert.Empty(t, out)
}
