package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheel-tracker/internal/models"
)

func TestLongCallMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		inputs         LongCallInputs
		wantBreakeven  float64
		wantIntrinsic  float64
		wantTimeValue  float64
		wantUnrealized float64
	}{
		{
			name: "in the money with time value left",
			inputs: LongCallInputs{
				Symbol:          "AAPL",
				Strike:          100,
				PremiumPerShare: 2.50,
				MarkPerShare:    4.00,
				CurrentPrice:    103,
				Expiration:      asOf.AddDate(0, 0, 21),
				AsOf:            asOf,
			},
			wantBreakeven:  102.50,
			wantIntrinsic:  3.00,
			wantTimeValue:  1.00,
			wantUnrealized: 150,
		},
		{
			name: "out of the money is all time value",
			inputs: LongCallInputs{
				Symbol:          "AAPL",
				Strike:          110,
				PremiumPerShare: 1.20,
				MarkPerShare:    0.80,
				CurrentPrice:    103,
				Expiration:      asOf.AddDate(0, 0, 21),
				AsOf:            asOf,
			},
			wantBreakeven:  111.20,
			wantIntrinsic:  0,
			wantTimeValue:  0.80,
			wantUnrealized: -40,
		},
		{
			name: "mark below intrinsic floors time value at zero",
			inputs: LongCallInputs{
				Symbol:          "THIN",
				Strike:          100,
				PremiumPerShare: 3.00,
				MarkPerShare:    2.90,
				CurrentPrice:    103,
				Expiration:      asOf.AddDate(0, 0, 1),
				AsOf:            asOf,
			},
			wantBreakeven:  103.00,
			wantIntrinsic:  3.00,
			wantTimeValue:  0,
			wantUnrealized: -10,
		},
		{
			name: "fees come out of the mark to market",
			inputs: LongCallInputs{
				Symbol:          "AAPL",
				Strike:          100,
				PremiumPerShare: 2.50,
				MarkPerShare:    4.00,
				CurrentPrice:    103,
				Contracts:       2,
				Fees:            130,
				Expiration:      asOf.AddDate(0, 0, 21),
				AsOf:            asOf,
			},
			wantBreakeven:  102.50,
			wantIntrinsic:  3.00,
			wantTimeValue:  1.00,
			wantUnrealized: 298.70,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewLongCall(tt.inputs).Metrics()
			assert.InDelta(t, tt.wantBreakeven, m.Breakeven, 1e-9)
			assert.InDelta(t, tt.wantIntrinsic, m.Intrinsic, 1e-9)
			assert.InDelta(t, tt.wantTimeValue, m.TimeValue, 1e-9)
			assert.InDelta(t, tt.wantUnrealized, m.UnrealizedPnL, 1e-9)
		})
	}
}

func TestLongCallBrokenInputsDegrade(t *testing.T) {
	t.Parallel()

	c := NewLongCall(LongCallInputs{
		Symbol:          "AAPL",
		Strike:          100,
		PremiumPerShare: math.NaN(),
		MarkPerShare:    4.00,
		CurrentPrice:    103,
		Expiration:      asOf.AddDate(0, 0, 21),
		AsOf:            asOf,
	})

	assert.Equal(t, LongCallMetrics{}, c.Metrics())

	flags := c.AnalyzeRisks()
	require.Len(t, flags, 1)
	assert.Equal(t, models.RiskCritical, flags[0].Severity)
	assert.Equal(t, RiskInvalidInput, flags[0].Code)
}

func TestLongCallExpiredLegNotFlaggedHigh(t *testing.T) {
	t.Parallel()

	c := NewLongCall(LongCallInputs{
		Symbol:          "AAPL",
		Strike:          100,
		PremiumPerShare: 2.50,
		MarkPerShare:    0.10,
		CurrentPrice:    95,
		Expiration:      asOf.AddDate(0, 0, -2),
		AsOf:            asOf,
	})

	assert.Equal(t, -2, c.Metrics().DaysToExpiration)
	for _, f := range c.AnalyzeRisks() {
		assert.NotEqual(t, models.RiskHigh, f.Severity)
	}
}
