package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheel-tracker/internal/models"
)

func TestCashSecuredPutMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		inputs            CashSecuredPutInputs
		wantShares        int
		wantBreakeven     float64
		wantMaxProfit     float64
		wantROO           float64
		wantAnnualizedROO float64
	}{
		{
			name: "one contract thirty days out",
			inputs: CashSecuredPutInputs{
				Symbol:       "KO",
				Strike:       50,
				Premium:      20000,
				CashSecured:  500000,
				CurrentPrice: 53,
				Expiration:   asOf.AddDate(0, 0, 30),
				AsOf:         asOf,
			},
			wantShares:        100,
			wantBreakeven:     48.00,
			wantMaxProfit:     200,
			wantROO:           0.04,
			wantAnnualizedROO: 0.04 * 365 / 30,
		},
		{
			name: "fees reduce the credit",
			inputs: CashSecuredPutInputs{
				Symbol:       "KO",
				Strike:       50,
				Premium:      20000,
				Fees:         200,
				CashSecured:  500000,
				CurrentPrice: 53,
				Expiration:   asOf.AddDate(0, 0, 30),
				AsOf:         asOf,
			},
			wantShares:        100,
			wantBreakeven:     48.00,
			wantMaxProfit:     198,
			wantROO:           0.0396,
			wantAnnualizedROO: 0.0396 * 365 / 30,
		},
		{
			name: "two contracts secured",
			inputs: CashSecuredPutInputs{
				Symbol:       "F",
				Strike:       10,
				Premium:      5000,
				CashSecured:  200000,
				CurrentPrice: 11,
				Expiration:   asOf.AddDate(0, 0, 45),
				AsOf:         asOf,
			},
			wantShares:        200,
			wantBreakeven:     9.75,
			wantMaxProfit:     50,
			wantROO:           0.025,
			wantAnnualizedROO: 0.025 * 365 / 45,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewCashSecuredPut(tt.inputs).Metrics()
			assert.Equal(t, tt.wantShares, m.SharesSecured)
			assert.InDelta(t, tt.wantBreakeven, m.Breakeven, 1e-9)
			assert.InDelta(t, tt.wantMaxProfit, m.MaxProfit, 1e-9)
			assert.InDelta(t, tt.wantROO, m.ROO, 1e-9)
			assert.InDelta(t, tt.wantAnnualizedROO, m.AnnualizedROO, 1e-9)
		})
	}
}

func TestCashSecuredPutBreakevenEqualsEffectiveBasis(t *testing.T) {
	t.Parallel()

	// If assigned, the shares cost strike minus the premium already
	// collected. Breakeven reports exactly that effective basis.
	m := NewCashSecuredPut(CashSecuredPutInputs{
		Symbol:       "KO",
		Strike:       50,
		Premium:      20000,
		CashSecured:  500000,
		CurrentPrice: 53,
		Expiration:   asOf.AddDate(0, 0, 30),
		AsOf:         asOf,
	}).Metrics()

	effectiveBasis := 50.0 - m.PremiumPerShare
	assert.InDelta(t, effectiveBasis, m.Breakeven, 1e-12)
}

func TestCashSecuredPutZeroDTEStaysFinite(t *testing.T) {
	t.Parallel()

	c := NewCashSecuredPut(CashSecuredPutInputs{
		Symbol:       "KO",
		Strike:       50,
		Premium:      20000,
		CashSecured:  500000,
		CurrentPrice: 53,
		Expiration:   asOf,
		AsOf:         asOf,
	})

	m := c.Metrics()
	require.False(t, math.IsNaN(m.AnnualizedROO))
	require.False(t, math.IsInf(m.AnnualizedROO, 0))

	flags := c.AnalyzeRisks()
	require.NotEmpty(t, flags)
	assert.Equal(t, RiskExpiredLeg, flags[0].Code)
}

func TestCashSecuredPutBrokenInputsDegrade(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		inputs CashSecuredPutInputs
	}{
		{
			name: "zero cash secured",
			inputs: CashSecuredPutInputs{
				Strike: 50, Premium: 20000, CurrentPrice: 53,
				Expiration: asOf.AddDate(0, 0, 30), AsOf: asOf,
			},
		},
		{
			name: "infinite strike",
			inputs: CashSecuredPutInputs{
				Strike: math.Inf(1), Premium: 20000, CashSecured: 500000,
				CurrentPrice: 53, Expiration: asOf.AddDate(0, 0, 30), AsOf: asOf,
			},
		},
		{
			name: "non-positive current price",
			inputs: CashSecuredPutInputs{
				Strike: 50, Premium: 20000, CashSecured: 500000,
				CurrentPrice: 0, Expiration: asOf.AddDate(0, 0, 30), AsOf: asOf,
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewCashSecuredPut(tt.inputs)
			assert.Equal(t, CashSecuredPutMetrics{}, c.Metrics())

			flags := c.AnalyzeRisks()
			require.Len(t, flags, 1)
			assert.Equal(t, models.RiskCritical, flags[0].Severity)
		})
	}
}

func TestCashSecuredPutOutsizedReturnFlag(t *testing.T) {
	t.Parallel()

	// A 10% credit over two days annualizes far past the threshold.
	c := NewCashSecuredPut(CashSecuredPutInputs{
		Symbol:       "MEME",
		Strike:       50,
		Premium:      50000,
		CashSecured:  500000,
		CurrentPrice: 60,
		Expiration:   asOf.AddDate(0, 0, 2),
		AsOf:         asOf,
	})

	var codes []string
	for _, f := range c.AnalyzeRisks() {
		codes = append(codes, f.Code)
	}
	assert.Contains(t, codes, RiskOutsizedReturn)
}
