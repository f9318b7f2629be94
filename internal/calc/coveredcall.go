package calc

import (
	"fmt"
	"math"
	"time"

	"wheel-tracker/internal/models"
)

// CoveredCallInputs is a covered-call scenario: shares already held
// plus a short call against them. Premium and Fees are leg totals in
// minor units; prices are per share.
type CoveredCallInputs struct {
	Symbol     string
	SharePrice float64
	ShareBasis float64
	ShareQty   int
	Strike     float64
	Premium    models.Cents
	Fees       models.Cents
	Expiration time.Time
	AsOf       time.Time // zero means now
}

// CoveredCallMetrics is the computed scenario summary.
type CoveredCallMetrics struct {
	DaysToExpiration int // signed, negative once expired
	PremiumPerShare  float64
	Breakeven        float64
	MaxProfit        float64
	MaxLoss          float64
	AnnualizedROO    float64 // fraction, 0.10 = 10%
	Delta            float64
	Theta            float64
	Moneyness        float64
	MinStrike        float64 // lowest strike that keeps the basis whole
}

// CoveredCall evaluates a covered-call scenario.
type CoveredCall struct {
	Inputs CoveredCallInputs
	Greeks GreeksModel
	Params RiskParams
}

// NewCoveredCall returns a calculator with the default greeks model
// and risk thresholds.
func NewCoveredCall(in CoveredCallInputs) *CoveredCall {
	return &CoveredCall{
		Inputs: in,
		Greeks: ApproxGreeks{},
		Params: DefaultRiskParams(),
	}
}

// Metrics computes the scenario summary. Broken inputs return the zero
// bundle; AnalyzeRisks carries the reason.
func (c *CoveredCall) Metrics() CoveredCallMetrics {
	if c.invalidReason() != "" {
		return CoveredCallMetrics{}
	}
	in := c.Inputs

	dte := DaysToExpiration(in.Expiration, c.asOf())
	pps := in.Premium.Dollars() / float64(in.ShareQty)
	basisTotal := in.ShareBasis * float64(in.ShareQty)
	net := (in.Premium - in.Fees).Dollars()
	moneyness := Moneyness(in.SharePrice, in.Strike)

	return CoveredCallMetrics{
		DaysToExpiration: dte,
		PremiumPerShare:  pps,
		Breakeven:        in.ShareBasis - pps,
		MaxProfit:        (in.Strike-in.ShareBasis)*float64(in.ShareQty) + net,
		MaxLoss:          basisTotal - net,
		AnnualizedROO:    net / basisTotal * annualizeFactor(dte),
		Delta:            c.Greeks.Delta(moneyness, dte),
		Theta:            c.Greeks.Theta(pps, dte),
		Moneyness:        moneyness,
		MinStrike:        in.ShareBasis - pps,
	}
}

// AnalyzeRisks grades the scenario, most severe first.
func (c *CoveredCall) AnalyzeRisks() []RiskFlag {
	if reason := c.invalidReason(); reason != "" {
		return []RiskFlag{criticalFlag(reason)}
	}

	m := c.Metrics()
	var flags []RiskFlag
	if m.DaysToExpiration <= 0 {
		flags = append(flags, expiredLegFlag(m.DaysToExpiration))
	}
	if m.AnnualizedROO > c.Params.ROOAlertThreshold {
		flags = append(flags, outsizedReturnFlag(m.AnnualizedROO))
	}
	if math.Abs(m.Moneyness) < c.Params.NearMoneyBand {
		flags = append(flags, nearMoneyFlag(m.Moneyness))
	}
	return flags
}

func (c *CoveredCall) invalidReason() string {
	in := c.Inputs
	switch {
	case in.ShareQty <= 0:
		return fmt.Sprintf("share quantity %d must be positive", in.ShareQty)
	case !finitePositive(in.Strike):
		return fmt.Sprintf("strike %v must be a positive number", in.Strike)
	case !finitePositive(in.ShareBasis):
		return fmt.Sprintf("share basis %v must be a positive number", in.ShareBasis)
	case !finitePositive(in.SharePrice):
		return fmt.Sprintf("share price %v must be a positive number", in.SharePrice)
	case in.Premium < 0:
		return fmt.Sprintf("premium %s must not be negative", in.Premium)
	case in.Fees < 0:
		return fmt.Sprintf("fees %s must not be negative", in.Fees)
	case in.Expiration.IsZero():
		return "expiration date is required"
	}
	return ""
}

func (c *CoveredCall) asOf() time.Time {
	if c.Inputs.AsOf.IsZero() {
		return time.Now()
	}
	return c.Inputs.AsOf
}

// annualizeFactor scales a simple return to a yearly one. A same-day
// expiration counts as one day so the factor stays finite.
func annualizeFactor(daysToExpiration int) float64 {
	days := ClampDTE(daysToExpiration)
	if days < 1 {
		days = 1
	}
	return 365 / float64(days)
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
