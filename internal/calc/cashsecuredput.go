package calc

import (
	"fmt"
	"math"
	"time"

	"wheel-tracker/internal/models"
)

// CashSecuredPutInputs is a short-put scenario backed by reserved cash.
// Premium, Fees and CashSecured are totals in minor units.
type CashSecuredPutInputs struct {
	Symbol       string
	Strike       float64
	Premium      models.Cents
	Fees         models.Cents
	CashSecured  models.Cents
	CurrentPrice float64
	Expiration   time.Time
	AsOf         time.Time // zero means now
}

// CashSecuredPutMetrics is the computed scenario summary. Breakeven is
// the effective share basis if the put is assigned.
type CashSecuredPutMetrics struct {
	DaysToExpiration int // signed, negative once expired
	SharesSecured    int
	PremiumPerShare  float64
	Breakeven        float64
	MaxProfit        float64
	ROO              float64 // return on obligated cash, fraction
	AnnualizedROO    float64
	Moneyness        float64
}

// CashSecuredPut evaluates a cash-secured-put scenario.
type CashSecuredPut struct {
	Inputs CashSecuredPutInputs
	Params RiskParams
}

// NewCashSecuredPut returns a calculator with the default risk thresholds.
func NewCashSecuredPut(in CashSecuredPutInputs) *CashSecuredPut {
	return &CashSecuredPut{
		Inputs: in,
		Params: DefaultRiskParams(),
	}
}

// Metrics computes the scenario summary. Broken inputs return the zero
// bundle; AnalyzeRisks carries the reason.
func (c *CashSecuredPut) Metrics() CashSecuredPutMetrics {
	if c.invalidReason() != "" {
		return CashSecuredPutMetrics{}
	}
	in := c.Inputs

	dte := DaysToExpiration(in.Expiration, c.asOf())
	shares := int(math.Round(in.CashSecured.Dollars() / in.Strike))
	pps := 0.0
	if shares > 0 {
		pps = in.Premium.Dollars() / float64(shares)
	}
	net := (in.Premium - in.Fees).Dollars()
	roo := net / in.CashSecured.Dollars()

	return CashSecuredPutMetrics{
		DaysToExpiration: dte,
		SharesSecured:    shares,
		PremiumPerShare:  pps,
		Breakeven:        in.Strike - pps,
		MaxProfit:        net,
		ROO:              roo,
		AnnualizedROO:    roo * annualizeFactor(dte),
		Moneyness:        Moneyness(in.CurrentPrice, in.Strike),
	}
}

// AnalyzeRisks grades the scenario, most severe first.
func (c *CashSecuredPut) AnalyzeRisks() []RiskFlag {
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

func (c *CashSecuredPut) invalidReason() string {
	in := c.Inputs
	switch {
	case !finitePositive(in.Strike):
		return fmt.Sprintf("strike %v must be a positive number", in.Strike)
	case in.CashSecured <= 0:
		return fmt.Sprintf("cash secured %s must be positive", in.CashSecured)
	case !finitePositive(in.CurrentPrice):
		return fmt.Sprintf("current price %v must be a positive number", in.CurrentPrice)
	case in.Premium < 0:
		return fmt.Sprintf("premium %s must not be negative", in.Premium)
	case in.Fees < 0:
		return fmt.Sprintf("fees %s must not be negative", in.Fees)
	case in.Expiration.IsZero():
		return "expiration date is required"
	}
	return ""
}

func (c *CashSecuredPut) asOf() time.Time {
	if c.Inputs.AsOf.IsZero() {
		return time.Now()
	}
	return c.Inputs.AsOf
}
