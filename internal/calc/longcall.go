package calc

import (
	"fmt"
	"math"
	"time"

	"wheel-tracker/internal/models"
)

// LongCallInputs is a bought-call scenario. PremiumPerShare is the
// price paid at open and MarkPerShare the current option price, both
// per share; Fees is the leg total in minor units.
type LongCallInputs struct {
	Symbol          string
	Strike          float64
	PremiumPerShare float64
	MarkPerShare    float64
	CurrentPrice    float64
	Contracts       int // zero means one
	Fees            models.Cents
	Expiration      time.Time
	AsOf            time.Time // zero means now
}

// LongCallMetrics is the computed scenario summary.
type LongCallMetrics struct {
	DaysToExpiration int // signed, negative once expired
	Breakeven        float64
	Intrinsic        float64 // per share
	TimeValue        float64 // per share, floored at zero
	UnrealizedPnL    float64 // total across contracts, net of fees
	Moneyness        float64
}

// LongCall evaluates a bought-call scenario.
type LongCall struct {
	Inputs LongCallInputs
	Params RiskParams
}

// NewLongCall returns a calculator with the default risk thresholds.
func NewLongCall(in LongCallInputs) *LongCall {
	return &LongCall{
		Inputs: in,
		Params: DefaultRiskParams(),
	}
}

// Metrics computes the scenario summary. Broken inputs return the zero
// bundle; AnalyzeRisks carries the reason.
func (c *LongCall) Metrics() LongCallMetrics {
	if c.invalidReason() != "" {
		return LongCallMetrics{}
	}
	in := c.Inputs

	dte := DaysToExpiration(in.Expiration, c.asOf())
	intrinsic := math.Max(0, in.CurrentPrice-in.Strike)
	shares := float64(c.contracts() * models.SharesPerContract)

	return LongCallMetrics{
		DaysToExpiration: dte,
		Breakeven:        in.Strike + in.PremiumPerShare,
		Intrinsic:        intrinsic,
		TimeValue:        math.Max(0, in.MarkPerShare-intrinsic),
		UnrealizedPnL:    (in.MarkPerShare-in.PremiumPerShare)*shares - in.Fees.Dollars(),
		Moneyness:        Moneyness(in.CurrentPrice, in.Strike),
	}
}

// AnalyzeRisks grades the scenario, most severe first. A long leg past
// expiration is not flagged high; only short legs carry assignment risk.
func (c *LongCall) AnalyzeRisks() []RiskFlag {
	if reason := c.invalidReason(); reason != "" {
		return []RiskFlag{criticalFlag(reason)}
	}

	m := c.Metrics()
	var flags []RiskFlag
	if math.Abs(m.Moneyness) < c.Params.NearMoneyBand {
		flags = append(flags, nearMoneyFlag(m.Moneyness))
	}
	return flags
}

func (c *LongCall) invalidReason() string {
	in := c.Inputs
	switch {
	case !finitePositive(in.Strike):
		return fmt.Sprintf("strike %v must be a positive number", in.Strike)
	case !finitePositive(in.CurrentPrice):
		return fmt.Sprintf("current price %v must be a positive number", in.CurrentPrice)
	case math.IsNaN(in.PremiumPerShare) || math.IsInf(in.PremiumPerShare, 0) || in.PremiumPerShare < 0:
		return fmt.Sprintf("premium %v must not be negative", in.PremiumPerShare)
	case math.IsNaN(in.MarkPerShare) || math.IsInf(in.MarkPerShare, 0) || in.MarkPerShare < 0:
		return fmt.Sprintf("mark %v must not be negative", in.MarkPerShare)
	case in.Contracts < 0:
		return fmt.Sprintf("contracts %d must not be negative", in.Contracts)
	case in.Fees < 0:
		return fmt.Sprintf("fees %s must not be negative", in.Fees)
	case in.Expiration.IsZero():
		return "expiration date is required"
	}
	return ""
}

func (c *LongCall) contracts() int {
	if c.Inputs.Contracts <= 0 {
		return 1
	}
	return c.Inputs.Contracts
}

func (c *LongCall) asOf() time.Time {
	if c.Inputs.AsOf.IsZero() {
		return time.Now()
	}
	return c.Inputs.AsOf
}
