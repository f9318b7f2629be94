package calc

import "math"

// GreeksModel estimates option sensitivities from scenario inputs.
// The default implementation is deliberately coarse; a pricing engine
// can be substituted without touching the calculators.
type GreeksModel interface {
	// Delta returns the call delta in [0, 1]. Put callers derive
	// their delta as Delta - 1.
	Delta(moneyness float64, daysToExpiration int) float64
	// Theta returns the estimated daily premium decay per share,
	// negative for a long position.
	Theta(premiumPerShare float64, daysToExpiration int) float64
}

// ApproxGreeks maps moneyness linearly onto delta and scales decay by
// remaining time. Good enough for planning entries; not a pricing model.
type ApproxGreeks struct{}

func (ApproxGreeks) Delta(moneyness float64, daysToExpiration int) float64 {
	d := 0.5 + 2*moneyness
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

func (ApproxGreeks) Theta(premiumPerShare float64, daysToExpiration int) float64 {
	return -premiumPerShare * TimeDecay(daysToExpiration) / 2
}

// TimeDecay returns the decay factor 1/sqrt(days+1). Decay accelerates
// as expiration approaches and stays finite at zero days.
func TimeDecay(daysToExpiration int) float64 {
	if daysToExpiration < 0 {
		daysToExpiration = 0
	}
	return 1 / math.Sqrt(float64(daysToExpiration)+1)
}

// Moneyness returns (price - strike) / price. Positive means the price
// sits above the strike. Zero when price is not positive.
func Moneyness(price, strike float64) float64 {
	if price <= 0 {
		return 0
	}
	return (price - strike) / price
}
