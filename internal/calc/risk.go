package calc

import (
	"fmt"
	"math"

	"wheel-tracker/internal/models"
)

// Risk flag codes.
const (
	RiskInvalidInput   = "INVALID_INPUT"
	RiskExpiredLeg     = "EXPIRED_LEG"
	RiskOutsizedReturn = "OUTSIZED_RETURN"
	RiskNearTheMoney   = "NEAR_THE_MONEY"
)

// RiskFlag is one graded warning attached to a scenario.
type RiskFlag struct {
	Severity models.RiskSeverity
	Code     string
	Message  string
}

func (f RiskFlag) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Code, f.Message)
}

// RiskParams holds the thresholds the risk analysis grades against.
type RiskParams struct {
	// ROOAlertThreshold is the annualized return fraction above which
	// a projection is treated as too good to trust.
	ROOAlertThreshold float64
	// NearMoneyBand is the |moneyness| below which a strike counts
	// as near the money.
	NearMoneyBand float64
}

// DefaultRiskParams returns the standard thresholds.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		ROOAlertThreshold: 1.0,
		NearMoneyBand:     0.02,
	}
}

func criticalFlag(message string) RiskFlag {
	return RiskFlag{Severity: models.RiskCritical, Code: RiskInvalidInput, Message: message}
}

func expiredLegFlag(days int) RiskFlag {
	return RiskFlag{
		Severity: models.RiskHigh,
		Code:     RiskExpiredLeg,
		Message:  fmt.Sprintf("short leg is at or past expiration (%d days)", days),
	}
}

func outsizedReturnFlag(annualized float64) RiskFlag {
	return RiskFlag{
		Severity: models.RiskMedium,
		Code:     RiskOutsizedReturn,
		Message:  fmt.Sprintf("annualized return %.1f%% exceeds the alert threshold", annualized*100),
	}
}

func nearMoneyFlag(moneyness float64) RiskFlag {
	return RiskFlag{
		Severity: models.RiskLow,
		Code:     RiskNearTheMoney,
		Message:  fmt.Sprintf("strike within %.1f%% of the current price", math.Abs(moneyness)*100),
	}
}
