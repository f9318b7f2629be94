// Package cli provides the command-line interface for the wheel tracker.
package cli

import (
	"fmt"
	"strings"
	"time"

	"wheel-tracker/internal/models"
	"wheel-tracker/internal/wheel"
	"wheel-tracker/pkg/utils"
)

// FormatCents renders a minor-unit amount as dollars.
func FormatCents(c models.Cents) string {
	return utils.FormatUSD(c.Dollars())
}

// FormatStrike renders an option strike price.
func FormatStrike(strike float64) string {
	return fmt.Sprintf("%.2f", strike)
}

// FormatLeg renders an open leg the way broker confirmations do:
// "AAPL 95.00P 2025-06-20 x2". The expiry stays in ISO form so it can
// be pasted back into expire, buyback and roll commands.
func FormatLeg(symbol string, leg wheel.OpenLeg) string {
	return fmt.Sprintf("%s %.2f%s %s x%d",
		symbol, leg.Strike, optionRight(leg.Type), utils.FormatDate(leg.Expiry), leg.Contracts)
}

func optionRight(t models.OptionType) string {
	if t == models.OptionPut {
		return "P"
	}
	return "C"
}

// parseOptionType reads a put/call flag value. Single letters work.
func parseOptionType(s string) (models.OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PUT", "P":
		return models.OptionPut, nil
	case "CALL", "C":
		return models.OptionCall, nil
	default:
		return "", fmt.Errorf("invalid option type %q (must be put or call)", s)
	}
}

// parseDate reads a --date flag value. Empty means today; the engine
// fills it in.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return t, nil
}

// parseExpiry reads an --expiry flag value. Besides a plain date it
// accepts "friday" for the next weekly expiration and "monthly" for
// the next third-Friday expiration.
func parseExpiry(s string) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return time.Time{}, fmt.Errorf("expiry is required (YYYY-MM-DD, friday or monthly)")
	case "friday":
		return utils.NextFriday(time.Now()), nil
	case "monthly":
		return utils.NextMonthlyExpiration(time.Now()), nil
	default:
		return parseDate(s)
	}
}
