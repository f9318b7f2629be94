package wheel

import (
	"context"
	"math"
	"time"

	apperrors "wheel-tracker/internal/errors"
	"wheel-tracker/internal/logging"
	"wheel-tracker/internal/models"
	"wheel-tracker/internal/store"
)

// RecordMinStrikeSnapshot computes the day's covered-call strike floor
// for a symbol from its lots and the premium per share being collected,
// and upserts it keyed by (symbol, day). Recording the same day twice
// replaces the earlier row, so the operation is safe to re-run.
func (e *Engine) RecordMinStrikeSnapshot(ctx context.Context, symbol string, date time.Time, lots []models.ShareLot, premiumPerShare float64) (models.MinStrikeSnapshot, error) {
	symbol = normalizeSymbol(symbol)
	if err := validSymbol(symbol); err != nil {
		return models.MinStrikeSnapshot{}, err
	}
	if premiumPerShare < 0 || math.IsNaN(premiumPerShare) || math.IsInf(premiumPerShare, 0) {
		return models.MinStrikeSnapshot{}, &apperrors.ValidationError{Field: "premium", Value: premiumPerShare, Message: "premium per share cannot be negative"}
	}
	if len(lots) == 0 {
		return models.MinStrikeSnapshot{}, &apperrors.ValidationError{Field: "lots", Value: 0, Message: "no share lots held; a strike floor needs a cost basis"}
	}

	avg := models.AverageCost(lots)
	snap := models.MinStrikeSnapshot{
		Symbol:          symbol,
		Date:            models.SnapshotDay(e.defaultDate(date)),
		AverageCost:     avg,
		PremiumPerShare: premiumPerShare,
		MinStrike:       avg - premiumPerShare,
		SharesOwned:     models.TotalShares(lots),
	}
	if err := e.store.UpsertSnapshot(ctx, &snap); err != nil {
		return models.MinStrikeSnapshot{}, apperrors.Wrapf(err, "upserting snapshot for %s", symbol)
	}
	logging.LogSnapshot(e.logger, snap)
	return snap, nil
}

// LatestSnapshot returns the most recent min-strike snapshot for a
// symbol, or nil when none has been recorded.
func (e *Engine) LatestSnapshot(ctx context.Context, symbol string) (*models.MinStrikeSnapshot, error) {
	snaps, err := e.store.GetSnapshots(ctx, store.SnapshotFilter{Symbol: normalizeSymbol(symbol), Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[0], nil
}
