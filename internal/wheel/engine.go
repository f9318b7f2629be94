package wheel

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "wheel-tracker/internal/errors"
	"wheel-tracker/internal/logging"
	"wheel-tracker/internal/models"
	"wheel-tracker/internal/store"
	"wheel-tracker/pkg/id"
)

// Engine books wheel activity into the journal. Every write goes
// through the store in a single transaction per operation; the engine
// derives whatever state it needs by replaying, and never retries a
// failed write on its own.
type Engine struct {
	store  store.WheelStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewEngine creates an engine on top of the given store.
func NewEngine(st store.WheelStore, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  st,
		logger: logger.With().Str("component", "wheel").Logger(),
		now:    time.Now,
	}
}

// Store exposes the underlying store for read-side consumers.
func (e *Engine) Store() store.WheelStore {
	return e.store
}

// ReplaySymbol loads a symbol's active journal and folds it.
func (e *Engine) ReplaySymbol(ctx context.Context, symbol string) (ReplayResult, error) {
	symbol = normalizeSymbol(symbol)
	events, err := e.store.GetEvents(ctx, store.EventFilter{Symbol: symbol})
	if err != nil {
		return ReplayResult{}, apperrors.Wrapf(err, "loading journal for %s", symbol)
	}
	res := Replay(events, e.now())
	if res.Symbol == "" {
		res.Symbol = symbol
	}
	return res, nil
}

// FindOpenLeg locates the open leg an operation targets. Strike and
// expiry narrow the match when more than one leg of the type is open;
// zero values match any.
func (e *Engine) FindOpenLeg(ctx context.Context, symbol string, optType models.OptionType, strike float64, expiry time.Time) (OpenLeg, error) {
	res, err := e.ReplaySymbol(ctx, symbol)
	if err != nil {
		return OpenLeg{}, err
	}
	legs := res.OpenPuts
	if optType == models.OptionCall {
		legs = res.OpenCalls
	}
	for _, l := range legs {
		if strike != 0 && l.Strike != strike {
			continue
		}
		if !expiry.IsZero() && !sameDay(l.Expiry, expiry) {
			continue
		}
		return l, nil
	}
	return OpenLeg{}, apperrors.Wrapf(apperrors.ErrNoOpenLeg, "%s has no open %s matching the request", normalizeSymbol(symbol), optType)
}

// ensureCycle returns the symbol's open cycle, starting one when none
// exists so every journal entry lands inside a cycle.
func (e *Engine) ensureCycle(ctx context.Context, symbol string, date time.Time) (*models.WheelCycle, error) {
	cycle, err := e.store.GetOpenCycle(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if cycle != nil {
		return cycle, nil
	}
	cycle = &models.WheelCycle{
		ID:       id.New(),
		Symbol:   symbol,
		OpenedAt: date,
	}
	if err := e.store.CreateCycle(ctx, cycle); err != nil {
		return nil, apperrors.Wrapf(err, "opening cycle for %s", symbol)
	}
	e.logger.Info().Str("symbol", symbol).Str("cycle_id", cycle.ID).Msg("cycle opened")
	return cycle, nil
}

func (e *Engine) newEvent(cycleID, symbol string, t models.EventType, date time.Time) models.WheelEvent {
	return models.WheelEvent{
		ID:      id.New(),
		CycleID: cycleID,
		Symbol:  symbol,
		Type:    t,
		Date:    date,
		Status:  models.EventActive,
	}
}

func (e *Engine) defaultDate(date time.Time) time.Time {
	if date.IsZero() {
		return e.now()
	}
	return date
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func validSymbol(symbol string) error {
	if symbol == "" {
		return &apperrors.ValidationError{Field: "symbol", Value: symbol, Message: "symbol is required"}
	}
	if len(symbol) > 10 {
		return &apperrors.ValidationError{Field: "symbol", Value: symbol, Message: "symbol too long (max 10 characters)"}
	}
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
		default:
			return &apperrors.ValidationError{Field: "symbol", Value: symbol, Message: "symbol may only contain A-Z, 0-9, '.' and '-'"}
		}
	}
	return nil
}

// mergeCommission folds explicit fees into the event metadata so replay
// can net them out of cash flow.
func mergeCommission(meta *models.EventMeta, fees models.Cents) *models.EventMeta {
	if fees <= 0 {
		return meta
	}
	if meta == nil {
		meta = &models.EventMeta{}
	}
	if meta.Commission != nil {
		fees += *meta.Commission
	}
	meta.Commission = &fees
	return meta
}

func (e *Engine) logEvent(ev models.WheelEvent) {
	logging.LogEvent(e.logger, ev)
}
