package wheel

import (
	"context"
	"sort"
	"sync"
	"time"

	"wheel-tracker/internal/calc"
	apperrors "wheel-tracker/internal/errors"
	"wheel-tracker/internal/models"
	"wheel-tracker/internal/performance"
)

// CycleMetrics summarizes a replayed journal for reporting. The return
// is annualized against the most capital the pass ever tied up.
type CycleMetrics struct {
	PremiumCollected models.Cents
	NetCashFlow      models.Cents
	RealizedPnL      models.Cents
	CapitalPeak      models.Cents
	Days             int
	AnnualizedReturn float64 // fraction, e.g. 0.18 for 18% p.a.
}

// SummarizeCycle derives the metrics of a replayed pass. Open passes
// are measured through asOf; closed ones through their last entry.
func SummarizeCycle(res ReplayResult, asOf time.Time) CycleMetrics {
	m := CycleMetrics{
		PremiumCollected: res.PremiumCollected,
		NetCashFlow:      res.NetCashFlow,
		RealizedPnL:      res.RealizedPnL,
		CapitalPeak:      res.CapitalPeak,
	}
	if res.EventCount == 0 {
		return m
	}
	end := res.LastEventDate
	if res.State != models.StateClosed && asOf.After(end) {
		end = asOf
	}
	m.Days = calc.DaysBetween(res.FirstEventDate, end)
	if m.Days < 1 {
		m.Days = 1
	}
	if res.CapitalPeak > 0 {
		m.AnnualizedReturn = float64(res.RealizedPnL) / float64(res.CapitalPeak) * 365 / float64(m.Days)
	}
	return m
}

// SymbolStatus is one ticker's derived wheel state plus the stored
// context a status view shows next to it.
type SymbolStatus struct {
	Symbol    string
	Result    ReplayResult
	Metrics   CycleMetrics
	Cycle     *models.WheelCycle
	MinStrike *models.MinStrikeSnapshot
}

// PortfolioView aggregates every tracked ticker.
type PortfolioView struct {
	Symbols          []SymbolStatus
	PremiumCollected models.Cents
	NetCashFlow      models.Cents
	OpenLegs         int
	SharesNeeded     int // across all uncovered short calls
	Anomalies        int
}

// SymbolStatusView replays one symbol and decorates it with its open
// cycle and latest min-strike snapshot.
func (e *Engine) SymbolStatusView(ctx context.Context, symbol string) (SymbolStatus, error) {
	symbol = normalizeSymbol(symbol)
	res, err := e.ReplaySymbol(ctx, symbol)
	if err != nil {
		return SymbolStatus{}, err
	}
	if res.EventCount == 0 {
		lots, err := e.store.GetLots(ctx, symbol)
		if err != nil {
			return SymbolStatus{}, err
		}
		if len(lots) == 0 {
			return SymbolStatus{}, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "no history for %s", symbol)
		}
	}

	cycle, err := e.store.GetOpenCycle(ctx, symbol)
	if err != nil {
		return SymbolStatus{}, err
	}
	snap, err := e.LatestSnapshot(ctx, symbol)
	if err != nil {
		return SymbolStatus{}, err
	}
	return SymbolStatus{
		Symbol:    symbol,
		Result:    res,
		Metrics:   SummarizeCycle(res, e.now()),
		Cycle:     cycle,
		MinStrike: snap,
	}, nil
}

// PortfolioStatus replays every tracked symbol concurrently and folds
// the results into one view. Symbol order is stable.
func (e *Engine) PortfolioStatus(ctx context.Context) (PortfolioView, error) {
	symbols, err := e.store.GetSymbols(ctx)
	if err != nil {
		return PortfolioView{}, apperrors.Wrap(err, "listing symbols")
	}

	pool := performance.NewWorkerPool(0)
	pool.Start()
	defer pool.Stop()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		statuses = make([]SymbolStatus, 0, len(symbols))
		firstErr error
	)
	for _, symbol := range symbols {
		symbol := symbol
		run := func() {
			defer wg.Done()
			st, err := e.SymbolStatusView(ctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			statuses = append(statuses, st)
		}
		wg.Add(1)
		if !pool.Submit(run) {
			run()
		}
	}
	wg.Wait()
	if firstErr != nil {
		return PortfolioView{}, firstErr
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Symbol < statuses[j].Symbol })

	view := PortfolioView{Symbols: statuses}
	for _, st := range statuses {
		view.PremiumCollected += st.Result.PremiumCollected
		view.NetCashFlow += st.Result.NetCashFlow
		view.OpenLegs += len(st.Result.OpenPuts) + len(st.Result.OpenCalls)
		view.SharesNeeded += st.Result.SharesNeeded
		view.Anomalies += len(st.Result.Anomalies)
	}
	return view, nil
}

// ExpiringLeg is one open leg annotated for the expirations view.
type ExpiringLeg struct {
	Symbol string
	Leg    OpenLeg
	DTE    int // signed; stale legs are negative
}

// ExpirationBoard separates what is coming due from what already
// lapsed without a closing entry.
type ExpirationBoard struct {
	Upcoming []ExpiringLeg // 0 <= DTE <= window, soonest first
	Stale    []ExpiringLeg // expired with no settlement entry
}

// UpcomingExpirations lists open legs expiring within window days.
// Already-expired legs never count as upcoming; they surface on the
// stale list for reconciliation.
func (e *Engine) UpcomingExpirations(ctx context.Context, window int) (ExpirationBoard, error) {
	view, err := e.PortfolioStatus(ctx)
	if err != nil {
		return ExpirationBoard{}, err
	}
	asOf := e.now()

	var board ExpirationBoard
	for _, st := range view.Symbols {
		for _, leg := range st.Result.OpenLegs() {
			el := ExpiringLeg{Symbol: st.Symbol, Leg: leg, DTE: leg.DTE(asOf)}
			switch {
			case el.DTE < 0:
				board.Stale = append(board.Stale, el)
			case el.DTE <= window:
				board.Upcoming = append(board.Upcoming, el)
			}
		}
	}
	byDue := func(legs []ExpiringLeg) func(i, j int) bool {
		return func(i, j int) bool {
			if legs[i].DTE != legs[j].DTE {
				return legs[i].DTE < legs[j].DTE
			}
			return legs[i].Symbol < legs[j].Symbol
		}
	}
	sort.Slice(board.Upcoming, byDue(board.Upcoming))
	sort.Slice(board.Stale, byDue(board.Stale))
	return board, nil
}

// Doctor sweeps every symbol's journal for inconsistencies: orphaned
// closes, uncovered calls, torn roll pairs, lapsed legs and cycle rows
// out of step with the journal. Findings are reported, never repaired.
func (e *Engine) Doctor(ctx context.Context) ([]Anomaly, error) {
	view, err := e.PortfolioStatus(ctx)
	if err != nil {
		return nil, err
	}

	var found []Anomaly
	for _, st := range view.Symbols {
		found = append(found, st.Result.Anomalies...)

		switch {
		case st.Cycle != nil && st.Result.State == models.StateClosed:
			found = append(found, Anomaly{
				Kind:    AnomalyStaleCycle,
				Symbol:  st.Symbol,
				Message: "journal replays CLOSED but a cycle row is still open",
			})
		case st.Cycle == nil && st.Result.EventCount > 0 &&
			st.Result.State != models.StateClosed && st.Result.State != models.StateNone:
			found = append(found, Anomaly{
				Kind:    AnomalyStaleCycle,
				Symbol:  st.Symbol,
				Message: "journal replays an open pass but no cycle row is open",
			})
		}
	}
	return found, nil
}
