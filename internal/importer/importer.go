// Package importer reads normalized trade history CSVs and applies them
// to the journal. Broker exports are expected to be normalized to this
// layout upstream; the importer validates shape and domain values, then
// routes each row through the same engine operations interactive entry
// uses, so cycles, lots and snapshots stay consistent.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "wheel-tracker/internal/errors"
	"wheel-tracker/internal/models"
	"wheel-tracker/internal/wheel"
)

// Date is a calendar day in a CSV cell, formatted 2006-01-02. An empty
// cell stays the zero time.
type Date struct {
	time.Time
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (d *Date) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return fmt.Errorf("bad date %q (want YYYY-MM-DD)", s)
	}
	d.Time = t
	return nil
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (d Date) MarshalCSV() (string, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.Format("2006-01-02"), nil
}

// TradeRecord is one normalized journal row. Premium, amount and fees
// are dollars; premium is per share.
type TradeRecord struct {
	Symbol          string  `csv:"symbol"`
	Event           string  `csv:"event"`
	Date            Date    `csv:"date"`
	Strike          float64 `csv:"strike"`
	Expiry          Date    `csv:"expiry"`
	Contracts       int     `csv:"contracts"`
	PremiumPerShare float64 `csv:"premium_per_share"`
	Amount          float64 `csv:"amount"`
	Fees            float64 `csv:"fees"`
	Delta           string  `csv:"delta"`
	IVRank          string  `csv:"iv_rank"`
	Description     string  `csv:"description"`
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.-]{1,10}$`)

// ReadFile loads and parses a CSV file of trade records.
func ReadFile(path string) ([]TradeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return ReadRecords(f)
}

// ReadRecords parses trade records from r. Rows keep file order.
func ReadRecords(r io.Reader) ([]TradeRecord, error) {
	var records []TradeRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, apperrors.Wrap(err, "parsing CSV")
	}
	return records, nil
}

// ValidateRecords checks every row and returns one error per bad row.
// Row numbers count from 1 and exclude the header line.
func ValidateRecords(records []TradeRecord) []error {
	var errs []error
	for i, rec := range records {
		if err := validateRecord(rec); err != nil {
			row := i + 1
			if ierr, ok := err.(*apperrors.ImportError); ok {
				ierr.Row = row
				errs = append(errs, ierr)
				continue
			}
			errs = append(errs, apperrors.NewImportError(row, "", "invalid record", err))
		}
	}
	return errs
}

func validateRecord(rec TradeRecord) error {
	symbol := strings.ToUpper(strings.TrimSpace(rec.Symbol))
	if !symbolPattern.MatchString(symbol) {
		return apperrors.NewImportError(0, "symbol", fmt.Sprintf("bad symbol %q", rec.Symbol), apperrors.ErrImportInvalid)
	}

	eventType := models.EventType(strings.ToUpper(strings.TrimSpace(rec.Event)))
	if !models.ValidEventType(eventType) {
		return apperrors.NewImportError(0, "event", fmt.Sprintf("unknown event type %q", rec.Event), apperrors.ErrImportInvalid)
	}
	if rec.Date.IsZero() {
		return apperrors.NewImportError(0, "date", "date is required", apperrors.ErrImportInvalid)
	}
	if rec.Fees < 0 {
		return apperrors.NewImportError(0, "fees", "fees cannot be negative", apperrors.ErrImportInvalid)
	}

	switch eventType {
	case models.EventPositionClosed:
		// Settlement rows carry only a signed amount.
	default:
		if rec.Strike <= 0 {
			return apperrors.NewImportError(0, "strike", "strike must be a positive price", apperrors.ErrImportInvalid)
		}
		if rec.Contracts <= 0 {
			return apperrors.NewImportError(0, "contracts", "contracts must be at least 1", apperrors.ErrImportInvalid)
		}
		if rec.Expiry.IsZero() {
			return apperrors.NewImportError(0, "expiry", "expiry is required", apperrors.ErrImportInvalid)
		}
		if rec.PremiumPerShare < 0 {
			return apperrors.NewImportError(0, "premium_per_share", "premium cannot be negative", apperrors.ErrImportInvalid)
		}
	}

	if _, err := parseOptionalFloat(rec.Delta); err != nil {
		return apperrors.NewImportError(0, "delta", fmt.Sprintf("bad delta %q", rec.Delta), err)
	}
	if _, err := parseOptionalFloat(rec.IVRank); err != nil {
		return apperrors.NewImportError(0, "iv_rank", fmt.Sprintf("bad iv_rank %q", rec.IVRank), err)
	}
	return nil
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Summary reports what an import applied.
type Summary struct {
	Rows    int
	Applied int
	ByType  map[models.EventType]int
	Symbols []string
}

// Apply books every record through the engine in date order. Records
// must validate first; Apply stops at the first row the engine rejects
// and reports how far it got, so a fixed file can be re-run from the
// failed row onward.
func Apply(ctx context.Context, eng *wheel.Engine, records []TradeRecord) (Summary, error) {
	if errs := ValidateRecords(records); len(errs) > 0 {
		return Summary{Rows: len(records)}, errs[0]
	}

	ordered := make([]TradeRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Time.Before(ordered[j].Date.Time)
	})

	summary := Summary{
		Rows:   len(records),
		ByType: make(map[models.EventType]int),
	}
	seen := map[string]bool{}

	for i, rec := range ordered {
		if err := applyRecord(ctx, eng, rec); err != nil {
			return summary, apperrors.NewImportError(i+1, "", fmt.Sprintf("applying %s %s", rec.Event, rec.Symbol), err)
		}
		eventType := models.EventType(strings.ToUpper(strings.TrimSpace(rec.Event)))
		summary.Applied++
		summary.ByType[eventType]++
		symbol := strings.ToUpper(strings.TrimSpace(rec.Symbol))
		if !seen[symbol] {
			seen[symbol] = true
			summary.Symbols = append(summary.Symbols, symbol)
		}
	}
	sort.Strings(summary.Symbols)
	return summary, nil
}

func applyRecord(ctx context.Context, eng *wheel.Engine, rec TradeRecord) error {
	symbol := strings.ToUpper(strings.TrimSpace(rec.Symbol))
	eventType := models.EventType(strings.ToUpper(strings.TrimSpace(rec.Event)))
	fees := models.CentsFromDollars(rec.Fees)
	meta := buildMeta(rec)

	switch eventType {
	case models.EventCSPSold, models.EventCCSold:
		_, err := eng.RecordSale(ctx, wheel.SaleInputs{
			Symbol:          symbol,
			Type:            optionTypeOf(eventType),
			Strike:          rec.Strike,
			PremiumPerShare: rec.PremiumPerShare,
			Contracts:       rec.Contracts,
			Expiration:      rec.Expiry.Time,
			Date:            rec.Date.Time,
			Fees:            fees,
			Description:     rec.Description,
			Meta:            meta,
		})
		return err

	case models.EventCSPExpired, models.EventCCExpired:
		_, err := eng.RecordExpiration(ctx, wheel.ExpirationInputs{
			Symbol:      symbol,
			Type:        optionTypeOf(eventType),
			Strike:      rec.Strike,
			Expiry:      rec.Expiry.Time,
			Contracts:   rec.Contracts,
			Date:        rec.Date.Time,
			Description: rec.Description,
		})
		return err

	case models.EventCSPClosed, models.EventCCClosed:
		_, err := eng.RecordBuyback(ctx, wheel.BuybackInputs{
			Symbol:          symbol,
			Type:            optionTypeOf(eventType),
			Strike:          rec.Strike,
			Expiry:          rec.Expiry.Time,
			PremiumPerShare: rec.PremiumPerShare,
			Contracts:       rec.Contracts,
			Date:            rec.Date.Time,
			Fees:            fees,
			Description:     rec.Description,
		})
		return err

	case models.EventCSPAssigned, models.EventCCAssigned:
		_, err := eng.RecordAssignment(ctx, wheel.AssignmentInputs{
			Symbol:      symbol,
			Type:        optionTypeOf(eventType),
			Strike:      rec.Strike,
			Expiry:      rec.Expiry.Time,
			Contracts:   rec.Contracts,
			Date:        rec.Date.Time,
			Description: rec.Description,
		})
		return err

	case models.EventPositionClosed:
		_, err := eng.RecordPositionClosed(ctx, wheel.CloseInputs{
			Symbol:      symbol,
			Amount:      models.CentsFromDollars(rec.Amount),
			Date:        rec.Date.Time,
			Description: rec.Description,
		})
		return err
	}
	return apperrors.ErrImportInvalid
}

func optionTypeOf(t models.EventType) models.OptionType {
	if strings.HasPrefix(string(t), "CC_") {
		return models.OptionCall
	}
	return models.OptionPut
}

func buildMeta(rec TradeRecord) *models.EventMeta {
	delta, _ := parseOptionalFloat(rec.Delta)
	ivRank, _ := parseOptionalFloat(rec.IVRank)
	if delta == nil && ivRank == nil {
		return nil
	}
	return &models.EventMeta{Delta: delta, IVRank: ivRank}
}
