// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"wheel-tracker/internal/errors"
	"wheel-tracker/internal/models"
)

// SQLiteStore implements WheelStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Wheel journal: append-only event log per symbol
	CREATE TABLE IF NOT EXISTS wheel_events (
		id TEXT PRIMARY KEY,
		cycle_id TEXT NOT NULL DEFAULT '',
		symbol TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_date DATETIME NOT NULL,
		amount_cents INTEGER NOT NULL DEFAULT 0,
		strike REAL NOT NULL DEFAULT 0,
		expiry DATETIME,
		contracts INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		superseded_by TEXT NOT NULL DEFAULT '',
		edit_reason TEXT NOT NULL DEFAULT '',
		roll_id TEXT NOT NULL DEFAULT '',
		meta TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Wheel cycles: one open pass through the wheel per symbol
	CREATE TABLE IF NOT EXISTS wheel_cycles (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		opened_at DATETIME NOT NULL,
		closed_at DATETIME
	);

	-- Share lots acquired by assignment or manual buy
	CREATE TABLE IF NOT EXISTS share_lots (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		average_cost REAL NOT NULL,
		acquired_date DATETIME NOT NULL
	);

	-- Daily min-strike floor per symbol
	CREATE TABLE IF NOT EXISTS min_strike_snapshots (
		symbol TEXT NOT NULL,
		snapshot_date TEXT NOT NULL,
		average_cost REAL NOT NULL,
		premium_per_share REAL NOT NULL,
		min_strike REAL NOT NULL,
		shares_owned INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (symbol, snapshot_date)
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_events_symbol ON wheel_events(symbol);
	CREATE INDEX IF NOT EXISTS idx_events_cycle ON wheel_events(cycle_id);
	CREATE INDEX IF NOT EXISTS idx_events_date ON wheel_events(event_date);
	CREATE INDEX IF NOT EXISTS idx_events_roll ON wheel_events(roll_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_cycles_open ON wheel_cycles(symbol) WHERE closed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_lots_symbol ON share_lots(symbol);
	CREATE INDEX IF NOT EXISTS idx_snapshots_symbol ON min_strike_snapshots(symbol);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Event Methods
// ============================================================================

// AppendEvents appends journal events in a single transaction. Callers
// pass the close/open pair of a roll here so either both entries land
// or neither does.
func (s *SQLiteStore) AppendEvents(ctx context.Context, events ...*models.WheelEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		if err := insertEvent(ctx, tx, ev); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, ev *models.WheelEvent) error {
	meta, err := marshalMeta(ev.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode event meta: %w", err)
	}

	status := ev.Status
	if status == "" {
		status = models.EventActive
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wheel_events (id, cycle_id, symbol, event_type, event_date, amount_cents, strike, expiry, contracts, description, status, superseded_by, edit_reason, roll_id, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.CycleID, ev.Symbol, string(ev.Type), ev.Date.UTC(), int64(ev.Amount), ev.Strike,
		nullableTime(ev.Expiry), ev.Contracts, ev.Description, string(status),
		ev.SupersededBy, ev.EditReason, ev.RollID, meta)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// GetEvent retrieves a single event by ID.
func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*models.WheelEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM wheel_events WHERE id = ?
	`, id)

	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

// GetEvents retrieves journal events in replay order. Superseded
// entries are excluded unless the filter asks for them.
func (s *SQLiteStore) GetEvents(ctx context.Context, filter EventFilter) ([]models.WheelEvent, error) {
	query := "SELECT " + eventColumns + " FROM wheel_events WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.CycleID != "" {
		query += " AND cycle_id = ?"
		args = append(args, filter.CycleID)
	}
	if len(filter.Types) > 0 {
		query += " AND event_type IN (?" + repeatPlaceholder(len(filter.Types)-1) + ")"
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	if filter.RollID != "" {
		query += " AND roll_id = ?"
		args = append(args, filter.RollID)
	}
	if !filter.StartDate.IsZero() {
		query += " AND event_date >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND event_date <= ?"
		args = append(args, filter.EndDate.UTC())
	}
	if !filter.IncludeSuperseded {
		query += " AND status = ?"
		args = append(args, string(models.EventActive))
	}

	query += " ORDER BY event_date ASC, created_at ASC, id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.WheelEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// SupersedeEvent marks an event superseded and appends its corrected
// replacement in one transaction. The original row is never deleted.
func (s *SQLiteStore) SupersedeEvent(ctx context.Context, oldID, reason string, replacement *models.WheelEvent) error {
	if reason == "" {
		return errors.ErrEditReasonRequired
	}
	if replacement == nil {
		return errors.NewValidationError("replacement", nil, "a corrected entry is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM wheel_events WHERE id = ?`, oldID).Scan(&status)
	if err == sql.ErrNoRows {
		return errors.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load event: %w", err)
	}
	if models.EventStatus(status) == models.EventSuperseded {
		return errors.ErrEventSuperseded
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wheel_events SET status = ?, superseded_by = ?, edit_reason = ? WHERE id = ?
	`, string(models.EventSuperseded), replacement.ID, reason, oldID)
	if err != nil {
		return fmt.Errorf("failed to supersede event: %w", err)
	}

	if err := insertEvent(ctx, tx, replacement); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ============================================================================
// Cycle Methods
// ============================================================================

// CreateCycle opens a new wheel cycle. The partial unique index on open
// cycles rejects a second open cycle for the same symbol.
func (s *SQLiteStore) CreateCycle(ctx context.Context, cycle *models.WheelCycle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wheel_cycles (id, symbol, opened_at, closed_at)
		VALUES (?, ?, ?, NULL)
	`, cycle.ID, cycle.Symbol, cycle.OpenedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create cycle: %w", err)
	}
	return nil
}

// GetOpenCycle returns the open cycle for a symbol, or nil when the
// symbol has none.
func (s *SQLiteStore) GetOpenCycle(ctx context.Context, symbol string) (*models.WheelCycle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, opened_at, closed_at
		FROM wheel_cycles WHERE symbol = ? AND closed_at IS NULL
	`, symbol)

	cycle, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open cycle: %w", err)
	}
	return cycle, nil
}

// GetCycles retrieves cycles, most recently opened first.
func (s *SQLiteStore) GetCycles(ctx context.Context, filter CycleFilter) ([]models.WheelCycle, error) {
	query := "SELECT id, symbol, opened_at, closed_at FROM wheel_cycles WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.OpenOnly {
		query += " AND closed_at IS NULL"
	}

	query += " ORDER BY opened_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []models.WheelCycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, *cycle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycles: %w", err)
	}

	return cycles, nil
}

// CloseCycle stamps the cycle's closing time.
func (s *SQLiteStore) CloseCycle(ctx context.Context, cycleID string, closedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE wheel_cycles SET closed_at = ? WHERE id = ? AND closed_at IS NULL
	`, closedAt.UTC(), cycleID)
	if err != nil {
		return fmt.Errorf("failed to close cycle: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to close cycle: %w", err)
	}
	if affected == 0 {
		return errors.ErrCycleNotFound
	}
	return nil
}

// ============================================================================
// Share Lot Methods
// ============================================================================

// SaveLot inserts or replaces a share lot.
func (s *SQLiteStore) SaveLot(ctx context.Context, lot *models.ShareLot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO share_lots (id, symbol, quantity, average_cost, acquired_date)
		VALUES (?, ?, ?, ?, ?)
	`, lot.ID, lot.Symbol, lot.Quantity, lot.AverageCost, lot.AcquiredDate.UTC())
	if err != nil {
		return fmt.Errorf("failed to save lot: %w", err)
	}
	return nil
}

// GetLots retrieves a symbol's share lots oldest first, the order call
// assignments consume them in.
func (s *SQLiteStore) GetLots(ctx context.Context, symbol string) ([]models.ShareLot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, quantity, average_cost, acquired_date
		FROM share_lots WHERE symbol = ?
		ORDER BY acquired_date ASC, id ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var lots []models.ShareLot
	for rows.Next() {
		var lot models.ShareLot
		if err := rows.Scan(&lot.ID, &lot.Symbol, &lot.Quantity, &lot.AverageCost, &lot.AcquiredDate); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		lots = append(lots, lot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}

	return lots, nil
}

// ApplyAssignment books an assignment event and its share lot changes
// in one transaction: either the journal entry and the lot updates all
// land, or none do.
func (s *SQLiteStore) ApplyAssignment(ctx context.Context, event *models.WheelEvent, saved []models.ShareLot, deleted []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertEvent(ctx, tx, event); err != nil {
		return err
	}

	for _, lot := range saved {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO share_lots (id, symbol, quantity, average_cost, acquired_date)
			VALUES (?, ?, ?, ?, ?)
		`, lot.ID, lot.Symbol, lot.Quantity, lot.AverageCost, lot.AcquiredDate.UTC())
		if err != nil {
			return fmt.Errorf("failed to save lot: %w", err)
		}
	}

	for _, id := range deleted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM share_lots WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete lot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ============================================================================
// Snapshot Methods
// ============================================================================

// UpsertSnapshot records the day's min-strike floor for a symbol.
// Recording the same (symbol, day) again replaces the earlier row, so
// repeated covered-call sales on one day keep a single snapshot.
func (s *SQLiteStore) UpsertSnapshot(ctx context.Context, snap *models.MinStrikeSnapshot) error {
	day := models.SnapshotDay(snap.Date).Format("2006-01-02")

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO min_strike_snapshots (symbol, snapshot_date, average_cost, premium_per_share, min_strike, shares_owned)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.Symbol, day, snap.AverageCost, snap.PremiumPerShare, snap.MinStrike, snap.SharesOwned)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// GetSnapshots retrieves snapshots, most recent day first.
func (s *SQLiteStore) GetSnapshots(ctx context.Context, filter SnapshotFilter) ([]models.MinStrikeSnapshot, error) {
	query := "SELECT symbol, snapshot_date, average_cost, premium_per_share, min_strike, shares_owned, created_at FROM min_strike_snapshots WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND snapshot_date >= ?"
		args = append(args, models.SnapshotDay(filter.StartDate).Format("2006-01-02"))
	}
	if !filter.EndDate.IsZero() {
		query += " AND snapshot_date <= ?"
		args = append(args, models.SnapshotDay(filter.EndDate).Format("2006-01-02"))
	}

	query += " ORDER BY snapshot_date DESC, symbol ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.MinStrikeSnapshot
	for rows.Next() {
		var snap models.MinStrikeSnapshot
		var day string
		if err := rows.Scan(&snap.Symbol, &day, &snap.AverageCost, &snap.PremiumPerShare, &snap.MinStrike, &snap.SharesOwned, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.Date, err = time.ParseInLocation("2006-01-02", day, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse snapshot date: %w", err)
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snaps, nil
}

// ============================================================================
// Symbol Methods
// ============================================================================

// GetSymbols returns every symbol with journal or lot history.
func (s *SQLiteStore) GetSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol FROM wheel_events
		UNION
		SELECT symbol FROM share_lots
		ORDER BY symbol ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// ============================================================================
// Scan Helpers
// ============================================================================

const eventColumns = "id, cycle_id, symbol, event_type, event_date, amount_cents, strike, expiry, contracts, description, status, superseded_by, edit_reason, roll_id, meta, created_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.WheelEvent, error) {
	var ev models.WheelEvent
	var eventType, status string
	var amount int64
	var expiry sql.NullTime
	var meta sql.NullString

	err := row.Scan(&ev.ID, &ev.CycleID, &ev.Symbol, &eventType, &ev.Date, &amount, &ev.Strike,
		&expiry, &ev.Contracts, &ev.Description, &status, &ev.SupersededBy, &ev.EditReason,
		&ev.RollID, &meta, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}

	ev.Type = models.EventType(eventType)
	ev.Status = models.EventStatus(status)
	ev.Amount = models.Cents(amount)
	if expiry.Valid {
		ev.Expiry = expiry.Time
	}
	if meta.Valid && meta.String != "" {
		var m models.EventMeta
		if err := json.Unmarshal([]byte(meta.String), &m); err != nil {
			return nil, fmt.Errorf("failed to decode event meta: %w", err)
		}
		ev.Meta = &m
	}

	return &ev, nil
}

func scanCycle(row rowScanner) (*models.WheelCycle, error) {
	var cycle models.WheelCycle
	var closedAt sql.NullTime

	if err := row.Scan(&cycle.ID, &cycle.Symbol, &cycle.OpenedAt, &closedAt); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		cycle.ClosedAt = closedAt.Time
	}

	return &cycle, nil
}

func marshalMeta(m *models.EventMeta) (interface{}, error) {
	if m.Empty() {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
