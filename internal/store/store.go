// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"wheel-tracker/internal/models"
)

// WheelStore defines the interface for data persistence. The journal is
// append-only: events are never updated or deleted, corrections go
// through SupersedeEvent.
type WheelStore interface {
	// Events
	AppendEvents(ctx context.Context, events ...*models.WheelEvent) error
	GetEvent(ctx context.Context, id string) (*models.WheelEvent, error)
	GetEvents(ctx context.Context, filter EventFilter) ([]models.WheelEvent, error)
	SupersedeEvent(ctx context.Context, oldID, reason string, replacement *models.WheelEvent) error

	// Cycles
	CreateCycle(ctx context.Context, cycle *models.WheelCycle) error
	GetOpenCycle(ctx context.Context, symbol string) (*models.WheelCycle, error)
	GetCycles(ctx context.Context, filter CycleFilter) ([]models.WheelCycle, error)
	CloseCycle(ctx context.Context, cycleID string, closedAt time.Time) error

	// Share lots
	SaveLot(ctx context.Context, lot *models.ShareLot) error
	GetLots(ctx context.Context, symbol string) ([]models.ShareLot, error)
	ApplyAssignment(ctx context.Context, event *models.WheelEvent, saved []models.ShareLot, deleted []string) error

	// Min-strike snapshots
	UpsertSnapshot(ctx context.Context, snap *models.MinStrikeSnapshot) error
	GetSnapshots(ctx context.Context, filter SnapshotFilter) ([]models.MinStrikeSnapshot, error)

	// Symbols
	GetSymbols(ctx context.Context) ([]string, error)

	// Lifecycle
	Close() error
}

// EventFilter represents filters for querying journal events. Results
// come back in replay order: event date, then insertion order.
type EventFilter struct {
	Symbol            string
	CycleID           string
	Types             []models.EventType
	RollID            string
	StartDate         time.Time
	EndDate           time.Time
	IncludeSuperseded bool
	Limit             int
}

// CycleFilter represents filters for querying wheel cycles.
type CycleFilter struct {
	Symbol   string
	OpenOnly bool
	Limit    int
}

// SnapshotFilter represents filters for querying min-strike snapshots.
type SnapshotFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
