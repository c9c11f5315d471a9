package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

// ReportSink receives the report of every finished run. Failures are logged
// by the caller and never change the run outcome.
type ReportSink interface {
	Record(ctx context.Context, report *models.RunReport) error
}

// RunHistory serves recent run reports
type RunHistory interface {
	// RecentRuns returns up to limit reports, newest first
	RecentRuns(ctx context.Context, limit int64) ([]*models.RunReport, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error
}

// RunCache is the Redis-backed run history
type RunCache interface {
	ReportSink
	RunHistory

	// SubscribeRuns streams reports as they are published
	SubscribeRuns(ctx context.Context) (<-chan *models.RunReport, error)

	io.Closer
}

// SettlementStore defines the interface for persistent settlement storage
type SettlementStore interface {
	ReportSink

	// InsertSettlement inserts one confirmed action
	InsertSettlement(ctx context.Context, s *models.Settlement) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	io.Closer
}
