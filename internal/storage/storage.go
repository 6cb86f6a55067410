package storage

import (
	"context"
	"errors"
)

// ErrUnsupportedDriver is returned by Open for an unknown driver name.
var ErrUnsupportedDriver = errors.New("unsupported storage driver")

// Storage abstracts persistence for rate snapshots, the checklist audit log,
// runtime settings and scheduled job bookkeeping.
type Storage interface {
	// Rates snapshots
	GetRatesSnapshot(ctx context.Context, retailer string) (*RatesSnapshot, error)
	SaveRatesSnapshot(ctx context.Context, snap RatesSnapshot) error

	// Audit log
	AppendAuditEvent(ctx context.Context, ev AuditEvent) error
	ListAuditEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Scheduled jobs
	RecordJobRun(ctx context.Context, run ScheduledJob) error

	Ping(ctx context.Context) error

	// Close releases any resources (no-op for in-memory).
	Close() error
}
