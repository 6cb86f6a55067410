package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/bher20/tariffcompare/internal/metrics"
)

// snapshotHistory is how many snapshots per retailer the SQL backends keep.
const snapshotHistory = 5

// GormStorage is the SQL backend for sqlite and postgres.
type GormStorage struct {
	db     *gorm.DB
	driver string
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var gormDialector gorm.Dialector
	switch driver {
	case "postgres", "postgrespool":
		gormDialector = postgres.Open(dsn)
	case "sqlite":
		gormDialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// sqlite allows one writer; concurrent refreshes would see SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &GormStorage{db: db, driver: driver}, nil
}

// Migrate creates or updates the tables for every model. The goose
// migrations in internal/migrate describe the same schema for deployments
// that manage it out of band.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&RatesSnapshot{},
		&AuditEvent{},
		&Setting{},
		&ScheduledJob{},
	)
}

// SQLDB returns the underlying database handle.
func (s *GormStorage) SQLDB() (*sql.DB, error) {
	return s.db.DB()
}

// RatesSnapshot

func (s *GormStorage) GetRatesSnapshot(ctx context.Context, retailer string) (*RatesSnapshot, error) {
	var snap RatesSnapshot
	result := s.db.WithContext(ctx).Order("fetched_at desc, id desc").First(&snap, "retailer = ?", retailer)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &snap, nil
}

// SaveRatesSnapshot appends snap and prunes the retailer's history down to
// the newest snapshotHistory rows.
func (s *GormStorage) SaveRatesSnapshot(ctx context.Context, snap RatesSnapshot) error {
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&snap).Error; err != nil {
			return err
		}
		keep := tx.Model(&RatesSnapshot{}).
			Select("id").
			Where("retailer = ?", snap.Retailer).
			Order("fetched_at desc, id desc").
			Limit(snapshotHistory)
		return tx.Where("retailer = ? AND id NOT IN (?)", snap.Retailer, keep).
			Delete(&RatesSnapshot{}).Error
	})
}

func (s *GormStorage) countSnapshots(ctx context.Context, retailer string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&RatesSnapshot{}).Where("retailer = ?", retailer).Count(&n).Error
	return n, err
}

// Audit log

func (s *GormStorage) AppendAuditEvent(ctx context.Context, ev AuditEvent) error {
	return s.db.WithContext(ctx).Create(&ev).Error
}

func (s *GormStorage) ListAuditEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	q := s.db.WithContext(ctx).Order("timestamp desc")
	if name := strings.TrimSpace(filter.Name); name != "" {
		q = q.Where("LOWER(TRIM(name)) = LOWER(?)", name)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var events []AuditEvent
	result := q.Find(&events)
	return events, result.Error
}

// Settings

func (s *GormStorage) GetSetting(ctx context.Context, key string) (string, error) {
	var setting Setting
	result := s.db.WithContext(ctx).First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return setting.Value, nil
}

func (s *GormStorage) SetSetting(ctx context.Context, key, value string) error {
	setting := Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&setting).Error
}

// Scheduled jobs

func (s *GormStorage) RecordJobRun(ctx context.Context, run ScheduledJob) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&run).Error
}

// Close & Ping

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection and publishes the pool stats.
func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	st := sqlDB.Stats()
	metrics.UpdateDBPoolMetrics("gorm_"+s.driver,
		float64(st.OpenConnections), float64(st.Idle), float64(st.InUse), uint64(st.WaitCount))
	return nil
}
