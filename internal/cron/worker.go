package cron

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/alerting"
	"github.com/bher20/tariffcompare/internal/logging"
	"github.com/bher20/tariffcompare/internal/metrics"
	"github.com/bher20/tariffcompare/internal/rates"
	"github.com/bher20/tariffcompare/internal/storage"
)

const (
	// JobName is the scheduled_jobs row and metrics label of the refresh.
	JobName = "rates_refresh"
	// ScheduleSetting is the settings key that overrides the schedule at runtime.
	ScheduleSetting = "refresh_schedule"

	lockKey int64 = 42
)

// ErrLocked is returned by RunOnce when another replica holds the job lock.
var ErrLocked = errors.New("cron: refresh already running elsewhere")

// Refresher re-reads every retailer's rates.
type Refresher interface {
	Refresh(ctx context.Context) (rates.RefreshReport, error)
}

// Worker runs the rate refresh on a schedule, serialized across replicas by
// the storage locker.
type Worker struct {
	store     storage.Storage
	locker    storage.Locker
	refresher Refresher
	alerter   *alerting.Alerter

	schedule string
	tick     time.Duration
}

// NewWorker returns a worker. schedule is integer seconds or a standard
// five-field cron expression; alerter may be nil.
func NewWorker(st storage.Storage, locker storage.Locker, r Refresher, alerter *alerting.Alerter, schedule string) *Worker {
	return &Worker{
		store:     st,
		locker:    locker,
		refresher: r,
		alerter:   alerter,
		schedule:  schedule,
		tick:      10 * time.Second,
	}
}

// NextRun returns the next run after last for setting. Unparsable settings
// fall back to five minutes.
func NextRun(setting string, last time.Time) time.Time {
	setting = strings.TrimSpace(setting)
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return last.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(last)
	}
	return last.Add(5 * time.Minute)
}

// ValidSchedule reports whether setting is usable by NextRun without the
// fallback.
func ValidSchedule(setting string) bool {
	setting = strings.TrimSpace(setting)
	if v, err := strconv.Atoi(setting); err == nil {
		return v > 0
	}
	_, err := cron.ParseStandard(setting)
	return err == nil
}

// Run refreshes immediately and then on schedule until ctx is done. A
// schedule stored under ScheduleSetting wins over the configured one and is
// re-read every tick.
func (w *Worker) Run(ctx context.Context) error {
	schedule := w.currentSchedule(ctx, w.schedule)
	nextRun := time.Now()

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	logging.Info("refresh worker starting", zap.String("schedule", schedule))

	for {
		if !time.Now().Before(nextRun) {
			if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, ErrLocked) {
				logging.Warn("refresh run failed", zap.Error(err))
			}
			nextRun = NextRun(schedule, time.Now())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s := w.currentSchedule(ctx, schedule); s != schedule {
				logging.Info("refresh schedule updated", zap.String("from", schedule), zap.String("to", s))
				schedule = s
				nextRun = NextRun(schedule, time.Now())
			}
		}
	}
}

func (w *Worker) currentSchedule(ctx context.Context, fallback string) string {
	if w.store == nil {
		return fallback
	}
	if val, err := w.store.GetSetting(ctx, ScheduleSetting); err == nil && ValidSchedule(val) {
		return strings.TrimSpace(val)
	}
	return fallback
}

// RunOnce takes the job lock, refreshes every retailer, records the run and
// alerts on failures. It returns ErrLocked when the lock is held elsewhere.
func (w *Worker) RunOnce(ctx context.Context) (rates.RefreshReport, error) {
	started := time.Now()

	if w.locker != nil {
		ok, err := w.locker.TryLock(ctx, lockKey)
		if err != nil {
			metrics.UpdateJobMetrics(JobName, started, err)
			return rates.RefreshReport{}, err
		}
		if !ok {
			logging.Info("refresh lock held by another worker, skipping run")
			return rates.RefreshReport{}, ErrLocked
		}
		defer func() {
			if err := w.locker.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
				logging.Warn("refresh lock release failed", zap.Error(err))
			}
		}()
	}

	report, runErr := w.refresher.Refresh(ctx)
	dur := time.Since(started)
	metrics.UpdateJobMetrics(JobName, started, runErr)

	if w.store != nil {
		run := storage.ScheduledJob{
			Name:           JobName,
			LastRunAt:      started.UTC(),
			LastDurationMs: dur.Milliseconds(),
			LastSuccess:    runErr == nil,
		}
		if runErr != nil {
			run.LastError = runErr.Error()
		}
		if err := w.store.RecordJobRun(ctx, run); err != nil {
			logging.Warn("record job run failed", zap.Error(err))
		}
	}

	if runErr != nil {
		logging.Warn("refresh completed with errors",
			zap.Int("failed", report.Failed()),
			zap.Duration("duration", dur),
			zap.Error(runErr),
		)
		if err := w.alerter.SendRefreshAlert(ctx, alertFor(report)); err != nil {
			logging.Warn("refresh alert failed", zap.Error(err))
		}
	} else {
		logging.Info("refresh completed", zap.Int("retailers", len(report.Results)), zap.Duration("duration", dur))
	}
	return report, runErr
}

func alertFor(report rates.RefreshReport) alerting.RefreshAlert {
	alert := alerting.RefreshAlert{
		JobName:    JobName,
		TotalCount: len(report.Results),
		Duration:   report.Duration,
		Timestamp:  report.StartedAt,
	}
	for _, r := range report.Results {
		if r.Error != "" {
			alert.FailedCount++
			alert.Failures = append(alert.Failures, alerting.RetailerFailure{Retailer: r.Retailer, Error: r.Error})
		}
	}
	alert.SuccessCount = alert.TotalCount - alert.FailedCount
	return alert
}
