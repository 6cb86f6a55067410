package cron

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/tariffcompare/internal/alerting"
	"github.com/bher20/tariffcompare/internal/config"
	"github.com/bher20/tariffcompare/internal/rates"
	"github.com/bher20/tariffcompare/internal/storage"
)

type fakeRefresher struct {
	calls  atomic.Int32
	report rates.RefreshReport
	err    error
}

func (f *fakeRefresher) Refresh(ctx context.Context) (rates.RefreshReport, error) {
	f.calls.Add(1)
	return f.report, f.err
}

func TestNextRun(t *testing.T) {
	last := time.Date(2025, 1, 1, 10, 7, 0, 0, time.UTC)

	assert.Equal(t, last.Add(90*time.Second), NextRun("90", last))
	assert.Equal(t, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), NextRun("0 */6 * * *", last))
	assert.Equal(t, last.Add(5*time.Minute), NextRun("whenever", last))
	assert.Equal(t, last.Add(5*time.Minute), NextRun("-3", last))
}

func TestValidSchedule(t *testing.T) {
	assert.True(t, ValidSchedule("300"))
	assert.True(t, ValidSchedule("@hourly"))
	assert.True(t, ValidSchedule("*/15 * * * *"))
	assert.False(t, ValidSchedule("0"))
	assert.False(t, ValidSchedule(""))
	assert.False(t, ValidSchedule("every day"))
}

func TestRunOnce_RecordsJob(t *testing.T) {
	st := storage.NewMemory()
	r := &fakeRefresher{report: rates.RefreshReport{Results: []rates.RefreshResult{{Retailer: "origin", Tariffs: 3}}}}
	w := NewWorker(st, storage.NewLocalLocker(), r, nil, "300")

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	run, ok := st.JobRun(JobName)
	require.True(t, ok)
	assert.True(t, run.LastSuccess)
	assert.Empty(t, run.LastError)
}

func TestRunOnce_FailureAlerts(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	st := storage.NewMemory()
	r := &fakeRefresher{
		report: rates.RefreshReport{Results: []rates.RefreshResult{
			{Retailer: "origin", Tariffs: 3},
			{Retailer: "nbe", Error: "status 502"},
		}},
		err: errors.New("status 502"),
	}
	alerter := alerting.NewAlerter(alerting.FromConfig(config.AlertConfig{WebhookURL: srv.URL}))
	w := NewWorker(st, storage.NewLocalLocker(), r, alerter, "300")

	_, err := w.RunOnce(context.Background())
	require.Error(t, err)

	run, ok := st.JobRun(JobName)
	require.True(t, ok)
	assert.False(t, run.LastSuccess)
	assert.Equal(t, "status 502", run.LastError)

	assert.Equal(t, float64(2), got["total_count"])
	assert.Equal(t, float64(1), got["failed_count"])
}

func TestRunOnce_SkipsWhenLocked(t *testing.T) {
	locker := storage.NewLocalLocker()
	ok, err := locker.TryLock(context.Background(), lockKey)
	require.NoError(t, err)
	require.True(t, ok)

	r := &fakeRefresher{}
	w := NewWorker(storage.NewMemory(), locker, r, nil, "300")
	_, err = w.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrLocked)
	assert.Zero(t, r.calls.Load())
}

func TestRun_RefreshesImmediatelyAndStops(t *testing.T) {
	r := &fakeRefresher{}
	w := NewWorker(storage.NewMemory(), storage.NewLocalLocker(), r, nil, "3600")
	w.tick = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestRun_PicksUpStoredSchedule(t *testing.T) {
	st := storage.NewMemory()
	require.NoError(t, st.SetSetting(context.Background(), ScheduleSetting, "1"))
	w := NewWorker(st, nil, &fakeRefresher{}, nil, "3600")
	assert.Equal(t, "1", w.currentSchedule(context.Background(), w.schedule))

	require.NoError(t, st.SetSetting(context.Background(), ScheduleSetting, "nonsense"))
	assert.Equal(t, "3600", w.currentSchedule(context.Background(), w.schedule))
}
