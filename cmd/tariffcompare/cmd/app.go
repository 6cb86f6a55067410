package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/alerting"
	"github.com/bher20/tariffcompare/internal/api"
	"github.com/bher20/tariffcompare/internal/checklist"
	"github.com/bher20/tariffcompare/internal/config"
	"github.com/bher20/tariffcompare/internal/cron"
	"github.com/bher20/tariffcompare/internal/logging"
	"github.com/bher20/tariffcompare/internal/notification"
	"github.com/bher20/tariffcompare/internal/rates"
	"github.com/bher20/tariffcompare/internal/storage"
)

// app is every long-lived service a command may need, wired from cfg.
type app struct {
	cfg       config.Config
	store     storage.Storage
	locker    storage.Locker
	registry  *rates.Registry
	rates     *rates.Service
	email     *notification.Service
	checklist *checklist.Service
	worker    *cron.Worker
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	stCfg := storage.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN, AutoMigrate: cfg.AutoMigrate}
	st, err := storage.Open(ctx, stCfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	locker, err := storage.NewLocker(ctx, stCfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open locker: %w", err)
	}

	reg := rates.NewRegistry(rates.RetailersFromEnv(cfg.DataDir))
	rs := rates.NewServiceWithStorage(rates.Config{CacheTTL: cfg.RatesCacheTTL}, reg, st)

	email := notification.NewService(cfg.Email)
	var notifier checklist.Notifier
	if email.Enabled() {
		notifier = email
	}

	alerter := alerting.NewAlerter(alerting.FromConfig(cfg.Alert))

	logging.Info("services ready",
		zap.String("db_driver", cfg.DBDriver),
		zap.Int("retailers", len(reg.List())),
		zap.Bool("email", email.Enabled()),
	)

	return &app{
		cfg:       cfg,
		store:     st,
		locker:    locker,
		registry:  reg,
		rates:     rs,
		email:     email,
		checklist: checklist.NewService(st, notifier),
		worker:    cron.NewWorker(st, locker, rs, alerter, cfg.RefreshSchedule),
	}, nil
}

func (a *app) deps() api.Deps {
	return api.Deps{
		Store:     a.store,
		Rates:     a.rates,
		Checklist: a.checklist,
		Refresher: a.worker,
		Email:     a.email,
	}
}

func (a *app) Close() {
	a.locker.Close()
	if err := a.store.Close(); err != nil {
		logging.Warn("storage close failed", zap.Error(err))
	}
}
