package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/cron"
	"github.com/bher20/tariffcompare/internal/logging"
	"github.com/bher20/tariffcompare/internal/notification"
)

func registerAdminRoutes(mux *http.ServeMux, d Deps) {
	// Manual refresh for CronJobs or operators.
	mux.HandleFunc("/api/rates/refresh", route("refresh", http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		if d.Refresher == nil {
			report, err := d.Rates.Refresh(r.Context())
			if err != nil {
				logging.Warn("manual refresh completed with errors", zap.Error(err))
			}
			writeJSON(w, http.StatusOK, report)
			return
		}
		report, err := d.Refresher.RunOnce(r.Context())
		if errors.Is(err, cron.ErrLocked) {
			writeError(w, "refresh", http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	}))

	mux.HandleFunc("/api/settings/refresh-schedule", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			route("schedule_get", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
				val, err := d.Store.GetSetting(r.Context(), cron.ScheduleSetting)
				if err != nil {
					writeError(w, "schedule_get", http.StatusInternalServerError, "internal error")
					return
				}
				writeJSON(w, http.StatusOK, map[string]string{"schedule": val})
			})(w, r)
		default:
			route("schedule_put", http.MethodPut, func(w http.ResponseWriter, r *http.Request) {
				var body struct {
					Schedule string `json:"schedule"`
				}
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !cron.ValidSchedule(body.Schedule) {
					writeError(w, "schedule_put", http.StatusBadRequest, "schedule must be seconds or a cron expression")
					return
				}
				if err := d.Store.SetSetting(r.Context(), cron.ScheduleSetting, strings.TrimSpace(body.Schedule)); err != nil {
					writeError(w, "schedule_put", http.StatusInternalServerError, "internal error")
					return
				}
				writeJSON(w, http.StatusOK, map[string]string{"schedule": strings.TrimSpace(body.Schedule)})
			})(w, r)
		}
	})

	mux.HandleFunc("/api/notifications/test", route("email_test", http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			To string `json:"to"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.To) == "" {
			writeError(w, "email_test", http.StatusBadRequest, "to is required")
			return
		}
		if d.Email == nil {
			writeError(w, "email_test", http.StatusServiceUnavailable, notification.ErrDisabled.Error())
			return
		}
		err := d.Email.SendTest(r.Context(), strings.TrimSpace(body.To))
		switch {
		case errors.Is(err, notification.ErrDisabled):
			writeError(w, "email_test", http.StatusServiceUnavailable, err.Error())
		case err != nil:
			writeError(w, "email_test", http.StatusBadGateway, err.Error())
		default:
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		}
	}))
}
