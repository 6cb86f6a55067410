package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/checklist"
	"github.com/bher20/tariffcompare/internal/logging"
	"github.com/bher20/tariffcompare/internal/storage"
)

const defaultLogLimit = 200

func registerChecklistRoutes(mux *http.ServeMux, svc *checklist.Service) {
	mux.HandleFunc("/api/log", route("log", http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var t checklist.Toggle
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			writeError(w, "log", http.StatusBadRequest, "invalid request body")
			return
		}
		ev, err := svc.Toggle(r.Context(), t)
		switch {
		case errors.Is(err, checklist.ErrNameRequired), errors.Is(err, checklist.ErrLabelRequired):
			writeError(w, "log", http.StatusBadRequest, err.Error())
			return
		case err != nil:
			logging.Error("saving log failed", zap.Error(err))
			writeError(w, "log", http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": ev.ID})
	}))

	mux.HandleFunc("/api/logs", route("logs", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		filter := storage.AuditFilter{
			Name:  strings.TrimSpace(r.URL.Query().Get("name")),
			Limit: queryInt(r, "limit", defaultLogLimit),
		}
		events, err := svc.Events(r.Context(), filter)
		if err != nil {
			logging.Error("list logs failed", zap.Error(err))
			writeError(w, "logs", http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, events)
	}))

	mux.HandleFunc("/api/checklist", route("checklist_items", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checklist.DefaultItems)
	}))

	mux.HandleFunc("/api/checklist/", route("checklist_state", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/checklist/"))
		st, err := svc.State(r.Context(), name)
		switch {
		case errors.Is(err, checklist.ErrNameRequired):
			writeError(w, "checklist_state", http.StatusBadRequest, err.Error())
			return
		case err != nil:
			logging.Error("checklist state failed", zap.String("name", name), zap.Error(err))
			writeError(w, "checklist_state", http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, st)
	}))
}
