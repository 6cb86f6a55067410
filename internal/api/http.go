package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/api/swagger"
	"github.com/bher20/tariffcompare/internal/checklist"
	"github.com/bher20/tariffcompare/internal/logging"
	"github.com/bher20/tariffcompare/internal/metrics"
	"github.com/bher20/tariffcompare/internal/rates"
	"github.com/bher20/tariffcompare/internal/storage"
	"github.com/bher20/tariffcompare/internal/ui"
)

// Refresher runs a rate refresh on demand.
type Refresher interface {
	RunOnce(ctx context.Context) (rates.RefreshReport, error)
}

// EmailTester sends a test email with the current configuration.
type EmailTester interface {
	SendTest(ctx context.Context, to string) error
}

// Deps are the services the HTTP layer is wired to. Refresher and Email may
// be nil.
type Deps struct {
	Store     storage.Storage
	Rates     *rates.Service
	Checklist *checklist.Service
	Refresher Refresher
	Email     EmailTester
}

// NewMux constructs the HTTP mux, wiring in the services, metrics, and health endpoints.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			logging.Warn("readyz: storage ping failed", zap.Error(err))
			http.Error(w, "storage not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	registerCompareRoutes(mux, d.Rates)
	registerChecklistRoutes(mux, d.Checklist)
	registerAdminRoutes(mux, d)

	mux.Handle("/swagger/", http.StripPrefix("/swagger", swagger.Handler()))
	mux.Handle("/ui/", http.StripPrefix("/ui/", ui.Handler()))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/ui/", http.StatusFound)
	})

	return mux
}

// route wraps h with request metrics and a method check.
func route(name, method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(name).Inc()
		defer func() {
			metrics.RequestDurationSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}()

		if r.Method != method {
			w.Header().Set("Allow", method)
			writeError(w, name, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("encode response failed", zap.Error(err))
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, routeName string, status int, msg string) {
	metrics.RequestErrorsTotal.WithLabelValues(routeName, strconv.Itoa(status)).Inc()
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}
