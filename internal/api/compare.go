package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/compare"
	"github.com/bher20/tariffcompare/internal/logging"
	"github.com/bher20/tariffcompare/internal/metrics"
	"github.com/bher20/tariffcompare/internal/rates"
)

// RetailerDTO is a retailer as listed to clients.
type RetailerDTO struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// rowBody is one row of an evaluate request. Values are lenient numbers.
type rowBody struct {
	Usage    compare.Number `json:"usage"`
	Rate     compare.Number `json:"rate"`
	Discount compare.Number `json:"discount"`
}

func (b rowBody) input() compare.RowInput {
	return compare.RowInput{Usage: b.Usage.Float(), Rate: b.Rate.Float(), Discount: b.Discount.Float()}
}

type retailerBody struct {
	Rate     compare.Number `json:"rate"`
	Discount compare.Number `json:"discount"`
}

type customBody struct {
	ID        string                  `json:"id"`
	Label     string                  `json:"label"`
	Usage     compare.Number          `json:"usage"`
	Rate      compare.Number          `json:"rate"`
	Discount  compare.Number          `json:"discount"`
	Retailers map[string]retailerBody `json:"retailers"`
}

// EvaluateRequest is the body of POST /api/compare/evaluate.
type EvaluateRequest struct {
	Tariff string             `json:"tariff"`
	Rows   map[string]rowBody `json:"rows"`
	Custom []customBody       `json:"custom"`
}

// Sheet rebuilds the caller's sheet. Row keys match standard fields the
// same way table headers do; unknown keys are ignored.
func (req EvaluateRequest) Sheet() *compare.Sheet {
	sheet := compare.NewSheet(strings.TrimSpace(req.Tariff))
	for k, v := range req.Rows {
		if f, ok := compare.MatchStandardField(k); ok {
			sheet.Set(f, v.input())
		}
	}
	for _, c := range req.Custom {
		row := compare.CustomRow{
			ID:        c.ID,
			Label:     c.Label,
			Input:     compare.RowInput{Usage: c.Usage.Float(), Rate: c.Rate.Float(), Discount: c.Discount.Float()},
			Retailers: make(map[compare.Retailer]compare.RetailerInput, len(c.Retailers)),
		}
		for r, in := range c.Retailers {
			row.Retailers[compare.Retailer(r)] = compare.RetailerInput{Rate: in.Rate.Float(), Discount: in.Discount.Float()}
		}
		sheet.AppendCustomRow(row)
	}
	return sheet
}

// EvaluateResponse carries the evaluated table and the cards it used.
type EvaluateResponse struct {
	compare.Result
	Retailers []RetailerDTO     `json:"retailers"`
	Cards     compare.RateCards `json:"cards"`
}

func retailerDTOs(svc *rates.Service) []RetailerDTO {
	list := svc.Registry().List()
	out := make([]RetailerDTO, 0, len(list))
	for _, d := range list {
		out = append(out, RetailerDTO{Key: d.Key, Name: d.Name})
	}
	return out
}

func registerCompareRoutes(mux *http.ServeMux, svc *rates.Service) {
	mux.HandleFunc("/api/tariffs", route("tariffs", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		tariffs, err := svc.Tariffs(r.Context())
		if err != nil {
			logging.Error("list tariffs failed", zap.Error(err))
			writeError(w, "tariffs", http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, tariffs)
	}))

	mux.HandleFunc("/api/retailers", route("retailers", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, retailerDTOs(svc))
	}))

	mux.HandleFunc("/api/compare", route("compare", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		tariff := strings.TrimSpace(r.URL.Query().Get("tariff"))
		if tariff == "" {
			writeError(w, "compare", http.StatusBadRequest, "tariff is required")
			return
		}
		cards, err := svc.Lookup(r.Context(), tariff)
		if err != nil {
			logging.Error("rate lookup failed", zap.String("tariff", tariff), zap.Error(err))
			writeError(w, "compare", http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, cards)
	}))

	mux.HandleFunc("/api/compare/evaluate", route("evaluate", http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var req EvaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "evaluate", http.StatusBadRequest, "invalid request body")
			return
		}
		sheet := req.Sheet()
		if sheet.Tariff == "" {
			writeError(w, "evaluate", http.StatusBadRequest, "tariff is required")
			return
		}
		cards, err := svc.Lookup(r.Context(), sheet.Tariff)
		if err != nil {
			logging.Error("rate lookup failed", zap.String("tariff", sheet.Tariff), zap.Error(err))
			writeError(w, "evaluate", http.StatusInternalServerError, "internal error")
			return
		}

		cmp := compare.Comparison{Cards: cards}
		res := cmp.Evaluate(sheet, svc.Registry().Keys())
		metrics.ComparisonsTotal.Inc()
		writeJSON(w, http.StatusOK, EvaluateResponse{Result: res, Retailers: retailerDTOs(svc), Cards: cards})
	}))
}
