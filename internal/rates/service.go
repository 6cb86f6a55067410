package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bher20/tariffcompare/internal/compare"
	"github.com/bher20/tariffcompare/internal/logging"
	"github.com/bher20/tariffcompare/internal/metrics"
	"github.com/bher20/tariffcompare/internal/storage"
)

// Config controls how the rates service behaves.
type Config struct {
	// CacheTTL bounds how long a stored snapshot is served before the source
	// is read again. Zero keeps snapshots until the next Refresh.
	CacheTTL time.Duration
	// HTTPClient overrides the client used for remote sources.
	HTTPClient *http.Client
}

// RetailerTable is the parsed rate table of one retailer as stored in a
// snapshot.
type RetailerTable struct {
	Retailer  string       `json:"retailer"`
	Name      string       `json:"name"`
	Source    string       `json:"source"`
	FetchedAt time.Time    `json:"fetched_at"`
	Rates     []TariffRate `json:"rates"`
}

// Service coordinates fetching and caching of retailer rate tables.
type Service struct {
	cfg      Config
	registry *Registry
	store    storage.Storage // may be nil: every read goes to the source
}

// NewService returns a source-only Service with no snapshot caching.
func NewService(cfg Config, reg *Registry) *Service {
	return &Service{cfg: cfg, registry: reg}
}

// NewServiceWithStorage returns a Service that caches parsed tables as rates
// snapshots in st.
func NewServiceWithStorage(cfg Config, reg *Registry, st storage.Storage) *Service {
	return &Service{cfg: cfg, registry: reg, store: st}
}

// Registry returns the retailer registry the service reads from.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Lookup returns every registered retailer's rate card for tariff. A
// retailer with no matching row, or whose source cannot be read, maps to a
// nil card. Only a cancelled context is an error.
func (s *Service) Lookup(ctx context.Context, tariff string) (compare.RateCards, error) {
	out := make(compare.RateCards)
	for _, d := range s.registry.List() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := s.table(ctx, d)
		if err != nil {
			out[d.Retailer()] = nil
			continue
		}
		card, ok := matchTariff(table.Rates, tariff)
		if !ok {
			metrics.RateLookupMissesTotal.WithLabelValues(d.Key).Inc()
		}
		out[d.Retailer()] = card
	}
	return out, nil
}

// Tariffs returns the distinct tariff identifiers across all retailers,
// trimmed and sorted.
func (s *Service) Tariffs(ctx context.Context) ([]string, error) {
	var all []string
	for _, d := range s.registry.List() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := s.table(ctx, d)
		if err != nil {
			continue
		}
		for _, r := range table.Rates {
			all = append(all, r.Tariff)
		}
	}
	return sortedUnique(all), nil
}

// Table returns the parsed table of one retailer.
func (s *Service) Table(ctx context.Context, key string) (*RetailerTable, error) {
	d, err := s.registry.Get(key)
	if err != nil {
		return nil, err
	}
	return s.table(ctx, d)
}

// RefreshResult is the outcome of re-reading one retailer's source.
type RefreshResult struct {
	Retailer string `json:"retailer"`
	Tariffs  int    `json:"tariffs"`
	Error    string `json:"error,omitempty"`
}

// RefreshReport summarizes a Refresh run.
type RefreshReport struct {
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration_ns"`
	Results   []RefreshResult `json:"results"`
}

// Failed returns the number of retailers that could not be refreshed.
func (r RefreshReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Error != "" {
			n++
		}
	}
	return n
}

// refreshConcurrency bounds how many sources Refresh reads at once.
const refreshConcurrency = 4

// Refresh re-reads every retailer source and stores a fresh snapshot. It
// keeps going past failures; the returned error joins all of them. Results
// keep registry order.
func (s *Service) Refresh(ctx context.Context) (RefreshReport, error) {
	report := RefreshReport{StartedAt: time.Now().UTC()}
	list := s.registry.List()
	report.Results = make([]RefreshResult, len(list))
	errs := make([]error, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for i, d := range list {
		i, d := i, d
		g.Go(func() error {
			report.Results[i], errs[i] = s.refreshOne(gctx, d)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(report.StartedAt)
	return report, errors.Join(errs...)
}

func (s *Service) refreshOne(ctx context.Context, d RetailerDescriptor) (RefreshResult, error) {
	res := RefreshResult{Retailer: d.Key}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res, err
	}
	table, err := s.load(ctx, d)
	if err == nil {
		res.Tariffs = len(table.Rates)
		err = s.save(ctx, table)
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res, err
}

// table tries storage first, then falls back to the source and writes the
// result back.
func (s *Service) table(ctx context.Context, d RetailerDescriptor) (*RetailerTable, error) {
	if s.store != nil {
		snap, err := s.store.GetRatesSnapshot(ctx, d.Key)
		if err == nil && snap != nil && len(snap.Payload) > 0 && s.fresh(snap.FetchedAt) {
			var t RetailerTable
			if err := json.Unmarshal(snap.Payload, &t); err == nil && t.Source == d.Source {
				return &t, nil
			}
			// Stale payload or a changed source: fall through to re-read.
		}
	}

	t, err := s.load(ctx, d)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.save(ctx, t); err != nil {
			logging.Warn("rates snapshot write failed", zap.String("retailer", d.Key), zap.Error(err))
		}
	}
	return t, nil
}

func (s *Service) fresh(fetchedAt time.Time) bool {
	return s.cfg.CacheTTL <= 0 || time.Since(fetchedAt) < s.cfg.CacheTTL
}

func (s *Service) load(ctx context.Context, d RetailerDescriptor) (*RetailerTable, error) {
	raw, err := FetchTable(ctx, s.cfg.HTTPClient, d)
	if err == nil {
		var rows []TariffRate
		rows, err = ParseTable(raw)
		if err == nil {
			return &RetailerTable{
				Retailer:  d.Key,
				Name:      d.Name,
				Source:    d.Source,
				FetchedAt: time.Now().UTC(),
				Rates:     rows,
			}, nil
		}
		err = fmt.Errorf("parse %s table: %w", d.Key, err)
	}
	metrics.RateSourceErrorsTotal.WithLabelValues(d.Key).Inc()
	logging.Warn("retailer rate source unavailable",
		zap.String("retailer", d.Key),
		zap.String("source", d.Source),
		zap.Error(err),
	)
	return nil, err
}

func (s *Service) save(ctx context.Context, t *RetailerTable) error {
	if s.store == nil {
		return nil
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", t.Retailer, err)
	}
	return s.store.SaveRatesSnapshot(ctx, storage.RatesSnapshot{
		Retailer:  t.Retailer,
		Payload:   payload,
		FetchedAt: t.FetchedAt,
	})
}
