package rates

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bher20/tariffcompare/internal/compare"
	"github.com/bher20/tariffcompare/internal/logging"
)

// ErrUnknownRetailer is returned when a retailer key is not registered.
var ErrUnknownRetailer = errors.New("rates: unknown retailer")

// RetailerDescriptor describes one retailer and where its rate table lives.
type RetailerDescriptor struct {
	Key    string `json:"key" yaml:"key"`
	Name   string `json:"name" yaml:"name"`
	Source string `json:"source" yaml:"source"`
	// SkipTLSVerify is only consulted for https sources.
	SkipTLSVerify bool   `json:"skipTlsVerify,omitempty" yaml:"skipTlsVerify,omitempty"`
	Notes         string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Retailer returns the key as a compare.Retailer.
func (d RetailerDescriptor) Retailer() compare.Retailer {
	return compare.Retailer(d.Key)
}

const (
	retailersEnv     = "TARIFFCOMPARE_RETAILERS_JSON"
	retailersFileEnv = "TARIFFCOMPARE_RETAILERS_FILE"
)

// DefaultRetailers returns the built-in retailers, each reading
// <dataDir>/<key>.csv.
func DefaultRetailers(dataDir string) []RetailerDescriptor {
	if dataDir == "" {
		dataDir = "data"
	}
	out := []RetailerDescriptor{
		{Key: "origin", Name: "Origin"},
		{Key: "nectr", Name: "Nectr"},
		{Key: "momentum", Name: "Momentum"},
		{Key: "nbe", Name: "NBE"},
	}
	for i := range out {
		out[i].Source = filepath.Join(dataDir, out[i].Key+".csv")
	}
	return out
}

// RetailersFromEnv resolves the retailer list: the JSON env var wins, then
// the YAML file, then the defaults. Any override that fails to parse or is
// empty falls back to the defaults.
func RetailersFromEnv(dataDir string) []RetailerDescriptor {
	if raw := strings.TrimSpace(os.Getenv(retailersEnv)); raw != "" {
		var out []RetailerDescriptor
		if err := json.Unmarshal([]byte(raw), &out); err == nil && validRetailers(out) {
			return out
		}
		logging.Warn("invalid retailer override, using defaults", zap.String("env", retailersEnv))
		return DefaultRetailers(dataDir)
	}
	if path := strings.TrimSpace(os.Getenv(retailersFileEnv)); path != "" {
		out, err := LoadRetailersFile(path)
		if err == nil {
			return out
		}
		logging.Warn("invalid retailer file, using defaults", zap.String("path", path), zap.Error(err))
	}
	return DefaultRetailers(dataDir)
}

// LoadRetailersFile reads a YAML list of retailer descriptors. Relative
// sources are resolved against the file's directory.
func LoadRetailersFile(path string) ([]RetailerDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read retailers file: %w", err)
	}
	var out []RetailerDescriptor
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse retailers file: %w", err)
	}
	if !validRetailers(out) {
		return nil, fmt.Errorf("retailers file %s: no usable retailers", path)
	}
	dir := filepath.Dir(path)
	for i, r := range out {
		if !isRemote(r.Source) && !filepath.IsAbs(r.Source) {
			out[i].Source = filepath.Join(dir, r.Source)
		}
	}
	return out, nil
}

func validRetailers(list []RetailerDescriptor) bool {
	if len(list) == 0 {
		return false
	}
	seen := make(map[string]bool, len(list))
	for _, r := range list {
		if r.Key == "" || r.Source == "" || seen[r.Key] {
			return false
		}
		seen[r.Key] = true
	}
	return true
}

// Registry holds the active retailer list. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	retailers []RetailerDescriptor
}

// NewRegistry returns a registry seeded with list.
func NewRegistry(list []RetailerDescriptor) *Registry {
	r := &Registry{}
	r.Replace(list)
	return r
}

// Replace swaps the retailer list. Display order is the order given.
func (r *Registry) Replace(list []RetailerDescriptor) {
	cp := make([]RetailerDescriptor, len(list))
	copy(cp, list)
	r.mu.Lock()
	r.retailers = cp
	r.mu.Unlock()
}

// List returns the retailers in display order.
func (r *Registry) List() []RetailerDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RetailerDescriptor, len(r.retailers))
	copy(out, r.retailers)
	return out
}

// Get returns the retailer with key.
func (r *Registry) Get(key string) (RetailerDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.retailers {
		if d.Key == key {
			return d, nil
		}
	}
	return RetailerDescriptor{}, fmt.Errorf("%w: %s", ErrUnknownRetailer, key)
}

// Keys returns the retailer keys in display order.
func (r *Registry) Keys() []compare.Retailer {
	list := r.List()
	out := make([]compare.Retailer, len(list))
	for i, d := range list {
		out[i] = d.Retailer()
	}
	return out
}

func sortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
