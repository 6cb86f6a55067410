package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStorage keeps everything as JSON files under a directory. The audit
// log is a single pretty-printed array in logs.json, rewritten atomically on
// every append; it suits a single instance with a modest log.
type FileStorage struct {
	dir string

	mu       sync.Mutex
	events   []AuditEvent
	settings map[string]string
	jobs     map[string]ScheduledJob
}

const (
	fileLogs     = "logs.json"
	fileSettings = "settings.json"
	fileJobs     = "jobs.json"
	dirSnapshots = "snapshots"
)

// OpenFile opens (or creates) a FileStorage rooted at dir.
func OpenFile(dir string) (*FileStorage, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(filepath.Join(dir, dirSnapshots), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	f := &FileStorage{
		dir:      dir,
		settings: make(map[string]string),
		jobs:     make(map[string]ScheduledJob),
	}
	if err := readJSONFile(filepath.Join(dir, fileLogs), &f.events); err != nil {
		return nil, fmt.Errorf("read %s: %w", fileLogs, err)
	}
	if err := readJSONFile(filepath.Join(dir, fileSettings), &f.settings); err != nil {
		return nil, fmt.Errorf("read %s: %w", fileSettings, err)
	}
	if err := readJSONFile(filepath.Join(dir, fileJobs), &f.jobs); err != nil {
		return nil, fmt.Errorf("read %s: %w", fileJobs, err)
	}
	// A file holding null decodes to a nil map.
	if f.settings == nil {
		f.settings = make(map[string]string)
	}
	if f.jobs == nil {
		f.jobs = make(map[string]ScheduledJob)
	}
	return f, nil
}

func (f *FileStorage) Close() error { return nil }

func (f *FileStorage) Ping(ctx context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

func (f *FileStorage) snapshotPath(retailer string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '_'
		}
		return r
	}, retailer)
	return filepath.Join(f.dir, dirSnapshots, name+".json")
}

func (f *FileStorage) GetRatesSnapshot(ctx context.Context, retailer string) (*RatesSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var snap *RatesSnapshot
	if err := readJSONFile(f.snapshotPath(retailer), &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (f *FileStorage) SaveRatesSnapshot(ctx context.Context, snap RatesSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	return f.writeJSON(f.snapshotPath(snap.Retailer), snap)
}

func (f *FileStorage) AppendAuditEvent(ctx context.Context, ev AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := append(f.events[:len(f.events):len(f.events)], ev)
	if err := f.writeJSON(filepath.Join(f.dir, fileLogs), next); err != nil {
		return err
	}
	f.events = next
	return nil
}

func (f *FileStorage) ListAuditEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return filterEvents(f.events, filter), nil
}

func (f *FileStorage) GetSetting(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings[key], nil
}

func (f *FileStorage) SetSetting(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[key] = value
	return f.writeJSON(filepath.Join(f.dir, fileSettings), f.settings)
}

func (f *FileStorage) RecordJobRun(ctx context.Context, run ScheduledJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[run.Name] = run
	return f.writeJSON(filepath.Join(f.dir, fileJobs), f.jobs)
}

func (f *FileStorage) writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomically(path, bytes.NewReader(b))
}
