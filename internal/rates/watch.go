package rates

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/logging"
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 250 * time.Millisecond

// WatchRetailersFile reloads reg from the YAML retailer file at path
// whenever it changes, until ctx is done. The parent directory is watched so
// atomic rename saves are seen. A file that fails to load or validate leaves
// reg untouched.
func WatchRetailersFile(ctx context.Context, path string, reg *Registry) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("retailer watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logging.Info("watching retailer file", zap.String("path", abs))

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(watchDebounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.Warn("retailer watcher error", zap.Error(err))

		case <-timer.C:
			reload(abs, reg)
		}
	}
}

func reload(path string, reg *Registry) {
	list, err := LoadRetailersFile(path)
	if err != nil {
		logging.Warn("retailer file reload failed", zap.String("path", path), zap.Error(err))
		return
	}
	reg.Replace(list)
	logging.Info("retailers reloaded", zap.String("path", path), zap.Int("count", len(list)))
}
