// Package scheduler reloads the medicine catalog on a daily schedule and,
// for file sources, whenever the file changes on disk.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giygas/prescription-builder/catalog"
	"github.com/giygas/prescription-builder/interfaces"
	"github.com/giygas/prescription-builder/logging"
	"github.com/giygas/prescription-builder/metrics"
	"github.com/giygas/prescription-builder/validation"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// ErrEmptyCatalog is returned when a source yields no rows. The previous
// catalog stays active.
var ErrEmptyCatalog = errors.New("catalog source returned no rows")

const reloadTimeout = 10 * time.Minute

// Scheduler handles catalog reloads and staleness monitoring
type Scheduler struct {
	dataStore interfaces.DataStore
	loader    interfaces.CatalogLoader
	validator interfaces.DataValidator
	refreshAt string
	scheduler *gocron.Scheduler
	watcher   *CatalogWatcher
	stop      chan struct{}
}

// NewScheduler creates a scheduler that reloads from loader at the refreshAt
// times ("HH:MM;HH:MM").
func NewScheduler(dataStore interfaces.DataStore, loader interfaces.CatalogLoader, refreshAt string) *Scheduler {
	return &Scheduler{
		dataStore: dataStore,
		loader:    loader,
		validator: validation.NewDataValidator(),
		refreshAt: refreshAt,
		scheduler: gocron.NewScheduler(time.Local),
		stop:      make(chan struct{}),
	}
}

// WatchFile enables reloads when path changes. Call before Start.
func (s *Scheduler) WatchFile(path string, debounce time.Duration) error {
	w, err := NewCatalogWatcher(path, debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		if err := s.reload(ctx, "watch"); err != nil {
			logging.Error("Failed to reload catalog after file change", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	s.watcher = w
	return nil
}

// Start schedules the periodic reloads and performs the initial load.
// A failed initial load is returned, but the schedule stays active so a
// later reload can recover.
func (s *Scheduler) Start() error {
	if s.refreshAt != "" {
		_, err := s.scheduler.Every(1).Days().At(s.refreshAt).Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
			defer cancel()
			if err := s.reload(ctx, "schedule"); err != nil {
				logging.Error("Failed to reload catalog", "error", err)
			}
		})
		if err != nil {
			logging.Error("Failed to schedule catalog reloads", "error", err)
			return fmt.Errorf("failed to schedule reloads: %w", err)
		}
		s.scheduler.StartAsync()
	}

	if s.watcher != nil {
		s.watcher.Start()
	}

	s.startHealthMonitoring()

	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	if err := s.reload(ctx, "startup"); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	return nil
}

// Stop stops the scheduler and the file watcher
func (s *Scheduler) Stop() {
	select {
	case <-s.stop:
		return
	default:
		close(s.stop)
	}

	s.scheduler.Stop()
	if s.watcher != nil {
		s.watcher.Stop()
	}
}

// Reload loads the catalog now.
func (s *Scheduler) Reload(ctx context.Context) error {
	return s.reload(ctx, "manual")
}

func (s *Scheduler) reload(ctx context.Context, trigger string) error {
	// Prevent concurrent reloads
	if !s.dataStore.BeginUpdate() {
		logging.Info("Catalog reload already in progress, skipping", "trigger", trigger)
		metrics.CatalogReloadTotal.WithLabelValues(trigger, "skipped").Inc()
		return nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting catalog reload", "trigger", trigger, "source", s.loader.Describe())
	start := time.Now()

	rows, err := s.loader.Load(ctx)
	if err == nil && len(rows) == 0 {
		err = ErrEmptyCatalog
	}
	if err != nil {
		metrics.CatalogReloadTotal.WithLabelValues(trigger, "error").Inc()
		return fmt.Errorf("failed to load catalog from %s: %w", s.loader.Describe(), err)
	}

	report := s.validator.ReportDataQuality(rows)
	if report.DuplicateRows > 0 {
		logging.Warn("Duplicate catalog rows detected",
			"total", report.DuplicateRows,
			"examples", report.DuplicateExamples,
		)
	}
	if report.MissingStrength > 0 || report.MissingType > 0 {
		logging.Warn("Catalog rows with missing fields",
			"missing_strength", report.MissingStrength,
			"missing_type", report.MissingType,
			"missing_brand", report.MissingBrand,
		)
	}
	if report.ZeroPrice > 0 {
		logging.Debug("Catalog rows without a price", "count", report.ZeroPrice)
	}

	index := catalog.NewIndex(rows)
	s.dataStore.UpdateData(index, report)

	metrics.CatalogReloadTotal.WithLabelValues(trigger, "success").Inc()
	metrics.CatalogRows.Set(float64(index.Len()))

	logging.Info("Catalog reload completed",
		"trigger", trigger,
		"duration", time.Since(start).String(),
		"rows", index.Len(),
		"generics", index.GenericCount(),
	)

	return nil
}

// startHealthMonitoring warns when the catalog has gone stale
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				lastUpdate := s.dataStore.GetLastUpdated()
				if time.Since(lastUpdate) > 25*time.Hour {
					logging.Warn("Catalog hasn't been reloaded in over 25 hours", "last_update", lastUpdate)
				}
			}
		}
	}()
}
