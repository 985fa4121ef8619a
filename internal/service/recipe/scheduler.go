package recipe

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"synthlab/internal/domain"
)

// Scheduler manages cron-based preview refresh for datasets that carry a
// refresh schedule.
type Scheduler struct {
	cron     *cron.Cron
	svc      *Service
	datasets domain.DatasetRepository
	logger   *slog.Logger
	mu       sync.Mutex
	entries  map[string]cron.EntryID // dataset ID → cron entry
}

// NewScheduler creates a new preview refresh scheduler.
func NewScheduler(svc *Service, datasets domain.DatasetRepository, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		svc:      svc,
		datasets: datasets,
		logger:   logger.With("component", "scheduler"),
		entries:  make(map[string]cron.EntryID),
	}
}

// Start loads all scheduled datasets and starts the cron scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.loadSchedules(ctx); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("preview scheduler started")
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("preview scheduler stopped")
}

// Reload clears all cron entries and reloads from the database.
// Implements the ScheduleReloader interface.
func (s *Scheduler) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entryID := range s.entries {
		s.cron.Remove(entryID)
	}
	s.entries = make(map[string]cron.EntryID)

	return s.loadSchedules(ctx)
}

// loadSchedules queries for datasets with a refresh schedule and adds them
// to cron.
func (s *Scheduler) loadSchedules(ctx context.Context) error {
	datasets, err := s.datasets.ListScheduled(ctx)
	if err != nil {
		return err
	}

	for _, d := range datasets {
		if d.RefreshCron == nil {
			continue
		}
		schedule := *d.RefreshCron
		name := d.Name

		entryID, err := s.cron.AddFunc(schedule, func() {
			ctx := context.Background()
			if _, refreshErr := s.svc.Materialize(ctx, "scheduler", name, 0, nil); refreshErr != nil {
				s.logger.Warn("scheduled preview refresh failed",
					"dataset", name,
					"error", refreshErr,
				)
			}
		})
		if err != nil {
			s.logger.Warn("invalid refresh schedule",
				"dataset", name,
				"schedule", schedule,
				"error", err,
			)
			continue
		}

		s.entries[d.ID] = entryID
		s.logger.Info("scheduled preview refresh", "dataset", name, "schedule", schedule)
	}

	return nil
}

// Compile-time check that Scheduler implements ScheduleReloader.
var _ ScheduleReloader = (*Scheduler)(nil)
