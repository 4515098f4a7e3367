package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/smart-city-backend/internal/logging"
	"github.com/i474232898/smart-city-backend/internal/metrics"
	"github.com/i474232898/smart-city-backend/internal/report"
)

// Scheduler periodically enforces issue retention.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     report.Store
	interval  time.Duration
}

// New creates a new Scheduler.
func New(store report.Store, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		store:     store,
		interval:  interval,
	}
}

// Start schedules the prune job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.pruneIssues)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) pruneIssues() {
	removed := s.store.Prune(time.Now())
	if removed > 0 {
		metrics.IssuesPruned.Add(float64(removed))
		logging.Info().Int("removed", removed).Msg("scheduler: pruned expired issues")
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
