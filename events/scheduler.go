package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule refreshes the event snapshot every six hours.
const DefaultSchedule = "@every 6h"

// Snapshot is the last refresh result served to clients.
type Snapshot struct {
	Events    []Event   `json:"events"`
	UpdatedAt time.Time `json:"updated_at"`
	// Fallback is set when the events are the default record.
	Fallback bool `json:"fallback"`
}

type SchedulerConfig struct {
	Schedule string
	Query    string
	Limit    int
	Budget   time.Duration
}

// Scheduler refreshes an in-memory events snapshot on a cron schedule.
type Scheduler struct {
	finder *Finder
	cfg    SchedulerConfig
	cron   *cron.Cron
	logger *slog.Logger
	// ctx is canceled by Stop so a scheduled refresh in flight ends early.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	snapshot Snapshot
	running  sync.Mutex
}

func NewScheduler(finder *Finder, cfg SchedulerConfig, logger *slog.Logger) (*Scheduler, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid events schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		finder: finder,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start registers the refresh job and starts the cron runner.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.Refresh(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add schedule: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron runner and cancels a scheduled refresh in flight; the
// returned context is done once that refresh has returned.
func (s *Scheduler) Stop() context.Context {
	s.cancel()
	return s.cron.Stop()
}

// Refresh discovers candidates and replaces the snapshot. Overlapping
// refreshes are skipped.
func (s *Scheduler) Refresh(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Debug("events refresh already running")
		return
	}
	defer s.running.Unlock()

	candidates, err := s.finder.Discover(ctx, s.cfg.Query, s.cfg.Limit)
	if err != nil {
		s.logger.Warn("event discovery failed", "error", err)
	}
	ev, found := s.finder.FindFirst(ctx, candidates, s.cfg.Budget)
	if ctx.Err() != nil {
		s.logger.Info("events refresh canceled", "error", ctx.Err())
		return
	}

	s.mu.Lock()
	s.snapshot = Snapshot{Events: []Event{ev}, UpdatedAt: time.Now(), Fallback: !found}
	s.mu.Unlock()
	s.logger.Info("events refreshed", "candidates", len(candidates), "found", found, "name", ev.Name)
}

// Snapshot returns the latest events, or the default record before the
// first refresh.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.snapshot.Events) == 0 {
		return Snapshot{Events: []Event{DefaultEvent()}, Fallback: true}
	}
	snap := s.snapshot
	snap.Events = append([]Event(nil), s.snapshot.Events...)
	return snap
}
