package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// JobFunc runs one sweep and reports what it processed
type JobFunc func(ctx context.Context) (*appinv.SweepStats, error)

// Job is a periodic background sweep
type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// Locker keeps two instances from running the same sweep at once
type Locker interface {
	Lock(ctx context.Context, key string) (func(context.Context) error, error)
}

// Scheduler runs each job on its own ticker. A run is skipped when another
// instance holds the job's lock.
type Scheduler struct {
	config config.SchedulerConfig
	jobs   []Job
	locker Locker
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a scheduler for the given jobs
func NewScheduler(cfg config.SchedulerConfig, locker Locker, logger *zap.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{
		config: cfg,
		jobs:   jobs,
		locker: locker,
		logger: logger.Named("scheduler"),
	}
}

// Start launches one goroutine per job. It is a no-op when disabled or already started.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			return fmt.Errorf("%w: job %s has no interval", ErrInvalidConfig, job.Name)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.isRunning = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}

	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels the loops and waits for running sweeps, up to ctx's deadline
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loops are active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunNow runs the named job once, under its lock, outside of its ticker
func (s *Scheduler) RunNow(ctx context.Context, name string) (*appinv.SweepStats, error) {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.runJob(ctx, job)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.runJob(ctx, job)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job) (*appinv.SweepStats, error) {
	log := s.logger.With(zap.String("job", job.Name))

	release, err := s.locker.Lock(ctx, "sweep:"+job.Name)
	if err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			log.Debug("Sweep skipped, lock held elsewhere")
			return nil, ErrJobLocked
		}
		log.Error("Failed to obtain sweep lock", zap.Error(err))
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to release sweep lock", zap.Error(err))
		}
	}()

	jobCtx := ctx
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	stats, err := job.Run(jobCtx)
	if err != nil {
		log.Error("Sweep failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, err
	}
	log.Info("Sweep completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("total", stats.Total),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}
