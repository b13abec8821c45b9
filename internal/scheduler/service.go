package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/linkup-hub/pkg/logger"
)

const defaultInterval = time.Minute

type ServiceParams struct {
	Logger   *slog.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *JobMetrics
	Interval time.Duration
}

// Service runs every registered job once per interval while holding the lock.
type Service struct {
	logger   *slog.Logger
	registry *Registry
	lock     Lock
	metrics  *JobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logger:   params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run executes one cycle immediately and then one per tick until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("scheduled run failed", "error", err)
			}
		}
	}
}

// RunOnce runs a single cycle. Job failures are recorded, not returned.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !locked {
		s.logger.Info("another scheduler instance holds the lock; skipping cycle")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logger.Error("failed to release scheduler lock", "error", err)
		}
	}()

	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	log := s.logger.With("job", job.Name())
	jobCtx := logger.With(ctx, "job", job.Name())

	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	if err != nil {
		log.Error("job failed", "error", err, "duration_ms", duration.Milliseconds())
		s.metrics.IncFailure(job.Name())
		return
	}
	log.Info("job completed", "duration_ms", duration.Milliseconds())
	s.metrics.IncSuccess(job.Name())
}
