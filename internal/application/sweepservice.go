package application

import (
	"context"
	"log/slog"
	"time"
)

// SweepService periodically drops abandoned wizard sessions.
type SweepService struct {
	registry *WizardRegistry
	interval time.Duration
	maxIdle  time.Duration
	logger   *slog.Logger
}

// NewSweepService creates a SweepService.
func NewSweepService(registry *WizardRegistry, interval, maxIdle time.Duration, logger *slog.Logger) *SweepService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepService{
		registry: registry,
		interval: interval,
		maxIdle:  maxIdle,
		logger:   logger,
	}
}

// Start sweeps on the configured interval. It blocks until the context is
// canceled.
func (s *SweepService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("wizard sweeper stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *SweepService) sweep() {
	if removed := s.registry.Sweep(s.maxIdle); removed > 0 {
		s.logger.Info("idle wizards removed", "count", removed, "remaining", s.registry.Len())
	}
}
