package game

import (
	"context"
	"log/slog"
	"time"

	"sco-server/internal/shared/errors"
)

// Scheduler resolves turns whose interval has elapsed. With auto resolve on it
// also picks up games where every alive player has submitted.
type Scheduler struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(service *Service, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{service: service, interval: interval, logger: logger}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	logger := s.logger.With("component", "turn_scheduler", "interval", s.interval)
	logger.Info("Turn scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Turn scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick resolves every due game once and returns how many turns it resolved.
func (s *Scheduler) Tick(ctx context.Context) int {
	logger := s.logger.With("component", "turn_scheduler", "operation", "tick")

	resolved := 0
	for _, id := range s.service.DueGames(s.service.now()) {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.service.ResolveTurn(ctx, id); err != nil {
			if errors.IsType(err, errors.ErrorTypeConflict) {
				logger.Debug("Game already resolving", "game_id", id)
				continue
			}
			logger.Error("Scheduled resolution failed", "game_id", id, "error", err)
			continue
		}
		resolved++
	}
	if resolved > 0 {
		logger.Info("Scheduled turns resolved", "count", resolved)
	}
	return resolved
}
