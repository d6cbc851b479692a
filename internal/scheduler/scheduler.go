// Package scheduler runs the background goroutine that drives the auction
// lifecycle: the closing loop sweeps for expired auctions on a fixed interval
// and hands them to the closer service for settlement.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/mezatapp/mezat/internal/config"
	"github.com/mezatapp/mezat/internal/service"
)

// Scheduler owns the closing loop.  Call Start(ctx) once from main(); cancel
// the context to shut it down gracefully.
type Scheduler struct {
	closer *service.CloserService
	cfg    *config.Config
	logger *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(closer *service.CloserService, cfg *config.Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		closer: closer,
		cfg:    cfg,
		logger: logger,
	}
}

// Start launches the closing loop.  It returns immediately; the loop runs
// until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.closingLoop(ctx)
	s.logger.Info("scheduler started", "interval", s.cfg.Closer.Interval)
}

// ──────────────────────────────────────────────────────────────────────────────
// closingLoop
// ──────────────────────────────────────────────────────────────────────────────

// closingLoop sweeps for expired auctions on every tick.  Auction deadlines
// are soft real-time: a close may run up to one interval after ends_at, and
// the bid path independently rejects bids past the deadline, so nothing is
// accepted in the gap.
func (s *Scheduler) closingLoop(ctx context.Context) {
	defer s.recoverAndLog("closingLoop")

	ticker := time.NewTicker(s.cfg.Closer.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("closingLoop: shutting down")
			return
		case <-ticker.C:
			closed, err := s.closer.ProcessExpiredAuctions(ctx, time.Now().UTC())
			if err != nil {
				s.logger.Error("closingLoop: ProcessExpiredAuctions", "err", err)
			}
			if closed > 0 {
				s.logger.Info("closingLoop: auctions closed", "count", closed)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the process to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
