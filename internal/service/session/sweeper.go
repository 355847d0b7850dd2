package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper runs Engine.Sweep on a fixed interval.
type Sweeper struct {
	scheduler *gocron.Scheduler
	engine    *Engine
	interval  time.Duration
	logger    *slog.Logger
}

// NewSweeper creates a Sweeper for engine. A non-positive interval means one minute.
func NewSweeper(engine *Engine, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Sweeper{
		scheduler: s,
		engine:    engine,
		interval:  interval,
		logger:    logger.With(slog.String("component", "session_sweeper")),
	}
}

// Start schedules the sweep and returns without blocking.
func (s *Sweeper) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(s.sweep)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("session sweeper started", slog.Duration("interval", s.interval))
	return nil
}

// Stop halts the schedule. A sweep already running is allowed to finish.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
	s.logger.Info("session sweeper stopped")
}

func (s *Sweeper) sweep() {
	res := s.engine.Sweep(context.Background())
	if res.Failed > 0 {
		s.logger.Warn("sweep left sessions unfinalized", slog.Int("failed", res.Failed))
	}
}
