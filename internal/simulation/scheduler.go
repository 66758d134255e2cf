package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrSchedulerRunning = errors.New("scheduler already running")

type SchedulerConfig struct {
	StartupDelay    time.Duration
	TickInterval    time.Duration
	RefreshInterval time.Duration
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		StartupDelay:    2500 * time.Millisecond,
		TickInterval:    5 * time.Second,
		RefreshInterval: time.Minute,
	}
}

// Scheduler drives the engine from a single goroutine: the startup delay,
// then the simulation tick and the notification label refresh. Nothing
// fires once Stop has returned.
type Scheduler struct {
	engine *Engine
	cfg    SchedulerConfig
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(engine *Engine, cfg SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{engine: engine, cfg: cfg, logger: logger}
}

// Start launches the loop. It runs until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	return nil
}

// Stop cancels the loop and waits for it to exit. It is safe to call more
// than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	startup := time.NewTimer(s.cfg.StartupDelay)
	defer startup.Stop()
	select {
	case <-ctx.Done():
		return
	case <-startup.C:
	}

	s.engine.MarkReady()
	s.engine.Tick()

	ticks := time.NewTicker(s.cfg.TickInterval)
	defer ticks.Stop()
	refresh := time.NewTicker(s.cfg.RefreshInterval)
	defer refresh.Stop()

	s.logger.Info("Scheduler running",
		zap.Duration("tick_interval", s.cfg.TickInterval),
		zap.Duration("refresh_interval", s.cfg.RefreshInterval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks.C:
			s.engine.Tick()
		case <-refresh.C:
			s.engine.RefreshNotificationTimes()
		}
	}
}
