package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// SweeperService runs the retention sweep on a timer, decoupled from
// interactive requests. Each pass is idempotent, so overlapping or repeated
// runs are harmless.
type SweeperService struct {
	purger   expiredPurger
	metrics  *MetricsService
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewSweeperService constructs the sweeper.
func NewSweeperService(purger expiredPurger, metrics *MetricsService, interval time.Duration, logger *zap.Logger) *SweeperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &SweeperService{purger: purger, metrics: metrics, interval: interval, logger: logger}
}

// Start launches the background loop. Safe to call once.
func (s *SweeperService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.started = true
	go s.loop(ctx)
	s.logger.Info("retention sweeper started", zap.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for the current pass to finish.
func (s *SweeperService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()
	<-done
	s.logger.Info("retention sweeper stopped")
}

func (s *SweeperService) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep pass.
func (s *SweeperService) RunOnce(ctx context.Context) {
	start := time.Now()
	purged, err := s.purger.PurgeExpired(ctx)
	if s.metrics != nil {
		s.metrics.ObserveSweep(time.Since(start))
	}
	if err != nil {
		s.logger.Error("retention sweep failed", zap.Error(err))
		return
	}
	if purged > 0 {
		s.logger.Info("retention sweep completed", zap.Int("purged", purged))
	}
}
