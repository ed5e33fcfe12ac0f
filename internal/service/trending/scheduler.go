// internal/service/trending/scheduler.go

package trending

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"trendcatch/internal/domain/sound"
	"trendcatch/internal/domain/user"
	"trendcatch/internal/logger"
)

// DigestSender sends periodic alert digests
type DigestSender interface {
	SendDigests(ctx context.Context, frequency user.EmailFrequency) (int, error)
}

// SchedulerConfig contains configuration for the scheduler
type SchedulerConfig struct {
	// RefreshInterval between full refreshes; zero disables them
	RefreshInterval time.Duration
	// DigestInterval between daily digests; weekly digests go out every
	// seventh one. Zero disables digests.
	DigestInterval time.Duration
}

// Scheduler runs full refreshes and alert digests in the background
type Scheduler struct {
	catcher sound.Catcher
	digests DigestSender
	config  SchedulerConfig
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a new scheduler. digests may be nil.
func NewScheduler(catcher sound.Catcher, digests DigestSender, config SchedulerConfig) *Scheduler {
	return &Scheduler{
		catcher: catcher,
		digests: digests,
		config:  config,
	}
}

// Start launches the background loops
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.config.RefreshInterval > 0 {
		s.wg.Add(1)
		go s.refreshLoop(ctx)
	}

	if s.config.DigestInterval > 0 && s.digests != nil {
		s.wg.Add(1)
		go s.digestLoop(ctx)
	}
}

// Stop cancels the loops and waits for them, or for ctx to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) refreshLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			found, err := s.catcher.RefreshAll(ctx)
			if err != nil {
				logger.Warn("Scheduled refresh interrupted", zap.Error(err))
				continue
			}
			logger.Info("Scheduled refresh complete",
				zap.Int("sounds_found", found),
				zap.Duration("duration", time.Since(start)))
		}
	}
}

func (s *Scheduler) digestLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.DigestInterval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticks++
			s.sendDigests(ctx, user.FrequencyDaily)
			if ticks%7 == 0 {
				s.sendDigests(ctx, user.FrequencyWeekly)
			}
		}
	}
}

func (s *Scheduler) sendDigests(ctx context.Context, frequency user.EmailFrequency) {
	sent, err := s.digests.SendDigests(ctx, frequency)
	if err != nil {
		logger.Error(err, zap.String("frequency", string(frequency)))
		return
	}
	logger.Info("Sent alert digests", zap.String("frequency", string(frequency)), zap.Int("sent", sent))
}
