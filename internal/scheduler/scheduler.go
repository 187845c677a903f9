// Package scheduler provides periodic re-triggering of the download worker.
//
// The worker loop ends when the pending queue is empty; jobs left behind by a
// crash or a transient failure would otherwise wait for the next scan. The
// scheduler wakes the worker on a fixed interval so the queue always drains
// eventually.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/kimhsiao/tgvault/internal/logging"
)

// WorkerTrigger wakes the download worker. Waking a running worker is a
// no-op.
type WorkerTrigger interface {
	TriggerWorker()
}

// Scheduler periodically triggers the download worker.
type Scheduler struct {
	trigger  WorkerTrigger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
}

// DefaultInterval is how often the worker is re-triggered when the
// configuration does not say otherwise.
const DefaultInterval = time.Minute

// New creates a Scheduler. A non-positive interval falls back to
// DefaultInterval.
func New(trigger WorkerTrigger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		trigger:  trigger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the trigger loop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	logging.Info("worker scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
	})
}

// Stop stops the trigger loop and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	logging.Info("worker scheduler stopped", nil)
}

// IsRunning reports whether the trigger loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.trigger.TriggerWorker()
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
