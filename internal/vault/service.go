package vault

import (
	"context"
	"fmt"

	"github.com/kimhsiao/tgvault/internal/storage"
	"github.com/kimhsiao/tgvault/internal/store"
)

// Service wires the scanner and worker around one injected messaging client
// and one durable store. It replaces the ambient globals the pipeline grew
// out of: the worker's running state and the client handle live here.
type Service struct {
	scanner  *Scanner
	worker   *Worker
	notifier Notifier
}

// NewService creates a Service reporting scan outcomes through the log.
func NewService(client Client, st *store.Store, sm *storage.Manager) *Service {
	return &Service{
		scanner:  NewScanner(client, st),
		worker:   NewWorker(client, st, sm),
		notifier: LogNotifier{},
	}
}

// SetNotifier replaces the outcome notifier, e.g. with one that replies into
// the originating chat.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Scan scans one chat for new media and returns the number of jobs queued.
// The worker is woken afterwards regardless of the scan outcome, including
// failures: enqueueing is idempotent and waking a running worker is a no-op.
func (s *Service) Scan(ctx context.Context, chatID string) (int, error) {
	defer s.worker.Trigger()

	n, err := s.scanner.Scan(ctx, chatID)
	if err != nil {
		s.notifier.Notify(ctx, fmt.Sprintf("scan of chat %s failed: %v", chatID, err))
		return n, err
	}
	s.notifier.Notify(ctx, fmt.Sprintf("queued %d new downloads for chat %s", n, chatID))
	return n, nil
}

// TriggerWorker wakes the worker if it is idle.
func (s *Service) TriggerWorker() {
	s.worker.Trigger()
}

// ProcessQueue drains the pending queue synchronously. It is a no-op when a
// drain loop is already running.
func (s *Service) ProcessQueue(ctx context.Context) {
	s.worker.RunLoop(ctx)
}

// IsRunning reports whether the worker loop is active.
func (s *Service) IsRunning() bool {
	return s.worker.Running()
}
