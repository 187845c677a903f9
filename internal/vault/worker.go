package vault

import (
	"context"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/kimhsiao/tgvault/internal/errors"
	"github.com/kimhsiao/tgvault/internal/logging"
	"github.com/kimhsiao/tgvault/internal/models"
	"github.com/kimhsiao/tgvault/internal/storage"
	"github.com/kimhsiao/tgvault/internal/store"
)

// Worker drains the pending queue in strict sequence order, one download at a
// time. A process runs at most one drain loop; Trigger and RunLoop are no-ops
// while a loop is already running.
type Worker struct {
	client  Client
	store   *store.Store
	storage *storage.Manager

	mu      sync.Mutex
	running bool
}

// NewWorker creates a Worker.
func NewWorker(client Client, st *store.Store, sm *storage.Manager) *Worker {
	return &Worker{client: client, store: st, storage: sm}
}

// Running reports whether a drain loop is currently active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Trigger starts a drain loop in the background if one is not already
// running. Waking a running worker is a no-op.
func (w *Worker) Trigger() {
	go w.RunLoop(context.Background())
}

// RunLoop drains the pending queue until it is empty, then returns. If a loop
// is already running the call returns immediately. The running flag is
// cleared on every exit path so a later trigger can resume after an error.
func (w *Worker) RunLoop(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	logging.Info("download worker started", nil)
	for w.processNext(ctx) {
	}
	logging.Info("download worker finished", nil)
}

// processNext handles the job with the lowest sequence number and reports
// whether the loop should continue. Per-job failures keep the loop going;
// bookkeeping failures stop this invocation.
func (w *Worker) processNext(ctx context.Context) bool {
	queue, err := w.store.ReadPendingQueue()
	if err != nil {
		logging.Error("worker could not read pending queue", err, nil)
		return false
	}
	if len(queue) == 0 {
		return false
	}

	job := queue[0]
	for _, candidate := range queue[1:] {
		if candidate.SequenceNumber < job.SequenceNumber {
			job = candidate
		}
	}

	outcome := w.attempt(ctx, job)
	next, state := Transition(job, outcome)

	// Re-read the queue fresh inside the commit: a concurrent scan may have
	// appended rows since this attempt started.
	err = w.store.UpdatePendingQueue(func(queue []models.Job) ([]models.Job, error) {
		for i := range queue {
			if queue[i].ID != job.ID {
				continue
			}
			switch state {
			case StateCompleted, StateAbandoned:
				return append(queue[:i], queue[i+1:]...), nil
			default:
				queue[i] = next
				return queue, nil
			}
		}
		// Row vanished under us; nothing to commit.
		return queue, nil
	})
	if err != nil {
		logging.Error("worker could not update pending queue", err, jobContext(job))
		return false
	}

	if state == StateAbandoned {
		logging.Warn("job abandoned after exhausting retries", jobContext(next))
	}
	return true
}

// attempt performs one fetch/download/persist cycle for a job. Errors are
// logged with job context and reported through the outcome; they never
// propagate out of the loop.
func (w *Worker) attempt(ctx context.Context, job models.Job) AttemptOutcome {
	logging.Info("processing download job", jobContext(job))

	msg, err := w.client.FetchMessage(ctx, job.ChatID, job.MessageID)
	if err != nil {
		return w.fail(job, apperrors.Wrap(apperrors.ErrMediaFetch, "failed to fetch message", err))
	}
	if msg == nil {
		return w.fail(job, apperrors.New(apperrors.ErrMediaFetch, "message not found or inaccessible"))
	}

	data, err := w.client.DownloadPayload(ctx, job.ChatID, job.MessageID)
	if err != nil {
		return w.fail(job, apperrors.Wrap(apperrors.ErrDownload, "failed to download payload", err))
	}

	ext := msg.FileExt
	if ext == "" {
		if mt := mimetype.Detect(data); mt.Extension() != "" {
			ext = mt.Extension()
		}
	}

	stored, err := w.storage.Store(data, ext)
	if err != nil {
		return w.fail(job, err)
	}

	registryID, err := w.store.AppendRegistryEntry(models.ContentRecord{
		Downloaded:     true,
		SourceChatID:   job.ChatID,
		CapturedDate:   time.Now().Format("2006-01-02"),
		MediaType:      job.MediaType,
		Caption:        msg.Caption,
		StoredFileName: stored.Name,
		HumanSize:      stored.HumanSize,
		MimeType:       job.MimeType,
		StoragePath:    stored.Path,
		ContentHash:    stored.ContentHash,
	})
	if err != nil {
		return w.fail(job, err)
	}

	err = w.store.AppendLedgerEntry(job.ChatID, models.LedgerEntry{
		Job:            job,
		Completed:      true,
		RegistryID:     registryID,
		StoredFileName: stored.Name,
		StoragePath:    stored.Path,
	})
	if err != nil {
		return w.fail(job, err)
	}

	logging.Info("download completed", map[string]interface{}{
		"chatId":     job.ChatID,
		"messageId":  job.MessageID,
		"file":       stored.Name,
		"size":       stored.HumanSize,
		"registryId": registryID,
	})
	return AttemptOutcome{Success: true}
}

func (w *Worker) fail(job models.Job, err error) AttemptOutcome {
	logging.Error("download attempt failed", err, jobContext(job))
	return AttemptOutcome{Err: err}
}

func jobContext(job models.Job) map[string]interface{} {
	return map[string]interface{}{
		"jobId":      job.ID,
		"chatId":     job.ChatID,
		"messageId":  job.MessageID,
		"sequence":   job.SequenceNumber,
		"retryCount": job.RetryCount,
	}
}
