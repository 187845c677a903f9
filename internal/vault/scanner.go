package vault

import (
	"context"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/kimhsiao/tgvault/internal/errors"
	"github.com/kimhsiao/tgvault/internal/logging"
	"github.com/kimhsiao/tgvault/internal/models"
	"github.com/kimhsiao/tgvault/internal/store"
)

// Scanner walks a chat's history and enqueues download jobs for media that is
// neither already downloaded (ledger) nor already queued.
type Scanner struct {
	client Client
	store  *store.Store
}

// NewScanner creates a Scanner.
func NewScanner(client Client, st *store.Store) *Scanner {
	return &Scanner{client: client, store: st}
}

// Scan scans one chat and returns the number of jobs it enqueued.
//
// The enqueue commit is all-or-nothing: jobs are appended to the pending
// queue in a single read-modify-write cycle, and any failure while fetching
// or iterating history discards everything built so far without a write.
// Deduplication and sequence assignment are repeated against the live queue
// inside that cycle, so concurrent scans cannot produce duplicates or
// colliding sequence numbers.
func (s *Scanner) Scan(ctx context.Context, chatID string) (int, error) {
	if !s.client.Connected() {
		return 0, apperrors.New(apperrors.ErrClientNotReady, "messaging client is not connected")
	}

	ledger, err := s.store.ReadLedger(chatID)
	if err != nil {
		return 0, err
	}
	processed := make(map[int64]bool, len(ledger))
	for _, entry := range ledger {
		processed[entry.MessageID] = true
	}

	logging.Info("scanning chat history", map[string]interface{}{"chatId": chatID})

	messages, err := s.client.ListMessages(ctx, chatID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrScanFailed, "failed to list chat history", err)
	}

	var jobs []models.Job
	for _, msg := range messages {
		if !msg.HasMedia() || processed[msg.ID] {
			continue
		}
		mediaType, mimeType := classify(msg)
		jobs = append(jobs, models.Job{
			ID:         uuid.NewString(),
			ChatID:     chatID,
			MessageID:  msg.ID,
			Timestamp:  msg.Date.UnixMilli(),
			MaxRetries: models.DefaultMaxRetries,
			MediaType:  mediaType,
			MimeType:   mimeType,
		})
	}

	if len(jobs) == 0 {
		logging.Info("no new media found", map[string]interface{}{"chatId": chatID})
		return 0, nil
	}

	queued := 0
	err = s.store.UpdatePendingQueue(func(queue []models.Job) ([]models.Job, error) {
		inQueue := make(map[int64]bool, len(queue))
		var lastSeq int64
		for _, existing := range queue {
			if existing.ChatID == chatID {
				inQueue[existing.MessageID] = true
			}
			if existing.SequenceNumber > lastSeq {
				lastSeq = existing.SequenceNumber
			}
		}
		for _, job := range jobs {
			if inQueue[job.MessageID] {
				continue
			}
			lastSeq++
			job.SequenceNumber = lastSeq
			queue = append(queue, job)
			inQueue[job.MessageID] = true
			queued++
		}
		return queue, nil
	})
	if err != nil {
		return 0, err
	}

	logging.Info("queued new media", map[string]interface{}{
		"chatId": chatID,
		"count":  queued,
	})
	return queued, nil
}

// classify maps a message payload onto the media-type enum. Photos and videos
// keep their kind; documents split into audio (by MIME prefix) and generic
// documents, mirroring how the source chats tag uploads.
func classify(msg Message) (models.MediaType, string) {
	switch msg.Kind {
	case KindPhoto:
		return models.MediaTypePhoto, msg.MimeType
	case KindVideo:
		return models.MediaTypeVideo, msg.MimeType
	default:
		if strings.HasPrefix(msg.MimeType, "audio/") {
			return models.MediaTypeAudio, msg.MimeType
		}
		return models.MediaTypeDocument, msg.MimeType
	}
}
