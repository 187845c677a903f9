// Package store provides the durable JSON collections backing the download
// pipeline: the pending queue, the content registry, and the per-chat ledgers.
//
// All mutations are owned by a single actor goroutine; callers submit requests
// over an internal channel and every request performs its read-modify-write
// cycle under the cross-process file lock. The on-disk representation stays
// plain indented JSON so the files remain human-diffable.
//
// Registry and ledger ids are assigned as max(existing)+1 inside the lock,
// which is only safe when exactly one process runs a download worker. Running
// multiple workers against the same data directory is not supported.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/kimhsiao/tgvault/internal/errors"
	"github.com/kimhsiao/tgvault/internal/lockfile"
	"github.com/kimhsiao/tgvault/internal/logging"
	"github.com/kimhsiao/tgvault/internal/models"
)

// Paths locates the three durable collections on disk.
type Paths struct {
	// Queue is the pending queue file.
	Queue string
	// Registry is the content registry file.
	Registry string
	// LedgerDir holds one "<chatId>.json" ledger file per chat.
	LedgerDir string
}

type request struct {
	fn   func() error
	done chan error
}

// Store serializes access to the durable collections.
type Store struct {
	paths     Paths
	lockOpts  lockfile.Options
	requests  chan request
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates a Store and starts its actor goroutine.
func New(paths Paths, lockOpts lockfile.Options) *Store {
	s := &Store{
		paths:    paths,
		lockOpts: lockOpts,
		requests: make(chan request),
		closed:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// Close stops the actor. Requests submitted after Close fail with
// ErrStoreClosed.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

func (s *Store) loop() {
	for {
		select {
		case req := <-s.requests:
			req.done <- req.fn()
		case <-s.closed:
			// Fail any request that raced with Close.
			for {
				select {
				case req := <-s.requests:
					req.done <- apperrors.New(apperrors.ErrStoreClosed, "store is closed")
				default:
					return
				}
			}
		}
	}
}

func (s *Store) do(fn func() error) error {
	req := request{fn: fn, done: make(chan error, 1)}
	select {
	case s.requests <- req:
		return <-req.done
	case <-s.closed:
		return apperrors.New(apperrors.ErrStoreClosed, "store is closed")
	}
}

// --- Pending queue ---

// ReadPendingQueue returns the current pending queue. An absent file yields
// an empty queue. Malformed rows are quarantined, not returned.
func (s *Store) ReadPendingQueue() ([]models.Job, error) {
	var jobs []models.Job
	err := s.do(func() error {
		return lockfile.WithLock(s.paths.Queue, s.lockOpts, func() error {
			rows, err := readRows(s.paths.Queue)
			if err != nil {
				return err
			}
			jobs = decodeJobs(s.paths.Queue, rows)
			return nil
		})
	})
	return jobs, err
}

// UpdatePendingQueue performs one atomic read-modify-write cycle on the
// pending queue. The mutate function receives the live queue and returns the
// queue to persist; returning an error aborts the cycle without writing.
func (s *Store) UpdatePendingQueue(mutate func(queue []models.Job) ([]models.Job, error)) error {
	return s.do(func() error {
		return lockfile.WithLock(s.paths.Queue, s.lockOpts, func() error {
			rows, err := readRows(s.paths.Queue)
			if err != nil {
				return err
			}
			next, err := mutate(decodeJobs(s.paths.Queue, rows))
			if err != nil {
				return err
			}
			return writeRows(s.paths.Queue, next)
		})
	})
}

// --- Content registry ---

// ReadRegistry returns all content registry rows.
func (s *Store) ReadRegistry() ([]models.ContentRecord, error) {
	var records []models.ContentRecord
	err := s.do(func() error {
		return lockfile.WithLock(s.paths.Registry, s.lockOpts, func() error {
			rows, err := readRows(s.paths.Registry)
			if err != nil {
				return err
			}
			records = decodeRecords(s.paths.Registry, rows)
			return nil
		})
	})
	return records, err
}

// AppendRegistryEntry appends one registry row, assigning its id as
// max(existing)+1 inside the lock, and returns the assigned id.
func (s *Store) AppendRegistryEntry(rec models.ContentRecord) (int64, error) {
	var assigned int64
	err := s.do(func() error {
		return lockfile.WithLock(s.paths.Registry, s.lockOpts, func() error {
			rows, err := readRows(s.paths.Registry)
			if err != nil {
				return err
			}
			records := decodeRecords(s.paths.Registry, rows)
			assigned = 1
			for _, existing := range records {
				if existing.ID >= assigned {
					assigned = existing.ID + 1
				}
			}
			rec.ID = assigned
			if err := rec.Validate(); err != nil {
				return apperrors.Wrap(apperrors.ErrInvalid, "refusing to append invalid registry row", err)
			}
			return writeRows(s.paths.Registry, append(records, rec))
		})
	})
	return assigned, err
}

// --- Per-chat ledgers ---

func (s *Store) ledgerPath(chatID string) (string, error) {
	if strings.TrimSpace(chatID) == "" || chatID == "." || chatID == ".." ||
		strings.ContainsAny(chatID, `/\`) {
		return "", apperrors.Newf(apperrors.ErrInvalid, "chat id %q is not valid", chatID)
	}
	return filepath.Join(s.paths.LedgerDir, chatID+".json"), nil
}

// ReadLedger returns the completed-download ledger for one chat. A chat with
// no ledger file yields an empty ledger.
func (s *Store) ReadLedger(chatID string) ([]models.LedgerEntry, error) {
	path, err := s.ledgerPath(chatID)
	if err != nil {
		return nil, err
	}
	var entries []models.LedgerEntry
	err = s.do(func() error {
		return lockfile.WithLock(path, s.lockOpts, func() error {
			rows, err := readRows(path)
			if err != nil {
				return err
			}
			entries = decodeLedger(path, rows)
			return nil
		})
	})
	return entries, err
}

// AppendLedgerEntry appends one completed row to a chat's ledger.
func (s *Store) AppendLedgerEntry(chatID string, entry models.LedgerEntry) error {
	path, err := s.ledgerPath(chatID)
	if err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "refusing to append invalid ledger row", err)
	}
	return s.do(func() error {
		return lockfile.WithLock(path, s.lockOpts, func() error {
			rows, err := readRows(path)
			if err != nil {
				return err
			}
			entries := decodeLedger(path, rows)
			return writeRows(path, append(entries, entry))
		})
	})
}

// --- JSON helpers ---

// readRows reads a JSON array file into raw rows. An absent file is an empty
// collection, not an error.
func readRows(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrStoreIO, "failed to read "+path, err)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreCorrupt, "failed to parse "+path, err)
	}
	return rows, nil
}

// writeRows rewrites the whole file. The marshal happens before the file is
// touched and the bytes land via a temp file plus rename, so a failed write
// never leaves a torn file behind.
func writeRows(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreCorrupt, "failed to serialize "+path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to create "+dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to write "+path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to close temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.ErrStoreIO, "failed to replace "+path, err)
	}
	return nil
}

func decodeJobs(path string, rows []json.RawMessage) []models.Job {
	jobs := make([]models.Job, 0, len(rows))
	for i, raw := range rows {
		var job models.Job
		if err := json.Unmarshal(raw, &job); err != nil {
			quarantine(path, i, err)
			continue
		}
		if err := job.Validate(); err != nil {
			quarantine(path, i, err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func decodeRecords(path string, rows []json.RawMessage) []models.ContentRecord {
	records := make([]models.ContentRecord, 0, len(rows))
	for i, raw := range rows {
		var rec models.ContentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			quarantine(path, i, err)
			continue
		}
		if err := rec.Validate(); err != nil {
			quarantine(path, i, err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

func decodeLedger(path string, rows []json.RawMessage) []models.LedgerEntry {
	entries := make([]models.LedgerEntry, 0, len(rows))
	for i, raw := range rows {
		var entry models.LedgerEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			quarantine(path, i, err)
			continue
		}
		if err := entry.Validate(); err != nil {
			quarantine(path, i, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func quarantine(path string, index int, err error) {
	logging.Warn("quarantined malformed row", map[string]interface{}{
		"file":  path,
		"index": index,
		"error": err.Error(),
	})
}
