package vault

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kimhsiao/tgvault/internal/lockfile"
	"github.com/kimhsiao/tgvault/internal/storage"
	"github.com/kimhsiao/tgvault/internal/store"
)

// pngBytes is a minimal payload with a real PNG magic number so extension
// detection from bytes has something to work with.
var pngBytes = []byte("\x89PNG\r\n\x1a\n0000000000")

type fakeClient struct {
	mu        sync.Mutex
	connected bool
	history   map[string][]Message
	payloads  map[string][]byte
	listErr   error
	// failDownloads maps a message key to the number of download attempts
	// that should fail before succeeding. Negative means fail forever.
	failDownloads map[string]int
	// gone marks messages FetchMessage can no longer see.
	gone map[string]bool
	// order records the message keys of download attempts in order.
	order []string
	// delay stalls each download, to exercise concurrent triggers.
	delay time.Duration
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		connected:     true,
		history:       make(map[string][]Message),
		payloads:      make(map[string][]byte),
		failDownloads: make(map[string]int),
		gone:          make(map[string]bool),
	}
}

func msgKey(chatID string, messageID int64) string {
	return fmt.Sprintf("%s/%d", chatID, messageID)
}

func (f *fakeClient) addMessage(chatID string, msg Message, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[chatID] = append(f.history[chatID], msg)
	f.payloads[msgKey(chatID, msg.ID)] = payload
}

func (f *fakeClient) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Message(nil), f.history[chatID]...), nil
}

func (f *fakeClient) FetchMessage(ctx context.Context, chatID string, messageID int64) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[msgKey(chatID, messageID)] {
		return nil, nil
	}
	for _, msg := range f.history[chatID] {
		if msg.ID == messageID {
			m := msg
			return &m, nil
		}
	}
	return nil, nil
}

func (f *fakeClient) DownloadPayload(ctx context.Context, chatID string, messageID int64) ([]byte, error) {
	key := msgKey(chatID, messageID)

	f.mu.Lock()
	f.order = append(f.order, key)
	remaining := f.failDownloads[key]
	if remaining != 0 {
		if remaining > 0 {
			f.failDownloads[key] = remaining - 1
		}
		f.mu.Unlock()
		return nil, fmt.Errorf("simulated download failure for %s", key)
	}
	payload := f.payloads[key]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return payload, nil
}

func (f *fakeClient) downloadOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

type testEnv struct {
	client  *fakeClient
	store   *store.Store
	storage *storage.Manager
	service *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	st := store.New(store.Paths{
		Queue:     filepath.Join(dir, "download.json"),
		Registry:  filepath.Join(dir, "database.json"),
		LedgerDir: filepath.Join(dir, "ID"),
	}, lockfile.Options{Retries: 100, Backoff: time.Millisecond})
	t.Cleanup(st.Close)

	sm, err := storage.NewManager(filepath.Join(dir, "media"))
	if err != nil {
		t.Fatalf("creating storage manager: %v", err)
	}

	client := newFakeClient()
	return &testEnv{
		client:  client,
		store:   st,
		storage: sm,
		service: NewService(client, st, sm),
	}
}

func (e *testEnv) scanner() *Scanner { return e.service.scanner }
func (e *testEnv) worker() *Worker   { return e.service.worker }

func photoMessage(id int64) Message {
	return Message{
		ID:       id,
		Date:     time.Date(2025, 11, 2, 12, 0, 0, 0, time.UTC),
		Kind:     KindPhoto,
		MimeType: "image/jpeg",
		FileExt:  ".jpg",
	}
}

func mustScan(t *testing.T, e *testEnv, chatID string) int {
	t.Helper()
	n, err := e.scanner().Scan(context.Background(), chatID)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	return n
}
