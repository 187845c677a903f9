package vault

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/kimhsiao/tgvault/internal/errors"
	"github.com/kimhsiao/tgvault/internal/models"
)

func TestScanFailsFastWhenClientNotReady(t *testing.T) {
	e := newTestEnv(t)
	e.client.connected = false
	e.client.addMessage("12345", photoMessage(1), pngBytes)

	_, err := e.scanner().Scan(context.Background(), "12345")
	if !apperrors.Is(err, apperrors.ErrClientNotReady) {
		t.Fatalf("expected CLIENT_NOT_READY, got %v", err)
	}

	queue, err := e.store.ReadPendingQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 0 {
		t.Errorf("scan with disconnected client must not touch the queue, got %d jobs", len(queue))
	}
}

func TestScanEnqueuesNewMedia(t *testing.T) {
	e := newTestEnv(t)
	for i := int64(1); i <= 3; i++ {
		e.client.addMessage("12345", photoMessage(i), pngBytes)
	}

	if n := mustScan(t, e, "12345"); n != 3 {
		t.Fatalf("expected 3 queued jobs, got %d", n)
	}

	queue, err := e.store.ReadPendingQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 3 {
		t.Fatalf("expected 3 jobs in queue, got %d", len(queue))
	}
	for i, job := range queue {
		want := int64(i + 1)
		if job.SequenceNumber != want {
			t.Errorf("job %d: sequenceNumber %d, want %d", i, job.SequenceNumber, want)
		}
		if job.MaxRetries != models.DefaultMaxRetries {
			t.Errorf("job %d: maxRetries %d, want %d", i, job.MaxRetries, models.DefaultMaxRetries)
		}
		if job.ID == "" {
			t.Errorf("job %d: missing id", i)
		}
	}
}

func TestScanSkipsMessagesWithoutMedia(t *testing.T) {
	e := newTestEnv(t)
	e.client.addMessage("12345", Message{ID: 1, Date: time.Now(), Kind: KindNone, Caption: "plain text"}, nil)
	e.client.addMessage("12345", photoMessage(2), pngBytes)

	if n := mustScan(t, e, "12345"); n != 1 {
		t.Fatalf("expected 1 queued job, got %d", n)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	for i := int64(1); i <= 3; i++ {
		e.client.addMessage("12345", photoMessage(i), pngBytes)
	}

	mustScan(t, e, "12345")
	if n := mustScan(t, e, "12345"); n != 0 {
		t.Fatalf("second scan must enqueue nothing, got %d", n)
	}

	queue, err := e.store.ReadPendingQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 3 {
		t.Errorf("expected 3 jobs after double scan, got %d", len(queue))
	}
}

func TestScanSkipsLedgeredMessages(t *testing.T) {
	e := newTestEnv(t)
	e.client.addMessage("12345", photoMessage(1), pngBytes)
	e.client.addMessage("12345", photoMessage(2), pngBytes)

	entry := models.LedgerEntry{
		Job: models.Job{
			ID:             "done-1",
			ChatID:         "12345",
			MessageID:      1,
			Timestamp:      1,
			MaxRetries:     models.DefaultMaxRetries,
			MediaType:      models.MediaTypePhoto,
			SequenceNumber: 1,
		},
		Completed:      true,
		RegistryID:     1,
		StoredFileName: "a.jpg",
	}
	if err := e.store.AppendLedgerEntry("12345", entry); err != nil {
		t.Fatal(err)
	}

	if n := mustScan(t, e, "12345"); n != 1 {
		t.Fatalf("expected only the unledgered message queued, got %d", n)
	}

	queue, err := e.store.ReadPendingQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 1 || queue[0].MessageID != 2 {
		t.Errorf("unexpected queue contents: %+v", queue)
	}
}

func TestScanAbortsAtomicallyOnHistoryError(t *testing.T) {
	e := newTestEnv(t)
	e.client.listErr = fmt.Errorf("FLOOD_WAIT")

	_, err := e.scanner().Scan(context.Background(), "12345")
	if !apperrors.Is(err, apperrors.ErrScanFailed) {
		t.Fatalf("expected SCAN_FAILED, got %v", err)
	}

	queue, readErr := e.store.ReadPendingQueue()
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(queue) != 0 {
		t.Errorf("failed scan must persist nothing, got %d jobs", len(queue))
	}
}

func TestScanContinuesGlobalSequenceAcrossChats(t *testing.T) {
	e := newTestEnv(t)
	e.client.addMessage("111", photoMessage(1), pngBytes)
	e.client.addMessage("111", photoMessage(2), pngBytes)
	e.client.addMessage("222", photoMessage(7), pngBytes)

	mustScan(t, e, "111")
	mustScan(t, e, "222")

	queue, err := e.store.ReadPendingQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(queue))
	}
	last := queue[len(queue)-1]
	if last.ChatID != "222" || last.SequenceNumber != 3 {
		t.Errorf("cross-chat sequence not continued: %+v", last)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		want models.MediaType
	}{
		{"photo", Message{Kind: KindPhoto, MimeType: "image/jpeg"}, models.MediaTypePhoto},
		{"video", Message{Kind: KindVideo, MimeType: "video/mp4"}, models.MediaTypeVideo},
		{"audio document", Message{Kind: KindDocument, MimeType: "audio/ogg"}, models.MediaTypeAudio},
		{"plain document", Message{Kind: KindDocument, MimeType: "application/pdf"}, models.MediaTypeDocument},
		{"document without mime", Message{Kind: KindDocument}, models.MediaTypeDocument},
	}
	for _, tc := range cases {
		got, _ := classify(tc.msg)
		if got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}
