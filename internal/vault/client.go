// Package vault implements the durable media download pipeline: scanning a
// chat's history for media, queueing jobs, and draining the queue with
// at-least-once download semantics.
package vault

import (
	"context"
	"time"
)

// MessageKind is the payload shape reported by the messaging client.
type MessageKind string

const (
	KindNone     MessageKind = ""
	KindPhoto    MessageKind = "photo"
	KindVideo    MessageKind = "video"
	KindDocument MessageKind = "document"
)

// Message describes one chat message as exposed by the messaging client.
// It carries just enough metadata to classify the payload and name the file.
type Message struct {
	ID       int64
	Date     time.Time
	Caption  string
	Kind     MessageKind
	MimeType string
	// FileExt is the original file extension including the dot. May be empty;
	// the worker then derives one from the downloaded bytes.
	FileExt string
}

// HasMedia reports whether the message carries a downloadable payload.
func (m *Message) HasMedia() bool {
	return m.Kind != KindNone
}

// Client is the narrow messaging capability the pipeline consumes. Session
// management and authentication live with the implementation.
type Client interface {
	// Connected reports whether the client session is usable.
	Connected() bool
	// ListMessages returns a chat's full message history.
	ListMessages(ctx context.Context, chatID string) ([]Message, error)
	// FetchMessage returns one message, or nil if it is gone or inaccessible.
	FetchMessage(ctx context.Context, chatID string, messageID int64) (*Message, error)
	// DownloadPayload returns the binary payload of one message.
	DownloadPayload(ctx context.Context, chatID string, messageID int64) ([]byte, error)
}

// Notifier delivers free-text status to a human. The pipeline itself only
// logs; the calling layer uses the notifier to report scan outcomes.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
