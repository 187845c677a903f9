// Package models provides data model definitions for the tgvault download pipeline.
package models

import (
	"fmt"
	"strings"
)

// MediaType classifies a downloadable message payload.
type MediaType string

const (
	MediaTypePhoto    MediaType = "photo"
	MediaTypeVideo    MediaType = "video"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeDocument MediaType = "document"
)

// Valid reports whether m is one of the known media types.
func (m MediaType) Valid() bool {
	switch m {
	case MediaTypePhoto, MediaTypeVideo, MediaTypeAudio, MediaTypeDocument:
		return true
	}
	return false
}

// DefaultMaxRetries is the retry ceiling assigned to new jobs.
const DefaultMaxRetries = 5

// Job represents one media message awaiting download.
type Job struct {
	ID             string    `json:"id"`
	ChatID         string    `json:"chatId"`
	MessageID      int64     `json:"messageId"`
	Timestamp      int64     `json:"timestamp"` // milliseconds since epoch
	RetryCount     int       `json:"retryCount"`
	MaxRetries     int       `json:"maxRetries"`
	MediaType      MediaType `json:"mediaType"`
	MimeType       string    `json:"mimeType"`
	SequenceNumber int64     `json:"sequenceNumber"`
}

// Validate checks that a job row read from disk is well formed.
// Rows failing validation are quarantined by the store, never processed.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return fmt.Errorf("job has empty id")
	}
	if strings.TrimSpace(j.ChatID) == "" {
		return fmt.Errorf("job %s has empty chatId", j.ID)
	}
	if j.MessageID <= 0 {
		return fmt.Errorf("job %s has invalid messageId %d", j.ID, j.MessageID)
	}
	if j.RetryCount < 0 {
		return fmt.Errorf("job %s has negative retryCount", j.ID)
	}
	if j.MaxRetries <= 0 {
		return fmt.Errorf("job %s has invalid maxRetries %d", j.ID, j.MaxRetries)
	}
	if !j.MediaType.Valid() {
		return fmt.Errorf("job %s has unknown mediaType %q", j.ID, j.MediaType)
	}
	if j.SequenceNumber <= 0 {
		return fmt.Errorf("job %s has invalid sequenceNumber %d", j.ID, j.SequenceNumber)
	}
	return nil
}
