package models

import (
	"fmt"
	"strings"
)

// RecordFlags marks post-processing attributes on a stored asset.
type RecordFlags struct {
	Watermark bool `json:"watermark"`
	Encrypted bool `json:"encrypted"`
}

// ContentRecord is one row of the content registry: a successfully
// downloaded asset. Rows are append-only and immutable once written.
type ContentRecord struct {
	ID             int64       `json:"id"`
	Downloaded     bool        `json:"downloaded"`
	SourceChatID   string      `json:"sourceChatId"`
	CapturedDate   string      `json:"capturedDate"` // YYYY-MM-DD
	MediaType      MediaType   `json:"mediaType"`
	Caption        string      `json:"caption"`
	StoredFileName string      `json:"storedFileName"`
	HumanSize      string      `json:"humanSize"`
	MimeType       string      `json:"mimeType"`
	StoragePath    string      `json:"storagePath"`
	ContentHash    string      `json:"contentHash"`
	Flags          RecordFlags `json:"flags"`
}

// Validate checks that a registry row read from disk is well formed.
func (r *ContentRecord) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("registry row has invalid id %d", r.ID)
	}
	if strings.TrimSpace(r.SourceChatID) == "" {
		return fmt.Errorf("registry row %d has empty sourceChatId", r.ID)
	}
	if !r.MediaType.Valid() {
		return fmt.Errorf("registry row %d has unknown mediaType %q", r.ID, r.MediaType)
	}
	if strings.TrimSpace(r.StoredFileName) == "" {
		return fmt.Errorf("registry row %d has empty storedFileName", r.ID)
	}
	return nil
}
