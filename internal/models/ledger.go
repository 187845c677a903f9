package models

import "fmt"

// LedgerEntry is one row of a per-chat ledger: a job that completed its
// download. It carries the originating job fields plus the registry id and
// final storage location. Rows are append-only and immutable once written.
type LedgerEntry struct {
	Job
	Completed      bool   `json:"completed"`
	RegistryID     int64  `json:"registryId"`
	StoredFileName string `json:"storedFileName"`
	StoragePath    string `json:"storagePath"`
}

// Validate checks that a ledger row read from disk is well formed.
func (e *LedgerEntry) Validate() error {
	if err := e.Job.Validate(); err != nil {
		return err
	}
	if !e.Completed {
		return fmt.Errorf("ledger row %s is not marked completed", e.ID)
	}
	if e.RegistryID <= 0 {
		return fmt.Errorf("ledger row %s has invalid registryId %d", e.ID, e.RegistryID)
	}
	return nil
}
