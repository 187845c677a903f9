// Package lockfile provides cross-process advisory locking for durable files.
//
// Each durable file is guarded by a sibling ".lock" file so the guarded file
// itself can be atomically replaced while the lock is held. Locks are advisory:
// every reader and writer of the guarded file must go through WithLock.
package lockfile

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	apperrors "github.com/kimhsiao/tgvault/internal/errors"
)

// Options control lock acquisition retries.
type Options struct {
	// Retries is the number of additional acquisition attempts after the
	// first one fails because another holder owns the lock.
	Retries int
	// Backoff is the delay before the first retry; it doubles after each
	// failed attempt.
	Backoff time.Duration
}

// DefaultOptions mirrors the retry policy the durable store was designed
// around: five retries with a 100ms initial backoff.
func DefaultOptions() Options {
	return Options{
		Retries: 5,
		Backoff: 100 * time.Millisecond,
	}
}

// WithLock acquires an exclusive advisory lock for path, runs fn, and
// releases the lock on every exit path. The guarded file not existing yet is
// not an error; fn decides how to treat an absent file.
//
// Acquisition is retried opts.Retries times with exponential backoff. If the
// lock cannot be acquired the call fails with an ErrLockTimeout AppError and
// fn is never invoked.
func WithLock(path string, opts Options, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.Wrap(apperrors.ErrLockFailed, "failed to create lock directory", err)
	}

	fl := flock.New(path + ".lock")
	acquired := false
	delay := opts.Backoff

	for attempt := 0; attempt <= opts.Retries; attempt++ {
		locked, err := fl.TryLock()
		if err != nil {
			return apperrors.Wrap(apperrors.ErrLockFailed, "failed to acquire file lock", err)
		}
		if locked {
			acquired = true
			break
		}
		if attempt < opts.Retries {
			time.Sleep(delay)
			delay *= 2
		}
	}

	if !acquired {
		return apperrors.Newf(apperrors.ErrLockTimeout,
			"could not acquire lock for %s after %d retries", path, opts.Retries)
	}
	defer fl.Unlock()

	return fn()
}
