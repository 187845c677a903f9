// Package errors provides error code definitions for the tgvault pipeline.
package errors

import "fmt"

// ErrorCode identifies a class of failure in the download pipeline.
type ErrorCode string

const (
	// General errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrInvalid  ErrorCode = "INVALID_INPUT"

	// Scan errors
	ErrClientNotReady ErrorCode = "CLIENT_NOT_READY"
	ErrScanFailed     ErrorCode = "SCAN_FAILED"

	// Lock errors
	ErrLockTimeout ErrorCode = "LOCK_TIMEOUT"
	ErrLockFailed  ErrorCode = "LOCK_FAILED"

	// Download errors
	ErrMediaFetch ErrorCode = "MEDIA_FETCH_FAILED"
	ErrDownload   ErrorCode = "DOWNLOAD_FAILED"

	// Durable store errors
	ErrStoreCorrupt ErrorCode = "STORE_CORRUPT"
	ErrStoreIO      ErrorCode = "STORE_IO_ERROR"
	ErrStoreClosed  ErrorCode = "STORE_CLOSED"

	// Managed storage errors
	ErrStorageWrite ErrorCode = "STORAGE_WRITE_FAILED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error is of a specific code. It unwraps nested
// errors until it finds an AppError or runs out of causes.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Code == code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
