package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Precondition errors - fatal, abort the whole run (exit code 2)
	ErrCheckFileNotFound ErrorCode = "CHECK_FILE_NOT_FOUND"
	ErrInstallerMissing  ErrorCode = "INSTALLER_MISSING"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Check file errors
	ErrCheckFileParse ErrorCode = "CHECK_FILE_PARSE"

	// Source map errors
	ErrSourceMapInvalid ErrorCode = "SOURCE_MAP_INVALID"

	// Staging errors - caught at the request boundary
	ErrMissingRemote    ErrorCode = "MISSING_REMOTE"
	ErrFetchFailed      ErrorCode = "FETCH_FAILED"
	ErrArchiveNotFound  ErrorCode = "ARCHIVE_NOT_FOUND"
	ErrArchiveExtract   ErrorCode = "ARCHIVE_EXTRACT"
	ErrArchiveAmbiguous ErrorCode = "ARCHIVE_AMBIGUOUS"
	ErrManifestMissing  ErrorCode = "MANIFEST_MISSING"

	// Fingerprint errors
	ErrFingerprint ErrorCode = "FINGERPRINT"

	// Apply errors - trigger a rollback attempt. Rollback failures have
	// no code of their own: they surface as the "rollback_error:" result
	// string on the outcome.
	ErrBackupFailed    ErrorCode = "BACKUP_FAILED"
	ErrApplyFailed     ErrorCode = "APPLY_FAILED"
	ErrApplyValidation ErrorCode = "APPLY_VALIDATION"
)

// SkillsyncError represents a structured error with code and details
type SkillsyncError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *SkillsyncError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *SkillsyncError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *SkillsyncError) Is(target error) bool {
	var targetErr *SkillsyncError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new SkillsyncError with the given code and message
func New(code ErrorCode, message string) *SkillsyncError {
	return &SkillsyncError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new SkillsyncError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *SkillsyncError {
	return &SkillsyncError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a SkillsyncError
func Wrap(err error, code ErrorCode, message string) *SkillsyncError {
	if err == nil {
		return nil
	}
	return &SkillsyncError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *SkillsyncError {
	if err == nil {
		return nil
	}
	return &SkillsyncError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *SkillsyncError) WithDetail(key string, value interface{}) *SkillsyncError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var serr *SkillsyncError
	if errors.As(err, &serr) {
		return serr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a SkillsyncError
func GetErrorCode(err error) ErrorCode {
	var serr *SkillsyncError
	if errors.As(err, &serr) {
		return serr.Code
	}
	return ErrUnknown
}

// Message returns the human-readable message of an error without the code
// prefix, for use in per-request reason strings.
func Message(err error) string {
	var serr *SkillsyncError
	if errors.As(err, &serr) {
		if serr.Wrapped != nil {
			return fmt.Sprintf("%s: %v", serr.Message, serr.Wrapped)
		}
		return serr.Message
	}
	return err.Error()
}

// IsPrecondition reports whether the error is a fatal startup precondition
// failure that should abort the run with exit code 2.
func IsPrecondition(err error) bool {
	code := GetErrorCode(err)
	return code == ErrCheckFileNotFound || code == ErrInstallerMissing
}
