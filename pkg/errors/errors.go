// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent API responses.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002

	// Subtitle/index errors (1100-1199)
	CodeSubtitleRead   = 1100
	CodeSubtitleFormat = 1101
	CodeIndexBuild     = 1102
	CodeIndexLoad      = 1103
	CodeIndexSave      = 1104
	CodeNoIndex        = 1105

	// Query errors (1200-1299)
	CodeEmptyQuery    = 1200
	CodeInvalidResult = 1201

	// Clip/media errors (1300-1399)
	CodeMediaNotFound  = 1300
	CodeMediaProbe     = 1301
	CodeClipExtract    = 1302
	CodeRunnerStopped  = 1303
	CodeQueueFull      = 1304
	CodeNothingToRetry = 1305

	// Storage errors (1500-1599)
	CodeDBError        = 1500
	CodeFileNotFound   = 1501
	CodeFileWriteError = 1502
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// GetDetail extracts detail from error, empty for non-AppError values
func GetDetail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Detail
	}
	return ""
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "Resource not found")

	// Subtitle/index
	ErrSubtitleRead = New(CodeSubtitleRead, "Subtitle file could not be read")
	ErrNoIndex      = New(CodeNoIndex, "No phrase index loaded")

	// Query
	ErrEmptyQuery    = New(CodeEmptyQuery, "Query contains no words")
	ErrInvalidResult = New(CodeInvalidResult, "Segmentation result is malformed")

	// Clip/media
	ErrMediaNotFound  = New(CodeMediaNotFound, "No media registered for source")
	ErrClipExtract    = New(CodeClipExtract, "Clip extraction failed")
	ErrRunnerStopped  = New(CodeRunnerStopped, "Clip runner stopped")
	ErrQueueFull      = New(CodeQueueFull, "Clip queue is full")
	ErrNothingToRetry = New(CodeNothingToRetry, "Run has no failed clips")

	// Storage
	ErrDBError      = New(CodeDBError, "Database error")
	ErrFileNotFound = New(CodeFileNotFound, "File not found")
)
