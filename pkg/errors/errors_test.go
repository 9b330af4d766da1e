package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	// Test without cause
	err := New(CodeIndexLoad, "Test error")
	assert.Equal(t, "[1103] Test error", err.Error())

	// Test with cause
	cause := errors.New("underlying error")
	errWithCause := Wrap(CodeIndexLoad, "Test error", cause)
	assert.Contains(t, errWithCause.Error(), "underlying error")
	assert.Contains(t, errWithCause.Error(), "1103")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(CodeClipExtract, "Extraction failed", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestIs(t *testing.T) {
	err := New(CodeMediaNotFound, "missing media")

	assert.True(t, Is(err, CodeMediaNotFound))
	assert.False(t, Is(err, CodeClipExtract))

	// Wrapped with fmt.Errorf still matches
	assert.True(t, Is(fmt.Errorf("plan: %w", err), CodeMediaNotFound))

	regularErr := errors.New("regular error")
	assert.False(t, Is(regularErr, CodeMediaNotFound))
}

func TestGetCode(t *testing.T) {
	appErr := New(CodeEmptyQuery, "empty")
	assert.Equal(t, CodeEmptyQuery, GetCode(appErr))

	regularErr := errors.New("regular error")
	assert.Equal(t, CodeUnknown, GetCode(regularErr))
}

func TestGetMessage(t *testing.T) {
	appErr := New(CodeFileNotFound, "File not found")
	assert.Equal(t, "File not found", GetMessage(appErr))

	regularErr := errors.New("regular error message")
	assert.Equal(t, "regular error message", GetMessage(regularErr))
}

func TestWrapWithDetail(t *testing.T) {
	cause := errors.New("permission denied")
	err := WrapWithDetail(CodeIndexSave, "Save failed", "dir: /tmp/indices", cause)

	assert.Equal(t, CodeIndexSave, err.Code)
	assert.Equal(t, "Save failed", err.Message)
	assert.Equal(t, "dir: /tmp/indices", err.Detail)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, "dir: /tmp/indices", GetDetail(err))
	assert.Empty(t, GetDetail(cause))
}

func TestPredefinedErrors(t *testing.T) {
	assert.Equal(t, CodeInvalidParams, ErrInvalidParams.Code)
	assert.Equal(t, CodeNoIndex, ErrNoIndex.Code)
	assert.Equal(t, CodeEmptyQuery, ErrEmptyQuery.Code)
	assert.Equal(t, CodeNothingToRetry, ErrNothingToRetry.Code)
	assert.Equal(t, CodeDBError, ErrDBError.Code)
}
