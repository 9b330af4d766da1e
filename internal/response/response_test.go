package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "phrasecut/pkg/errors"
)

func TestFromError(t *testing.T) {
	assert.Equal(t, Response{Msg: "Success"}, FromError(nil))

	wrapped := fmt.Errorf("handler: %w", apperrors.WrapWithDetail(apperrors.CodeNotFound, "clip run not found", "run-1", errors.New("record not found")))
	assert.Equal(t, Response{Error: apperrors.CodeNotFound, Msg: "clip run not found", Detail: "run-1"}, FromError(wrapped))

	assert.Equal(t, Response{Error: apperrors.CodeUnknown, Msg: "plain"}, FromError(errors.New("plain")))
}

func TestErrorResponseWithData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorResponseWithData(c, apperrors.ErrNothingToRetry, gin.H{"run_id": "run-1"})

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.EqualValues(t, apperrors.CodeNothingToRetry, got["error"])
	assert.Equal(t, map[string]any{"run_id": "run-1"}, got["data"])
}
