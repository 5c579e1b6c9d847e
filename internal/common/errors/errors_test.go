package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load match: %w", NewNotFoundError("match", "m-1"))

	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.False(t, stderrors.Is(err, ErrValidation))
}

func TestStandardError_UnwrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewProviderError("ranking", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, ErrProvider))
	assert.Equal(t, "ranking", err.Metadata["stage"])
}

func TestConvertToBPMNError_DoesNotLeakDetails(t *testing.T) {
	stdErr := NewDatabaseError("insert match", stderrors.New(`pq: duplicate key value violates unique constraint "matches_pkey"`))

	bpmnErr := ConvertToBPMNError(stdErr)
	vars := bpmnErr.ToErrorVariables()

	assert.Equal(t, "DATABASE_ERROR", bpmnErr.Code)
	assert.Equal(t, 3, bpmnErr.Retries)
	for _, v := range vars {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "matches_pkey")
		}
	}
	assert.NotContains(t, stdErr.SafeMessage(), "matches_pkey")
}

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeDatabase, 3},
		{ErrCodeNotificationSend, 3},
		{ErrCodeProvider, 2},
		{ErrCodeNotFound, 0},
		{ErrCodeValidation, 0},
		{ErrCodeStateConflict, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetRetryCount(tt.code))
			assert.Equal(t, tt.want > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestNonRetryableErrorHasNoRetries(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewStateConflictError("match must be accepted before scheduling"))
	assert.Equal(t, 0, bpmnErr.Retries)
	assert.False(t, bpmnErr.Retryable)
	assert.Equal(t, "STATE", bpmnErr.ErrorVariables["errorCategory"])
}

func TestNormalize(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewValidationError("status", "must be one of accepted, declined, met"))
	require.Equal(t, ErrCodeValidation, Normalize(wrapped).Code)

	plain := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeProvider))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeCache))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearch))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInput))
	assert.Equal(t, "BATCH", GetErrorCategory(ErrCodeBatchItemFailure))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
