package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/validation"
	"event-matchmaker/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Retry Tests
// ==========================

func fastRetry() *RetryConfig {
	return &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name          string
		errs          []error
		expectedCalls int
		expectErr     bool
	}{
		{
			name:          "succeeds first time",
			errs:          []error{nil},
			expectedCalls: 1,
		},
		{
			name:          "recovers from transient failures",
			errs:          []error{errors.New("connection refused"), errors.New("Unavailable: no connection"), nil},
			expectedCalls: 3,
		},
		{
			name:          "stops on permanent failure",
			errs:          []error{errors.New("permission denied")},
			expectedCalls: 1,
			expectErr:     true,
		},
		{
			name: "gives up after max retries",
			errs: []error{
				errors.New("deadline exceeded"), errors.New("deadline exceeded"),
				errors.New("deadline exceeded"), errors.New("deadline exceeded"),
			},
			expectedCalls: 4,
			expectErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			retries := 0
			err := Retry(context.Background(), fastRetry(), func(ctx context.Context) error {
				e := tt.errs[calls]
				calls++
				return e
			}, func(attempt int, delay time.Duration, err error) {
				retries++
				assert.LessOrEqual(t, delay, 4*time.Millisecond)
			})

			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if !tt.expectErr {
				assert.Equal(t, calls-1, retries)
			}
		})
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	err := Retry(ctx, rc, func(ctx context.Context) error {
		return errors.New("timeout")
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

// ==========================
// JobRunner Tests
// ==========================

func newJob(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Type: "generate-matches", Retries: 3, Variables: variables}}
}

type generateInput struct {
	ProfileID     string `json:"profileId"`
	TopK          int    `json:"topK"`
	ClearExisting *bool  `json:"clearExisting"`
}

func TestJobRunner_Decode(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)
	validator, err := validation.NewValidator(reg)
	require.NoError(t, err)
	runner := NewJobRunner("generate-matches", validator, 0, logger.NewTestLogger(t))

	tests := []struct {
		name           string
		variables      string
		validateOutput func(t *testing.T, input generateInput, err error)
	}{
		{
			name:      "valid variables",
			variables: `{"profileId":"amara","topK":5,"clearExisting":false}`,
			validateOutput: func(t *testing.T, input generateInput, err error) {
				require.NoError(t, err)
				assert.Equal(t, "amara", input.ProfileID)
				assert.Equal(t, 5, input.TopK)
				require.NotNil(t, input.ClearExisting)
				assert.False(t, *input.ClearExisting)
			},
		},
		{
			name:      "schema violation",
			variables: `{"topK":5}`,
			validateOutput: func(t *testing.T, input generateInput, err error) {
				assert.True(t, errors.Is(err, apperrors.ErrValidation))
			},
		},
		{
			name:      "not json",
			variables: `{profileId}`,
			validateOutput: func(t *testing.T, input generateInput, err error) {
				var stdErr *apperrors.StandardError
				require.True(t, errors.As(err, &stdErr))
				assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input generateInput
			err := runner.Decode(newJob(tt.variables), &input)
			tt.validateOutput(t, input, err)
		})
	}
}

func TestJobRunner_DecodeWithoutValidator(t *testing.T) {
	runner := NewJobRunner("generate-matches", nil, time.Second, logger.NewNoOpLogger())

	var input generateInput
	require.NoError(t, runner.Decode(newJob(`{"topK":3}`), &input))
	assert.Equal(t, 3, input.TopK)
	assert.Empty(t, input.ProfileID)
}
