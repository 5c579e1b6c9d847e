// internal/workers/matching/generate-all-matches/handler_test.go
package generateallmatches

import (
	"context"
	"errors"
	"testing"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	GenerateAllFunc func(ctx context.Context, topK int) (int, error)
}

func (m *MockService) GenerateAll(ctx context.Context, topK int) (int, error) {
	return m.GenerateAllFunc(ctx, topK)
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		expectedTopK   int
		created        int
		serviceErr     error
		validateOutput func(t *testing.T, output *Output, err error)
	}{
		{
			name:         "default top k",
			input:        &Input{},
			expectedTopK: 10,
			created:      4,
			validateOutput: func(t *testing.T, output *Output, err error) {
				require.NoError(t, err)
				assert.Equal(t, 4, output.MatchesCreated)
				assert.NotEmpty(t, output.CompletedAt)
			},
		},
		{
			name:         "explicit top k",
			input:        &Input{TopK: 3},
			expectedTopK: 3,
			validateOutput: func(t *testing.T, output *Output, err error) {
				require.NoError(t, err)
				assert.Zero(t, output.MatchesCreated)
			},
		},
		{
			name:         "transaction failure",
			input:        &Input{},
			expectedTopK: 10,
			serviceErr:   apperrors.NewDatabaseError("delete all matches", errors.New("connection reset")),
			validateOutput: func(t *testing.T, output *Output, err error) {
				assert.Nil(t, output)
				assert.True(t, errors.Is(err, apperrors.ErrDatabase))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTopK int
			service := &MockService{GenerateAllFunc: func(ctx context.Context, topK int) (int, error) {
				gotTopK = topK
				return tt.created, tt.serviceErr
			}}
			h := NewHandler(LoadConfig(), service, nil, logger.NewTestLogger(t))

			output, err := h.execute(context.Background(), tt.input)
			assert.Equal(t, tt.expectedTopK, gotTopK)
			tt.validateOutput(t, output, err)
		})
	}
}
