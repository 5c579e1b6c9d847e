// internal/workers/matching/warm-candidates/handler_test.go
package warmcandidates

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
	WarmCandidatesFunc func(ctx context.Context, topK int) (int, error)
}

func (m *MockService) WarmCandidates(ctx context.Context, topK int) (int, error) {
	return m.WarmCandidatesFunc(ctx, topK)
}

func TestHandler_Execute(t *testing.T) {
	var gotTopK int
	service := &MockService{WarmCandidatesFunc: func(ctx context.Context, topK int) (int, error) {
		gotTopK = topK
		return 5, nil
	}}
	h := NewHandler(LoadConfig(), service, nil, logger.NewTestLogger(t))

	output, err := h.execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, 10, gotTopK)
	assert.Equal(t, 5, output.ProfilesWarmed)

	_, err = h.execute(context.Background(), &Input{TopK: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, gotTopK)
}

func TestHandler_Execute_ListFailure(t *testing.T) {
	service := &MockService{WarmCandidatesFunc: func(ctx context.Context, topK int) (int, error) {
		return 0, apperrors.NewDatabaseError("list profiles", errors.New("connection refused"))
	}}
	h := NewHandler(LoadConfig(), service, nil, logger.NewNoOpLogger())

	output, err := h.execute(context.Background(), &Input{})
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, apperrors.ErrDatabase))
}
