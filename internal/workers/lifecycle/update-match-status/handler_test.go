// internal/workers/lifecycle/update-match-status/handler_test.go
package updatematchstatus

import (
	"context"
	"errors"
	"testing"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/matching/lifecycle"
	"event-matchmaker/internal/models"
	"event-matchmaker/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func strPtr(s string) *string { return &s }

func setupHandler(t *testing.T) (*Handler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, mem.InsertMatch(context.Background(), &models.Match{
		ID:          "m1",
		AttendeeAID: "amara",
		AttendeeBID: "marcus",
		Status:      models.StatusPending,
		StatusA:     models.StatusPending,
		StatusB:     models.StatusPending,
	}))
	service := lifecycle.NewService(mem, logger.NewTestLogger(t))
	return NewHandler(LoadConfig(), service, nil, logger.NewTestLogger(t)), mem
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name           string
		inputs         []*Input
		validateOutput func(t *testing.T, output *Output, err error)
	}{
		{
			name:   "one side accepts",
			inputs: []*Input{{MatchID: "m1", ActorProfileID: "amara", Status: "accepted"}},
			validateOutput: func(t *testing.T, output *Output, err error) {
				require.NoError(t, err)
				assert.Equal(t, "pending", output.Status)
				assert.Equal(t, models.StatusAccepted, output.Match.StatusA)
			},
		},
		{
			name: "both sides accept",
			inputs: []*Input{
				{MatchID: "m1", ActorProfileID: "amara", Status: "accepted"},
				{MatchID: "m1", ActorProfileID: "marcus", Status: "accepted"},
			},
			validateOutput: func(t *testing.T, output *Output, err error) {
				require.NoError(t, err)
				assert.Equal(t, "accepted", output.Status)
			},
		},
		{
			name:   "decline with reason",
			inputs: []*Input{{MatchID: "m1", ActorProfileID: "marcus", Status: "declined", Reason: strPtr("  not raising this quarter ")}},
			validateOutput: func(t *testing.T, output *Output, err error) {
				require.NoError(t, err)
				assert.Equal(t, "declined", output.Status)
				require.NotNil(t, output.Match.DeclineReason)
				assert.Equal(t, "not raising this quarter", *output.Match.DeclineReason)
			},
		},
		{
			name:   "pending is not a valid target",
			inputs: []*Input{{MatchID: "m1", ActorProfileID: "amara", Status: "pending"}},
			validateOutput: func(t *testing.T, output *Output, err error) {
				assert.Nil(t, output)
				assert.True(t, errors.Is(err, apperrors.ErrValidation))
			},
		},
		{
			name:   "unknown match",
			inputs: []*Input{{MatchID: "m404", ActorProfileID: "amara", Status: "accepted"}},
			validateOutput: func(t *testing.T, output *Output, err error) {
				assert.True(t, errors.Is(err, apperrors.ErrNotFound))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupHandler(t)
			var output *Output
			var err error
			for _, input := range tt.inputs {
				output, err = h.execute(context.Background(), input)
			}
			tt.validateOutput(t, output, err)
		})
	}
}
