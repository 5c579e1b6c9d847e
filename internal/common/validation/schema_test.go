package validation

import (
	"errors"
	"testing"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultValidator(t *testing.T) *Validator {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	v, err := NewValidator(reg)
	require.NoError(t, err)
	return v
}

func TestValidator_ValidateInput(t *testing.T) {
	v := newDefaultValidator(t)

	tests := []struct {
		name      string
		taskType  string
		variables map[string]interface{}
		valid     bool
		field     string
	}{
		{
			name:      "generate matches",
			taskType:  "generate-matches",
			variables: map[string]interface{}{"profileId": "amara", "topK": 10, "clearExisting": true},
			valid:     true,
		},
		{
			name:      "extra process variables are allowed",
			taskType:  "list-matches",
			variables: map[string]interface{}{"profileId": "amara", "eventId": "paris-2026"},
			valid:     true,
		},
		{
			name:      "missing profile id",
			taskType:  "generate-matches",
			variables: map[string]interface{}{"topK": 10},
			field:     "profileId",
		},
		{
			name:      "nil variables",
			taskType:  "process-profile",
			variables: nil,
			field:     "profileId",
		},
		{
			name:      "top k out of range",
			taskType:  "generate-all-matches",
			variables: map[string]interface{}{"topK": 0},
			field:     "topK",
		},
		{
			name:      "meeting time must be a date-time",
			taskType:  "schedule-meeting",
			variables: map[string]interface{}{"matchId": "m1", "meetingTime": "tomorrow"},
			field:     "meetingTime",
		},
		{
			name:      "satisfaction must be a number",
			taskType:  "record-feedback",
			variables: map[string]interface{}{"matchId": "m1", "satisfactionScore": "five"},
			field:     "satisfactionScore",
		},
		{
			name:      "unknown mode",
			taskType:  "trigger-nudges",
			variables: map[string]interface{}{"mode": "flush"},
			field:     "mode",
		},
		{
			name:      "unregistered task type",
			taskType:  "send-notification",
			variables: map[string]interface{}{"anything": true},
			valid:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateInput(tt.taskType, tt.variables)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid, result.GetErrorMessages())
			if tt.valid {
				assert.NoError(t, result.Err())
				return
			}
			assert.True(t, result.HasErrors(tt.field), result.GetErrorMessages())

			verr := result.Err()
			require.Error(t, verr)
			assert.True(t, errors.Is(verr, apperrors.ErrValidation))
		})
	}
}

func TestValidateAgainst(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"matches": map[string]interface{}{"type": "array"},
		},
		"required": []interface{}{"matches"},
	}

	result, err := ValidateAgainst(schema, map[string]interface{}{"matches": []interface{}{}})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = ValidateAgainst(schema, map[string]interface{}{})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "REQUIRED", result.Errors[0].Code)
	assert.Equal(t, "matches", result.Errors[0].Field)
}
