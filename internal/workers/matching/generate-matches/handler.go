// internal/workers/matching/generate-matches/handler.go
package generatematches

import (
	"context"

	"event-matchmaker/internal/common/camunda"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/validation"
	"event-matchmaker/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "generate-matches"
)

type Service interface {
	GenerateForProfile(ctx context.Context, profileID string, topK int, clearExisting bool) ([]*models.Match, error)
}

type Handler struct {
	config  *Config
	service Service
	runner  *camunda.JobRunner
	logger  logger.Logger
}

func NewHandler(config *Config, service Service, validator *validation.Validator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		service: service,
		runner:  camunda.NewJobRunner(TaskType, validator, config.Timeout, log),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.execute)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = h.config.DefaultTopK
	}
	clearExisting := true
	if input.ClearExisting != nil {
		clearExisting = *input.ClearExisting
	}

	created, err := h.service.GenerateForProfile(ctx, input.ProfileID, topK, clearExisting)
	if err != nil {
		return nil, err
	}

	output := &Output{
		ProfileID:      input.ProfileID,
		MatchesCreated: len(created),
		Matches:        make([]MatchSummary, 0, len(created)),
	}
	for _, m := range created {
		output.Matches = append(output.Matches, MatchSummary{
			MatchID:        m.ID,
			OtherProfileID: m.Other(input.ProfileID),
			OverallScore:   m.OverallScore,
			MatchType:      string(m.MatchType),
			Explanation:    m.Explanation,
			Confidence:     m.Confidence,
		})
	}

	h.logger.Info("matches generated", map[string]interface{}{
		"profileId":      input.ProfileID,
		"topK":           topK,
		"clearExisting":  clearExisting,
		"matchesCreated": output.MatchesCreated,
	})
	return output, nil
}
