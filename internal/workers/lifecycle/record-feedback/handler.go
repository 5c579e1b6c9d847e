// internal/workers/lifecycle/record-feedback/handler.go
package recordfeedback

import (
	"context"

	"event-matchmaker/internal/common/camunda"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/validation"
	"event-matchmaker/internal/matching/lifecycle"
	"event-matchmaker/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "record-feedback"
)

type Service interface {
	RecordFeedback(ctx context.Context, matchID string, fb lifecycle.Feedback) (*models.Match, error)
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
	m, err := h.service.RecordFeedback(ctx, input.MatchID, lifecycle.Feedback{
		Outcome:      input.Outcome,
		Satisfaction: input.SatisfactionScore,
		MetAt:        input.MetAt,
		Hidden:       input.Hidden,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("feedback recorded", map[string]interface{}{
		"matchId":         m.ID,
		"hasOutcome":      m.MeetingOutcome != nil,
		"hasSatisfaction": m.SatisfactionScore != nil,
		"hidden":          m.HiddenByUser,
	})
	return &Output{Match: m}, nil
}
