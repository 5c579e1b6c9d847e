// internal/workers/lifecycle/update-match-status/handler.go
package updatematchstatus

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
	TaskType = "update-match-status"
)

type Service interface {
	UpdateStatus(ctx context.Context, matchID, actorID, status string, reason *string) (*models.Match, error)
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
	m, err := h.service.UpdateStatus(ctx, input.MatchID, input.ActorProfileID, input.Status, input.Reason)
	if err != nil {
		return nil, err
	}

	h.logger.Info("match status updated", map[string]interface{}{
		"matchId":   m.ID,
		"actorId":   input.ActorProfileID,
		"requested": input.Status,
		"status":    string(m.Status),
	})
	return &Output{Match: m, Status: string(m.Status)}, nil
}
