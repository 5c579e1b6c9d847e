// internal/workers/lifecycle/schedule-meeting/handler.go
package schedulemeeting

import (
	"context"
	"time"

	"event-matchmaker/internal/common/camunda"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/validation"
	"event-matchmaker/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "schedule-meeting"
)

type Service interface {
	Schedule(ctx context.Context, matchID string, at time.Time, location *string) (*models.Match, error)
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
	m, err := h.service.Schedule(ctx, input.MatchID, input.MeetingTime, input.Location)
	if err != nil {
		return nil, err
	}

	output := &Output{Match: m}
	if m.MeetingTime != nil {
		output.MeetingTime = m.MeetingTime.UTC().Format(time.RFC3339)
	}
	if m.MeetingLocation != nil {
		output.MeetingLocation = *m.MeetingLocation
	}

	h.logger.Info("meeting scheduled", map[string]interface{}{
		"matchId":     m.ID,
		"meetingTime": output.MeetingTime,
		"location":    output.MeetingLocation,
	})
	return output, nil
}
