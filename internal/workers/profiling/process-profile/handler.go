// internal/workers/profiling/process-profile/handler.go
package processprofile

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
	TaskType = "process-profile"
)

type Service interface {
	ProcessProfile(ctx context.Context, profileID string) (*models.Profile, error)
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
	p, err := h.service.ProcessProfile(ctx, input.ProfileID)
	if err != nil {
		return nil, err
	}

	tags := p.IntentTags
	if tags == nil {
		tags = []string{}
	}
	h.logger.Info("profile processed", map[string]interface{}{
		"profileId":  p.ID,
		"intentTags": tags,
		"embedded":   p.HasEmbedding(),
	})

	return &Output{
		ProfileID:          p.ID,
		AISummary:          p.Summary,
		IntentTags:         tags,
		DealReadinessScore: p.DealReadiness,
		Embedded:           p.HasEmbedding(),
		ProcessedAt:        time.Now().UTC().Format(time.RFC3339),
	}, nil
}
