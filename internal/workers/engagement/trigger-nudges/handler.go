// internal/workers/engagement/trigger-nudges/handler.go
package triggernudges

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
	TaskType = "trigger-nudges"
)

type Service interface {
	ComputeDueNudges(ctx context.Context, now *time.Time) ([]models.Nudge, error)
	TriggerNudges(ctx context.Context, dryRun bool) (*models.NudgeSummary, error)
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
	if input.Mode == ModeCompute {
		return h.compute(ctx, input.At)
	}

	summary, err := h.service.TriggerNudges(ctx, input.DryRun)
	if err != nil {
		return nil, err
	}
	return &Output{
		DryRun:     summary.DryRun,
		TotalDue:   summary.TotalDue,
		ToDispatch: summary.ToDispatch,
		Dispatched: summary.Dispatched,
		Failed:     summary.Failed,
		Nudges:     summary.Nudges,
	}, nil
}

// compute lists every due nudge, delivered or not, without side effects.
func (h *Handler) compute(ctx context.Context, at *time.Time) (*Output, error) {
	due, err := h.service.ComputeDueNudges(ctx, at)
	if err != nil {
		return nil, err
	}
	if due == nil {
		due = []models.Nudge{}
	}

	h.logger.Debug("due nudges computed", map[string]interface{}{"totalDue": len(due)})
	return &Output{
		DryRun:   true,
		TotalDue: len(due),
		Nudges:   due,
	}, nil
}
