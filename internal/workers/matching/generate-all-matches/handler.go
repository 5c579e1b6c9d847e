// internal/workers/matching/generate-all-matches/handler.go
package generateallmatches

import (
	"context"
	"time"

	"event-matchmaker/internal/common/camunda"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "generate-all-matches"
)

// Service regenerates matches for the whole pool. Per-attendee failures are isolated
// inside the run and do not surface as an error.
type Service interface {
	GenerateAll(ctx context.Context, topK int) (int, error)
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

	created, err := h.service.GenerateAll(ctx, topK)
	if err != nil {
		return nil, err
	}

	h.logger.Info("pool regenerated", map[string]interface{}{
		"topK":           topK,
		"matchesCreated": created,
	})
	return &Output{
		MatchesCreated: created,
		CompletedAt:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}
