// internal/workers/profiling/update-profile/handler.go
package updateprofile

import (
	"context"
	"time"

	"event-matchmaker/internal/common/camunda"
	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/validation"
	"event-matchmaker/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "update-profile"
)

type Service interface {
	GetProfile(ctx context.Context, profileID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error)
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
	current, err := h.service.GetProfile(ctx, input.ProfileID)
	if err != nil {
		return nil, err
	}

	edited := *current
	if err := apply(&edited, input); err != nil {
		return nil, err
	}

	updated, err := h.service.UpdateProfile(ctx, &edited)
	if err != nil {
		return nil, err
	}

	reprocess := current.HasEmbedding() && !updated.HasEmbedding()
	h.logger.Info("profile updated", map[string]interface{}{
		"profileId":         updated.ID,
		"needsReprocessing": reprocess,
	})

	return &Output{
		ProfileID:         updated.ID,
		NeedsReprocessing: reprocess,
		UpdatedAt:         time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func apply(p *models.Profile, in *Input) error {
	setString(&p.Name, in.Name)
	setString(&p.Email, in.Email)
	setString(&p.Title, in.Title)
	setString(&p.Company, in.Company)
	setString(&p.Goals, in.Goals)
	setString(&p.DealStage, in.DealStage)

	if in.TicketType != nil {
		t, err := models.ParseTicketType(*in.TicketType)
		if err != nil {
			return apperrors.NewValidationError("ticketType", err.Error())
		}
		p.TicketType = t
	}

	setList(&p.Interests, in.Interests)
	setList(&p.Seeking, in.Seeking)
	setList(&p.NotLookingFor, in.NotLookingFor)
	setList(&p.PreferredGeographies, in.PreferredGeographies)

	if in.EnrichedProfile != nil {
		p.Enriched = *in.EnrichedProfile
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setList(dst *[]string, v []string) {
	if v != nil {
		*dst = append([]string(nil), v...)
	}
}
